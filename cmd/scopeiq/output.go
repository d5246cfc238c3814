package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/indexer"
	"github.com/dshills/scopeiq/internal/searcher"
	"github.com/dshills/scopeiq/pkg/types"
)

// snippetLength bounds the content preview in table output
const snippetLength = 160

type resultJSON struct {
	Rank          int                 `json:"rank"`
	ID            string              `json:"id"`
	Similarity    float64             `json:"similarity"`
	AdjustedScore float64             `json:"adjusted_score"`
	Content       string              `json:"content"`
	Metadata      types.ChunkMetadata `json:"metadata"`
}

type intentJSON struct {
	IsGeneric         bool     `json:"is_generic"`
	IsProjectSpecific bool     `json:"is_project_specific"`
	IsAmbiguous       bool     `json:"is_ambiguous"`
	GenericTerms      []string `json:"generic_terms"`
	ProjectTerms      []string `json:"project_terms"`
}

type reportJSON struct {
	RunID      string   `json:"run_id"`
	DocumentID string   `json:"document_id"`
	Partition  string   `json:"partition"`
	Total      int      `json:"total"`
	Succeeded  int      `json:"succeeded"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Failures   []string `json:"failures,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

type summaryJSON struct {
	Documents  int          `json:"documents"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Reports    []reportJSON `json:"reports"`
	Errors     []string     `json:"errors,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func resultsView(results []types.SearchResult) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, resultJSON{
			Rank:          r.Rank,
			ID:            r.ID,
			Similarity:    r.Similarity(),
			AdjustedScore: r.AdjustedScore,
			Content:       r.Content,
			Metadata:      r.Metadata,
		})
	}
	return out
}

func intentView(intent types.QueryIntent) intentJSON {
	return intentJSON{
		IsGeneric:         intent.IsGeneric,
		IsProjectSpecific: intent.IsProjectSpecific,
		IsAmbiguous:       intent.IsAmbiguous(),
		GenericTerms:      orEmpty(intent.GenericTerms),
		ProjectTerms:      orEmpty(intent.ProjectTerms),
	}
}

func summaryView(s *indexer.Summary) summaryJSON {
	out := summaryJSON{
		Documents:  s.Documents,
		Total:      s.Total,
		Succeeded:  s.Succeeded,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		Reports:    make([]reportJSON, 0, len(s.Reports)),
		DurationMs: s.Duration.Milliseconds(),
	}
	for _, r := range s.Reports {
		rep := reportJSON{
			RunID:      r.RunID,
			DocumentID: r.DocumentID,
			Partition:  r.Namespace,
			Total:      r.Total,
			Succeeded:  r.Succeeded,
			Skipped:    r.Skipped,
			Failed:     r.Failed,
			DurationMs: r.Duration.Milliseconds(),
		}
		for _, f := range r.Failures {
			rep.Failures = append(rep.Failures, fmt.Sprintf("%s: %v", f.ChunkID, f.Err))
		}
		out.Reports = append(out.Reports, rep)
	}
	for _, e := range s.Errors {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", e.DocumentID, e.Err))
	}
	return out
}

func printResults(cmd *cobra.Command, strategy searcher.Strategy, results []types.SearchResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return
	}

	fmt.Fprintf(out, "Results (%s):\n\n", strategy)
	for i := range results {
		r := &results[i]
		// Format: [N] Document - chunk type (similarity / adjusted)
		title := r.Metadata.DocumentName
		if title == "" {
			title = r.Metadata.DocumentID
		}
		fmt.Fprintf(out, "  [%d] %s - %s (%.3f / %.3f)\n", r.Rank, title, r.Metadata.ChunkType, r.Similarity(), r.AdjustedScore)
		fmt.Fprintf(out, "      %s: %s\n", r.Metadata.Source, r.Metadata.Partition)
		fmt.Fprintf(out, "      %s\n\n", snippet(r.Content))
	}
}

func snippet(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	runes := []rune(s)
	if len(runes) <= snippetLength {
		return s
	}
	return string(runes[:snippetLength]) + "..."
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
