package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/domainsearch"
	"github.com/dshills/scopeiq/internal/searcher"
	"github.com/dshills/scopeiq/pkg/types"
)

type searchOptions struct {
	project      string
	document     string
	limit        int
	chunkTypes   []string
	numbers      bool
	measurements bool
	commonWeight float64
	json         bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents with content filters",
		Long: `Runs a smart query, keeps only the chunks that match the requested chunk
types and numeric features, and summarizes what was found. When smart routing
picked a single partition and nothing survived the filters, a hybrid query
across both partitions is tried once more.`,
		Example: `  scopeiq search --project tower-a --types schedule,table --measurements "door sizes"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project ID (required)")
	cmd.Flags().StringVarP(&opts.document, "doc", "d", "", "restrict project results to one document")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of results (default from config)")
	cmd.Flags().StringSliceVarP(&opts.chunkTypes, "types", "t", nil, "chunk types to keep (header, schedule, specification, table, general)")
	cmd.Flags().BoolVar(&opts.numbers, "numbers", false, "keep only chunks containing numbers")
	cmd.Flags().BoolVar(&opts.measurements, "measurements", false, "keep only chunks containing measurements")
	cmd.Flags().Float64Var(&opts.commonWeight, "common-weight", searcher.DefaultCommonWeight, "share of hybrid results drawn from common partitions")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output results as JSON")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions, query string) error {
	chunkTypes := make([]types.ChunkType, 0, len(opts.chunkTypes))
	for _, t := range opts.chunkTypes {
		chunkTypes = append(chunkTypes, types.ChunkType(t))
	}

	searchOpts := domainsearch.Options{
		DocumentID:          opts.document,
		TopK:                opts.limit,
		ChunkTypes:          chunkTypes,
		RequireNumbers:      opts.numbers,
		RequireMeasurements: opts.measurements,
	}
	if cmd.Flags().Changed("common-weight") {
		w := opts.commonWeight
		searchOpts.CommonWeight = &w
	}

	c, err := openComponents(root)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	resp, err := c.domain.Search(cmd.Context(), opts.project, query, searchOpts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.json {
		return printJSON(cmd, map[string]any{
			"results":    resultsView(resp.Results),
			"summary":    resp.Summary,
			"confidence": resp.Confidence,
			"strategy":   resp.Strategy,
			"attempted":  resp.Attempted,
		})
	}

	printResults(cmd, resp.Strategy, resp.Results)
	fmt.Fprintln(cmd.OutOrStdout(), resp.Summary)
	return nil
}
