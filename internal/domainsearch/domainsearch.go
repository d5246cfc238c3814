package domainsearch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/scopeiq/internal/config"
	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/internal/searcher"
	"github.com/dshills/scopeiq/pkg/types"
)

// DefaultOverFetchFactor leaves room for filtering
const DefaultOverFetchFactor = 2

// maxSummaryDocuments caps how many documents the summary names
const maxSummaryDocuments = 3

// summaryCategories are the content types the summary reports, in order
var summaryCategories = []types.ChunkType{types.ChunkSchedule, types.ChunkSpecification, types.ChunkHeader}

// Retriever is the retrieval engine the filter runs on top of
type Retriever interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	SmartQuery(ctx context.Context, req searcher.SmartRequest) (*searcher.Response, error)
	HybridQuery(ctx context.Context, req searcher.SmartRequest) (*searcher.Response, error)
}

// Options narrow a domain search
type Options struct {
	DocumentID          string
	TopK                int
	ChunkTypes          []types.ChunkType
	RequireNumbers      bool
	RequireMeasurements bool
	CommonWeight        *float64
}

// Response is a filtered result set with a deterministic summary
type Response struct {
	Results    []types.SearchResult
	Summary    string
	Confidence float64 // mean similarity, 0 when empty
	Strategy   searcher.Strategy
	Attempted  []searcher.Strategy
}

// Config holds filter defaults
type Config struct {
	OverFetchFactor int
	DefaultTopK     int
	Timeout         time.Duration // whole-search budget shared by every strategy, 0 disables
}

// ConfigFrom converts the application search settings
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		OverFetchFactor: cfg.Search.OverFetchFactor,
		DefaultTopK:     cfg.Search.DefaultTopK,
		Timeout:         cfg.QueryTimeout(),
	}
}

// strategy is one retrieval attempt in ranked order
type strategy struct {
	name searcher.Strategy
	run  func(ctx context.Context, req searcher.SmartRequest) (*searcher.Response, error)
}

// Searcher filters retrieval results by content type and features
type Searcher struct {
	retriever   Retriever
	overFetch   int
	defaultTopK int
	timeout     time.Duration
}

// New creates a domain searcher
func New(r Retriever, cfg Config) *Searcher {
	if cfg.OverFetchFactor < 1 {
		cfg.OverFetchFactor = DefaultOverFetchFactor
	}
	if cfg.DefaultTopK < 1 {
		cfg.DefaultTopK = partition.DefaultTopK
	}
	return &Searcher{
		retriever:   r,
		overFetch:   cfg.OverFetchFactor,
		defaultTopK: cfg.DefaultTopK,
		timeout:     cfg.Timeout,
	}
}

// Search retrieves an over-fetched candidate set, keeps the results that pass
// every filter, re-sorts them by similarity and truncates to TopK.
//
// Smart routing runs first. When it took a single-partition shortcut and
// nothing survived filtering, full hybrid fusion runs once more. Errors are
// returned immediately and never trigger the fallback. The embedding and every
// strategy share one deadline, so a fallback never extends the budget.
func (s *Searcher) Search(ctx context.Context, projectID, query string, opts Options) (*Response, error) {
	if s.retriever == nil {
		return nil, errors.New("retriever not initialized")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be blank", types.ErrEmptyInput)
	}
	for _, ct := range opts.ChunkTypes {
		if !ct.Valid() {
			return nil, types.ValidationErrorf("unknown chunk type %q", ct)
		}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	topK = partition.ClampTopK(topK)
	fetchK := partition.ClampTopK(topK * s.overFetch)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vector, err := s.retriever.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	req := searcher.SmartRequest{
		ProjectID:    projectID,
		Query:        query,
		TopK:         fetchK,
		DocumentID:   opts.DocumentID,
		CommonWeight: opts.CommonWeight,
		Vector:       vector,
	}

	strategies := []strategy{
		{name: "smart", run: s.retriever.SmartQuery},
		{name: searcher.StrategyHybrid, run: s.retriever.HybridQuery},
	}

	out := &Response{}
	var filtered []types.SearchResult
	for i, st := range strategies {
		resp, err := st.run(ctx, req)
		if err != nil {
			return nil, err
		}
		out.Strategy = resp.Strategy
		out.Attempted = append(out.Attempted, resp.Strategy)

		filtered = applyFilters(resp.Results, opts)
		if len(filtered) > 0 || resp.Strategy == searcher.StrategyHybrid || i == len(strategies)-1 {
			break
		}
		logger.Debug("domain search: %s returned nothing after filtering, trying %s", resp.Strategy, strategies[i+1].name)
	}

	sortBySimilarity(filtered)
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	for i := range filtered {
		filtered[i].Rank = i + 1
	}

	out.Results = filtered
	out.Confidence = Confidence(filtered)
	out.Summary = Summarize(filtered, out.Confidence)
	return out, nil
}

// applyFilters keeps results matching the requested chunk types and flags
func applyFilters(results []types.SearchResult, opts Options) []types.SearchResult {
	allowed := make(map[types.ChunkType]bool, len(opts.ChunkTypes))
	for _, ct := range opts.ChunkTypes {
		allowed[ct] = true
	}

	out := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		if len(allowed) > 0 && !allowed[r.Metadata.ChunkType] {
			continue
		}
		if opts.RequireNumbers && !r.Metadata.HasNumbers {
			continue
		}
		if opts.RequireMeasurements && !r.Metadata.HasMeasurements {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sortBySimilarity(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
}

// Confidence is the mean similarity of results, 0 when there are none
func Confidence(results []types.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for i := range results {
		sum += results[i].Similarity()
	}
	return sum / float64(len(results))
}

// Summarize describes a result set in one or two sentences. The output
// depends only on its arguments.
func Summarize(results []types.SearchResult, confidence float64) string {
	if len(results) == 0 {
		return "No matching content found."
	}

	var docs []string
	seenDoc := make(map[string]bool)
	present := make(map[types.ChunkType]bool)
	for _, r := range results {
		name := r.Metadata.DocumentName
		if name == "" {
			name = r.Metadata.DocumentID
		}
		if !seenDoc[name] {
			seenDoc[name] = true
			docs = append(docs, name)
		}
		present[r.Metadata.ChunkType] = true
	}

	var b strings.Builder
	noun := "results"
	if len(results) == 1 {
		noun = "result"
	}
	fmt.Fprintf(&b, "Found %d %s in %s", len(results), noun, listDocuments(docs))

	var categories []string
	for _, ct := range summaryCategories {
		if present[ct] {
			categories = append(categories, string(ct))
		}
	}
	if len(categories) > 0 {
		fmt.Fprintf(&b, " including %s content", strings.Join(categories, ", "))
	}

	fmt.Fprintf(&b, ". Confidence: %.0f%%.", confidence*100)
	return b.String()
}

func listDocuments(docs []string) string {
	if len(docs) <= maxSummaryDocuments {
		return strings.Join(docs, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(docs[:maxSummaryDocuments], ", "), len(docs)-maxSummaryDocuments)
}
