package searcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/scopeiq/internal/classifier"
	"github.com/dshills/scopeiq/internal/config"
	"github.com/dshills/scopeiq/internal/embedder"
	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/pkg/types"
)

// DefaultCommonWeight is the share of results and score given to common knowledge
const DefaultCommonWeight = 0.3

// splitEpsilon absorbs float error so 10*0.3 splits as 7/3
const splitEpsilon = 1e-9

// Strategy names the retrieval path a query took
type Strategy string

const (
	StrategyCommonOnly  Strategy = "common_only"
	StrategyProjectOnly Strategy = "project_only"
	StrategyHybrid      Strategy = "hybrid"
)

// Querier runs a nearest-neighbour query against a single partition
type Querier interface {
	Query(ctx context.Context, p partition.Partition, vector []float32, topK int, documentID string) ([]types.SearchResult, error)
}

// Config holds engine defaults
type Config struct {
	CommonWeight float64
	Timeout      time.Duration // whole-operation budget, 0 disables
	Categories   []partition.Category
}

// ConfigFrom converts the application search settings
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		CommonWeight: cfg.Search.CommonWeight,
		Timeout:      cfg.QueryTimeout(),
	}
}

// HybridRequest asks for fused project and common results for a query vector
type HybridRequest struct {
	ProjectID  string
	Vector     []float32
	TopK       int
	DocumentID string // restricts the project side only

	// CommonWeight overrides the engine default when set
	CommonWeight *float64

	// Categories overrides the engine's common partitions when non-empty
	Categories []partition.Category
}

// SmartRequest asks for results for a natural-language query
type SmartRequest struct {
	ProjectID    string
	Query        string
	TopK         int
	DocumentID   string
	CommonWeight *float64
	Categories   []partition.Category

	// Vector is a precomputed query embedding. When empty the query is embedded.
	Vector []float32
}

// Response carries ranked results and how they were produced
type Response struct {
	Results  []types.SearchResult
	Strategy Strategy
	Intent   *types.QueryIntent // set by SmartQuery
	ProjectK int
	CommonK  int
	Duration time.Duration
}

// Engine answers hybrid and smart queries over the partition store
type Engine struct {
	querier    Querier
	embedder   embedder.Embedder
	classifier *classifier.Classifier

	commonWeight float64
	timeout      time.Duration
	categories   []partition.Category
}

// NewEngine creates an engine. A nil classifier uses the built-in vocabulary.
func NewEngine(q Querier, emb embedder.Embedder, cls *classifier.Classifier, cfg Config) (*Engine, error) {
	if q == nil {
		return nil, errors.New("querier is required")
	}
	if err := validateWeight(cfg.CommonWeight); err != nil {
		return nil, err
	}
	if cls == nil {
		cls = classifier.Default()
	}

	categories := cfg.Categories
	if len(categories) == 0 {
		categories = partition.Categories()
	}

	return &Engine{
		querier:      q,
		embedder:     emb,
		classifier:   cls,
		commonWeight: cfg.CommonWeight,
		timeout:      cfg.Timeout,
		categories:   categories,
	}, nil
}

// SplitTopK divides topK between the project and common partitions:
// projectK = ceil(topK*(1-w)), commonK = floor(topK*w), each at least 1
func SplitTopK(topK int, commonWeight float64) (projectK, commonK int) {
	projectK = int(math.Ceil(float64(topK)*(1-commonWeight) - splitEpsilon))
	commonK = int(math.Floor(float64(topK)*commonWeight + splitEpsilon))
	return max(projectK, 1), max(commonK, 1)
}

// HybridSearch queries the project partition and every common partition
// concurrently and fuses the results by weighted similarity. A failure on
// any partition fails the whole call.
func (e *Engine) HybridSearch(ctx context.Context, req HybridRequest) (*Response, error) {
	start := time.Now()

	project, err := partition.ForProject(req.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(req.Vector) == 0 {
		return nil, types.ValidationErrorf("query vector is empty")
	}
	weight, err := e.resolveWeight(req.CommonWeight)
	if err != nil {
		return nil, err
	}
	commons, err := e.commonPartitions(req.Categories)
	if err != nil {
		return nil, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	resp, err := e.hybrid(ctx, project, commons, req.Vector, resolveTopK(req.TopK), req.DocumentID, weight)
	if err != nil {
		return nil, err
	}
	resp.Duration = time.Since(start)
	return resp, nil
}

// SmartQuery embeds and classifies the query, then routes it: generic
// queries read only common partitions, project-specific queries read only
// the project partition, and ambiguous queries use HybridSearch fusion.
func (e *Engine) SmartQuery(ctx context.Context, req SmartRequest) (*Response, error) {
	return e.query(ctx, req, false)
}

// HybridQuery embeds the query and always fuses project and common results,
// whatever the classifier says
func (e *Engine) HybridQuery(ctx context.Context, req SmartRequest) (*Response, error) {
	return e.query(ctx, req, true)
}

// EmbedQuery returns the query embedding so callers running several
// strategies embed once
func (e *Engine) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be blank", types.ErrEmptyInput)
	}
	if e.embedder == nil {
		return nil, errors.New("embedder not initialized")
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	emb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return emb.Vector, nil
}

func (e *Engine) query(ctx context.Context, req SmartRequest, forceHybrid bool) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query cannot be blank", types.ErrEmptyInput)
	}
	project, err := partition.ForProject(req.ProjectID)
	if err != nil {
		return nil, err
	}
	weight, err := e.resolveWeight(req.CommonWeight)
	if err != nil {
		return nil, err
	}
	commons, err := e.commonPartitions(req.Categories)
	if err != nil {
		return nil, err
	}
	topK := resolveTopK(req.TopK)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	intent := e.classifier.Classify(req.Query)

	vector := req.Vector
	if len(vector) == 0 {
		if e.embedder == nil {
			return nil, errors.New("embedder not initialized")
		}
		emb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
		if err != nil {
			return nil, fmt.Errorf("failed to generate query embedding: %w", err)
		}
		vector = emb.Vector
	}

	var resp *Response
	switch {
	case forceHybrid:
		resp, err = e.hybrid(ctx, project, commons, vector, topK, req.DocumentID, weight)
	case intent.IsGeneric:
		resp, err = e.commonOnly(ctx, commons, vector, topK)
	case intent.IsProjectSpecific:
		resp, err = e.projectOnly(ctx, project, vector, topK, req.DocumentID)
	default:
		resp, err = e.hybrid(ctx, project, commons, vector, topK, req.DocumentID, weight)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("query routed to %s (generic=%v project=%v)", resp.Strategy, intent.GenericTerms, intent.ProjectTerms)

	resp.Intent = &intent
	resp.Duration = time.Since(start)
	return resp, nil
}

// Classify exposes the engine's query classifier
func (e *Engine) Classify(query string) types.QueryIntent {
	return e.classifier.Classify(query)
}

func (e *Engine) hybrid(ctx context.Context, project partition.Partition, commons []partition.Partition, vector []float32, topK int, documentID string, weight float64) (*Response, error) {
	projectK, commonK := SplitTopK(topK, weight)

	var projectResults []types.SearchResult
	commonResults := make([][]types.SearchResult, len(commons))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := e.querier.Query(gctx, project, vector, projectK, documentID)
		if err != nil {
			return fmt.Errorf("project partition %s: %w", project.Namespace, err)
		}
		projectResults = results
		return nil
	})
	for i, p := range commons {
		g.Go(func() error {
			results, err := e.querier.Query(gctx, p, vector, commonK, "")
			if err != nil {
				return fmt.Errorf("common partition %s: %w", p.Namespace, err)
			}
			commonResults[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common := mergeBySimilarity(commonResults, commonK)

	fused := make([]types.SearchResult, 0, len(projectResults)+len(common))
	fused = append(fused, weighted(projectResults, types.SourceProject, 1-weight)...)
	fused = append(fused, weighted(common, types.SourceCommon, weight)...)
	rankByAdjustedScore(fused)

	return &Response{
		Results:  fused,
		Strategy: StrategyHybrid,
		ProjectK: projectK,
		CommonK:  commonK,
	}, nil
}

func (e *Engine) commonOnly(ctx context.Context, commons []partition.Partition, vector []float32, topK int) (*Response, error) {
	perPartition := make([][]types.SearchResult, len(commons))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range commons {
		g.Go(func() error {
			results, err := e.querier.Query(gctx, p, vector, topK, "")
			if err != nil {
				return fmt.Errorf("common partition %s: %w", p.Namespace, err)
			}
			perPartition[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := weighted(mergeBySimilarity(perPartition, topK), types.SourceCommon, 1)
	rankByAdjustedScore(results)
	return &Response{Results: results, Strategy: StrategyCommonOnly, CommonK: topK}, nil
}

func (e *Engine) projectOnly(ctx context.Context, project partition.Partition, vector []float32, topK int, documentID string) (*Response, error) {
	results, err := e.querier.Query(ctx, project, vector, topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("project partition %s: %w", project.Namespace, err)
	}

	results = weighted(results, types.SourceProject, 1)
	rankByAdjustedScore(results)
	return &Response{Results: results, Strategy: StrategyProjectOnly, ProjectK: topK}, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) resolveWeight(override *float64) (float64, error) {
	if override == nil {
		return e.commonWeight, nil
	}
	if err := validateWeight(*override); err != nil {
		return 0, err
	}
	return *override, nil
}

func (e *Engine) commonPartitions(override []partition.Category) ([]partition.Partition, error) {
	categories := e.categories
	if len(override) > 0 {
		categories = override
	}
	return partition.CommonPartitions(categories...)
}

func validateWeight(w float64) error {
	if math.IsNaN(w) || w < 0 || w > 1 {
		return types.ValidationErrorf("commonWeight must be within [0, 1], got %v", w)
	}
	return nil
}

func resolveTopK(topK int) int {
	if topK <= 0 {
		return partition.DefaultTopK
	}
	return partition.ClampTopK(topK)
}

// weighted tags results with their source and scales similarity by weight
func weighted(results []types.SearchResult, source types.Source, weight float64) []types.SearchResult {
	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		r.Metadata = r.Metadata.Clone()
		r.Metadata.Source = source
		r.AdjustedScore = r.Similarity() * weight
		out[i] = r
	}
	return out
}

// mergeBySimilarity flattens per-partition lists and keeps the limit best
func mergeBySimilarity(lists [][]types.SearchResult, limit int) []types.SearchResult {
	var merged []types.SearchResult
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Distance != merged[j].Distance {
			return merged[i].Distance < merged[j].Distance
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// rankByAdjustedScore sorts descending with id as tie-breaker and assigns ranks
func rankByAdjustedScore(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].AdjustedScore != results[j].AdjustedScore {
			return results[i].AdjustedScore > results[j].AdjustedScore
		}
		return results[i].ID < results[j].ID
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
