package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dshills/scopeiq/internal/config"
	"github.com/dshills/scopeiq/pkg/types"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// DefaultMaxInputChars is the longest input sent upstream
	DefaultMaxInputChars = 8000

	// Batch limits
	MaxBatchSize = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Preset describes a hosted embedding API speaking the
// POST {model, input} -> {data: [{embedding}]} contract
type Preset struct {
	Name      string
	BaseURL   string
	Model     string
	Dimension int
	APIKeyEnv string
}

var presets = map[string]Preset{
	ProviderOpenAI: {
		Name:      ProviderOpenAI,
		BaseURL:   "https://api.openai.com/v1",
		Model:     DefaultOpenAIModel,
		Dimension: OpenAIDimension,
		APIKeyEnv: config.EnvOpenAIAPIKey,
	},
	ProviderJina: {
		Name:      ProviderJina,
		BaseURL:   "https://api.jina.ai/v1",
		Model:     DefaultJinaModel,
		Dimension: JinaDimension,
		APIKeyEnv: config.EnvJinaAPIKey,
	},
}

// RemoteOptions configures a RemoteProvider. Zero values take the preset defaults.
type RemoteOptions struct {
	Provider      string
	APIKey        string
	Model         string
	BaseURL       string
	MaxInputChars int
	Timeout       time.Duration
	Cache         *Cache
	Limiter       *RateLimiter
	Retry         *RetryConfig
	HTTPClient    *http.Client
}

// RemoteProvider implements Embedder against a hosted embedding API
type RemoteProvider struct {
	name          string
	endpoint      string
	apiKey        string
	model         string
	dimension     int
	maxInputChars int
	httpClient    *http.Client
	cache         *Cache
	limiter       *RateLimiter
	retry         RetryConfig
}

// NewRemoteProvider creates a hosted-API embedder. A missing credential is
// reported as types.ErrAuth before any request is made.
func NewRemoteProvider(opts RemoteOptions) (*RemoteProvider, error) {
	preset, ok := presets[strings.ToLower(opts.Provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, opts.Provider)
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(preset.APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", types.ErrAuth, preset.APIKeyEnv)
	}

	p := &RemoteProvider{
		name:          preset.Name,
		endpoint:      strings.TrimRight(preset.BaseURL, "/") + "/embeddings",
		apiKey:        apiKey,
		model:         preset.Model,
		dimension:     preset.Dimension,
		maxInputChars: DefaultMaxInputChars,
		httpClient:    opts.HTTPClient,
		cache:         opts.Cache,
		limiter:       opts.Limiter,
		retry:         DefaultRetryConfig(),
	}

	if opts.BaseURL != "" {
		p.endpoint = strings.TrimRight(opts.BaseURL, "/") + "/embeddings"
	}
	if opts.Model != "" {
		p.model = opts.Model
	}
	if opts.MaxInputChars > 0 {
		p.maxInputChars = opts.MaxInputChars
	}
	if opts.Retry != nil {
		p.retry = *opts.Retry
	}
	if p.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		p.httpClient = &http.Client{Timeout: timeout}
	}

	return p, nil
}

func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, &types.UpstreamError{Service: p.name, Message: "no embeddings returned", Err: types.ErrUpstream}
	}

	return resp.Embeddings[0], nil
}

func (p *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	texts := make([]string, len(req.Texts))
	truncated := make([]bool, len(req.Texts))
	for i, text := range req.Texts {
		texts[i], truncated[i] = truncate(p.name, text, p.maxInputChars)
	}

	embeddings := make([]*Embedding, len(texts))
	var missing []int
	for i, text := range texts {
		if emb, ok := p.cache.Get(cacheKey(model, text)); ok {
			embeddings[i] = emb
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		pending := make([]string, len(missing))
		for j, i := range missing {
			pending[j] = texts[i]
		}

		fetched, err := retryWithBackoff(ctx, p.retry, types.IsRetryable, func() ([]*Embedding, error) {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			embs, err := p.callAPI(ctx, pending, model)
			var upErr *types.UpstreamError
			if errors.As(err, &upErr) && errors.Is(err, types.ErrRateLimited) {
				p.limiter.RecordRateLimitError(upErr.RetryAfter)
			}
			return embs, err
		})
		if err != nil {
			return nil, fmt.Errorf("%s embeddings: %w", p.name, err)
		}

		for j, i := range missing {
			emb := fetched[j]
			emb.Hash = ComputeHash(texts[i])
			embeddings[i] = emb
			p.cache.Set(cacheKey(model, texts[i]), emb)
		}
	}

	for i := range embeddings {
		embeddings[i].Truncated = truncated[i]
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *RemoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &types.UpstreamError{Service: p.name, Message: err.Error(), Err: types.ErrUpstream}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(p.name, resp, bodyBytes)
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &types.UpstreamError{Service: p.name, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error(), Err: types.ErrUpstream}
	}
	if len(apiResp.Data) != len(texts) {
		return nil, &types.UpstreamError{
			Service:    p.name,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(apiResp.Data)),
			Err:        types.ErrUpstream,
		}
	}

	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	respModel := apiResp.Model
	if respModel == "" {
		respModel = model
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		if len(data.Embedding) == 0 {
			return nil, &types.UpstreamError{Service: p.name, StatusCode: resp.StatusCode, Message: "empty embedding vector", Err: types.ErrUpstream}
		}
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     respModel,
		}
	}

	return embeddings, nil
}

// statusError maps a non-2xx response onto the error taxonomy
func statusError(service string, resp *http.Response, body []byte) error {
	upErr := &types.UpstreamError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		upErr.Err = types.ErrAuth
	case http.StatusTooManyRequests:
		upErr.Err = types.ErrRateLimited
		upErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case http.StatusBadRequest:
		upErr.Err = types.ErrValidation
	default:
		upErr.Err = types.ErrUpstream
	}
	return upErr
}

// parseRetryAfter accepts delta-seconds or an HTTP date
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func (p *RemoteProvider) Dimension() int {
	return p.dimension
}

func (p *RemoteProvider) Provider() string {
	return p.name
}

func (p *RemoteProvider) Model() string {
	return p.model
}

func (p *RemoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic feature-hashed vectors. It needs no
// network access and keeps lexical overlap meaningful under cosine distance,
// which makes it suitable for offline use and tests.
type LocalProvider struct {
	model         string
	dimension     int
	maxInputChars int
	cache         *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model:         "local-hashing",
		dimension:     LocalDimension,
		maxInputChars: DefaultMaxInputChars,
		cache:         cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, truncated := truncate(ProviderLocal, req.Text, l.maxInputChars)

	key := cacheKey(l.model, text)
	if emb, ok := l.cache.Get(key); ok {
		emb.Truncated = truncated
		return emb, nil
	}

	emb := &Embedding{
		Vector:    hashVector(text, l.dimension),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      ComputeHash(text),
		Truncated: truncated,
	}
	l.cache.Set(key, emb)

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashVector maps lowercase tokens into signed buckets and normalizes
func hashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		tokens = []string{text}
	}

	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := int(sum % uint64(dim))
		if sum&(1<<63) != 0 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}

	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
