package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopeiq/internal/config"
	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/pkg/types"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingServer answers every input with a small vector whose first
// component is the input length
func embeddingServer(t *testing.T, calls *atomic.Int32, got *embedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if got != nil {
			*got = req
		}

		data := make([]map[string]interface{}, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]interface{}{
				"index":     i,
				"embedding": []float32{float32(len(in)), 1, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": req.Model, "data": data})
	}))
	t.Cleanup(server.Close)
	return server
}

func statusServer(t *testing.T, calls *atomic.Int32, status int, header map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func newTestProvider(t *testing.T, url string, mutate ...func(*RemoteOptions)) *RemoteProvider {
	t.Helper()
	opts := RemoteOptions{
		Provider: ProviderOpenAI,
		APIKey:   "test-key",
		BaseURL:  url,
		Retry:    fastRetry(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	p, err := NewRemoteProvider(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestRemoteProvider_GenerateEmbedding(t *testing.T) {
	var calls atomic.Int32
	var got embedRequest
	server := embeddingServer(t, &calls, &got)
	p := newTestProvider(t, server.URL)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "door schedule"})
	require.NoError(t, err)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, []string{"door schedule"}, got.Input)
	assert.Equal(t, []float32{13, 1, 0}, emb.Vector)
	assert.Equal(t, 3, emb.Dimension)
	assert.Equal(t, ProviderOpenAI, emb.Provider)
	assert.Equal(t, ComputeHash("door schedule"), emb.Hash)
	assert.False(t, emb.Truncated)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteProvider_BatchKeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// indices deliberately reversed
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{2}},
				{"index": 0, "embedding": []float32{1}},
			},
		})
	}))
	defer server.Close()
	p := newTestProvider(t, server.URL)

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{1}, resp.Embeddings[0].Vector)
	assert.Equal(t, []float32{2}, resp.Embeddings[1].Vector)
	assert.Equal(t, DefaultOpenAIModel, resp.Embeddings[0].Model)
}

func TestRemoteProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
		wantClass types.ErrorClass
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrAuth, 1, types.ClassConfiguration},
		{"forbidden", http.StatusForbidden, types.ErrAuth, 1, types.ClassConfiguration},
		{"bad request", http.StatusBadRequest, types.ErrValidation, 1, types.ClassPermanent},
		{"server error", http.StatusInternalServerError, types.ErrUpstream, 1, types.ClassPermanent},
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited, 3, types.ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := statusServer(t, &calls, tt.status, nil)
			p := newTestProvider(t, server.URL)

			_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, tt.wantClass, types.Classify(err))

			var upErr *types.UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.status, upErr.StatusCode)
			assert.Equal(t, ProviderOpenAI, upErr.Service)
		})
	}
}

func TestRemoteProvider_RateLimitThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"index": 0, "embedding": []float32{0.5, 0.5}}},
		})
	}))
	defer server.Close()
	p := newTestProvider(t, server.URL)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "retry me"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, emb.Vector)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteProvider_RetryAfterCaptured(t *testing.T) {
	var calls atomic.Int32
	server := statusServer(t, &calls, http.StatusTooManyRequests, map[string]string{"Retry-After": "2"})
	p := newTestProvider(t, server.URL)

	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	var upErr *types.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 2*time.Second, upErr.RetryAfter)
	assert.True(t, types.IsRetryable(err))
}

func TestRemoteProvider_MalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":       `{"data": [`,
		"count mismatch": `{"data": []}`,
		"empty vector":   `{"data": [{"index": 0, "embedding": []}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()
			p := newTestProvider(t, server.URL)

			_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
			assert.ErrorIs(t, err, types.ErrUpstream)
		})
	}
}

func TestRemoteProvider_BlankInputNeverSent(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, nil)
	p := newTestProvider(t, server.URL)

	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "  \n\t"})
	assert.ErrorIs(t, err, types.ErrEmptyInput)

	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"ok", ""}})
	assert.ErrorIs(t, err, types.ErrEmptyInput)

	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, types.ErrValidation)

	assert.Zero(t, calls.Load())
}

func TestRemoteProvider_TruncatesAndLogs(t *testing.T) {
	buf := new(bytes.Buffer)
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	var calls atomic.Int32
	var got embedRequest
	server := embeddingServer(t, &calls, &got)
	p := newTestProvider(t, server.URL, func(o *RemoteOptions) { o.MaxInputChars = 10 })

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "0123456789abcdef"})
	require.NoError(t, err)
	assert.True(t, emb.Truncated)
	assert.Equal(t, []string{"0123456789"}, got.Input)
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "truncated from 16 to 10")
}

func TestRemoteProvider_Cache(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, nil)
	cache := NewCache(10)
	p := newTestProvider(t, server.URL, func(o *RemoteOptions) { o.Cache = cache })

	ctx := context.Background()
	first, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "cached text"})
	require.NoError(t, err)

	// mutating a returned vector must not affect the cache
	first.Vector[0] = -1

	second, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "cached text"})
	require.NoError(t, err)
	assert.Equal(t, float32(11), second.Vector[0])
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Size())

	// a batch only sends what is missing
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"cached text", "new"}})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteProvider_ContextCanceled(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, nil)
	p := newTestProvider(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteProvider_WithLimiter(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, nil)
	p := newTestProvider(t, server.URL, func(o *RemoteOptions) { o.Limiter = NewRateLimiter(1000, 10) })

	for i := 0; i < 3; i++ {
		_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewRemoteProvider(t *testing.T) {
	t.Setenv(config.EnvOpenAIAPIKey, "")
	t.Setenv(config.EnvJinaAPIKey, "")

	_, err := NewRemoteProvider(RemoteOptions{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, types.ErrAuth)
	assert.Equal(t, types.ClassConfiguration, types.Classify(err))

	_, err = NewRemoteProvider(RemoteOptions{Provider: "cohere", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	t.Setenv(config.EnvJinaAPIKey, "env-key")
	p, err := NewRemoteProvider(RemoteOptions{Provider: ProviderJina})
	require.NoError(t, err)
	assert.Equal(t, ProviderJina, p.Provider())
	assert.Equal(t, DefaultJinaModel, p.Model())
	assert.Equal(t, JinaDimension, p.Dimension())
	assert.Equal(t, "https://api.jina.ai/v1/embeddings", p.endpoint)

	p, err = NewRemoteProvider(RemoteOptions{
		Provider: ProviderOpenAI,
		APIKey:   "k",
		BaseURL:  "http://localhost:8080/v1/",
		Model:    "nomic-embed-text",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1/embeddings", p.endpoint)
	assert.Equal(t, "nomic-embed-text", p.Model())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := parseRetryAfter(future)
	assert.Greater(t, d, 30*time.Second)
}
