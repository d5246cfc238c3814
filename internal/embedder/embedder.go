package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/pkg/types"
)

// Common errors
var (
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrBatchTooLarge       = errors.New("batch size exceeds limit")
)

// Embedding represents a vector embedding with metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // hash of the text actually sent
	Truncated bool
}

// EmbeddingRequest represents a request to generate one embedding
type EmbeddingRequest struct {
	Text  string
	Model string // Optional: override default model
}

// BatchEmbeddingRequest represents a batch request
type BatchEmbeddingRequest struct {
	Texts []string
	Model string // Optional: override default model
}

// BatchEmbeddingResponse represents a batch response
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder generates embeddings for text
type Embedder interface {
	// GenerateEmbedding generates a single embedding for the given text
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch generates embeddings for multiple texts in one call
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a new embedding cache. A non-positive size returns nil,
// which every provider treats as "no cache".
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		return nil
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		return nil
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached embedding
func (c *Cache) Get(key string) (*Embedding, bool) {
	if c == nil {
		return nil, false
	}
	emb, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cloneEmbedding(emb), true
}

// Set stores a copy of an embedding
func (c *Cache) Set(key string, emb *Embedding) {
	if c == nil || emb == nil {
		return
	}
	c.cache.Add(key, cloneEmbedding(emb))
}

// Size returns the current cache size
func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	if c != nil {
		c.cache.Purge()
	}
}

func cloneEmbedding(emb *Embedding) *Embedding {
	out := *emb
	out.Vector = make([]float32, len(emb.Vector))
	copy(out.Vector, emb.Vector)
	return &out
}

// ComputeHash computes the SHA-256 hash of text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func cacheKey(model, text string) string {
	return ComputeHash(model + "\x00" + text)
}

// ValidateRequest validates an embedding request
func ValidateRequest(req EmbeddingRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text cannot be blank", types.ErrEmptyInput)
	}
	return nil
}

// ValidateBatchRequest validates a batch embedding request
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return types.ValidationErrorf("no texts provided")
	}
	if len(req.Texts) > MaxBatchSize {
		return fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text at index %d is blank", types.ErrEmptyInput, i)
		}
	}
	return nil
}

// truncate cuts text to maxChars runes. Truncation reduces recall for the
// dropped tail, so it is always logged.
func truncate(provider, text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}

	runes := []rune(text)
	logger.Warn("%s: input truncated from %d to %d characters", provider, len(runes), maxChars)
	return string(runes[:maxChars]), true
}
