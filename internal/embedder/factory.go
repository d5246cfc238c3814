package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/scopeiq/internal/config"
)

// Config holds embedder configuration
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	MaxInputChars     int
	CacheSize         int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// ConfigFrom converts the application embedding settings
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Provider:          cfg.Embedding.Provider,
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		BaseURL:           cfg.Embedding.BaseURL,
		MaxInputChars:     cfg.Embedding.MaxInputChars,
		CacheSize:         cfg.Embedding.CacheSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.EmbeddingTimeout(),
	}
}

// New creates an embedder with explicit configuration. An empty provider is
// resolved with DetectProvider.
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderJina, ProviderOpenAI:
		burst := int(cfg.RequestsPerSecond)
		p, err := NewRemoteProvider(RemoteOptions{
			Provider:      provider,
			APIKey:        cfg.APIKey,
			Model:         cfg.Model,
			BaseURL:       cfg.BaseURL,
			MaxInputChars: cfg.MaxInputChars,
			Timeout:       cfg.Timeout,
			Cache:         cache,
			Limiter:       NewRateLimiter(cfg.RequestsPerSecond, burst),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderLocal:
		p, err := NewLocalProvider(cache)
		if err != nil {
			return nil, err
		}
		if cfg.MaxInputChars > 0 {
			p.maxInputChars = cfg.MaxInputChars
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider selected by the environment.
// Priority:
// 1. SCOPEIQ_EMBEDDING_PROVIDER (jina, openai, local)
// 2. Available API keys: JINA_API_KEY, then OPENAI_API_KEY
// 3. local
func DetectProvider() string {
	if provider := os.Getenv(config.EnvEmbeddingProvider); provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(config.EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(config.EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
