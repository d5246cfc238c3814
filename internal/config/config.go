// Package config loads ScopeIQ settings from defaults, an optional TOML file
// and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables
const (
	EnvConfigPath        = "SCOPEIQ_CONFIG"
	EnvDBPath            = "SCOPEIQ_DB_PATH"
	EnvEmbeddingProvider = "SCOPEIQ_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "SCOPEIQ_EMBEDDING_MODEL"
	EnvEmbeddingBaseURL  = "SCOPEIQ_EMBEDDING_BASE_URL"
	EnvCommonWeight      = "SCOPEIQ_COMMON_WEIGHT"
	EnvQueryTimeoutMs    = "SCOPEIQ_QUERY_TIMEOUT_MS"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvJinaAPIKey        = "JINA_API_KEY"
)

// Config is the full application configuration
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Ingest    IngestConfig    `toml:"ingest"`
	Search    SearchConfig    `toml:"search"`
	Verbose   bool            `toml:"verbose"`
}

// DatabaseConfig locates the vector store
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"` // openai, jina, local
	APIKey            string  `toml:"api_key"`
	Model             string  `toml:"model"`
	BaseURL           string  `toml:"base_url"`
	MaxInputChars     int     `toml:"max_input_chars"`
	CacheSize         int     `toml:"cache_size"` // 0 disables the cache
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutMs         int     `toml:"timeout_ms"`
}

// ChunkingConfig bounds chunk sizes
type ChunkingConfig struct {
	MaxChunkSize     int `toml:"max_chunk_size"`
	MinSectionLength int `toml:"min_section_length"`
}

// IngestConfig controls ingestion backpressure
type IngestConfig struct {
	BatchSize    int `toml:"batch_size"`
	BatchDelayMs int `toml:"batch_delay_ms"`
}

// SearchConfig holds retrieval defaults
type SearchConfig struct {
	CommonWeight    float64 `toml:"common_weight"`
	DefaultTopK     int     `toml:"default_top_k"`
	OverFetchFactor int     `toml:"over_fetch_factor"`
	QueryTimeoutMs  int     `toml:"query_timeout_ms"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.scopeiq/scopeiq.db",
		},
		Embedding: EmbeddingConfig{
			Provider:      "",
			MaxInputChars: 8000,
			TimeoutMs:     30000,
		},
		Chunking: ChunkingConfig{
			MaxChunkSize:     1000,
			MinSectionLength: 50,
		},
		Ingest: IngestConfig{
			BatchSize:    5,
			BatchDelayMs: 200,
		},
		Search: SearchConfig{
			CommonWeight:    0.3,
			DefaultTopK:     10,
			OverFetchFactor: 2,
			QueryTimeoutMs:  15000,
		},
	}
}

// Load reads configuration. An empty path falls back to $SCOPEIQ_CONFIG and
// then ~/.scopeiq/config.toml; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".scopeiq", "config.toml")
		}
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		c.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv(EnvEmbeddingBaseURL); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv(EnvCommonWeight); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCommonWeight, err)
		}
		c.Search.CommonWeight = w
	}
	if v := os.Getenv(EnvQueryTimeoutMs); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvQueryTimeoutMs, err)
		}
		c.Search.QueryTimeoutMs = ms
	}

	// The key follows the provider; an explicit key in the file wins.
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case "jina":
			c.Embedding.APIKey = os.Getenv(EnvJinaAPIKey)
		case "openai":
			c.Embedding.APIKey = os.Getenv(EnvOpenAIAPIKey)
		}
	}
	return nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	if c.Search.CommonWeight < 0 || c.Search.CommonWeight > 1 {
		return fmt.Errorf("search.common_weight must be within [0, 1], got %v", c.Search.CommonWeight)
	}
	if c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("chunking.max_chunk_size must be positive")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive")
	}
	if c.Search.OverFetchFactor < 1 {
		return fmt.Errorf("search.over_fetch_factor must be >= 1")
	}
	return nil
}

// DBPath returns the database path with ~ expanded
func (c *Config) DBPath() (string, error) {
	p := c.Database.Path
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p, nil
}

// BatchDelay returns the inter-batch ingestion delay
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Ingest.BatchDelayMs) * time.Millisecond
}

// QueryTimeout returns the whole-query deadline
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Search.QueryTimeoutMs) * time.Millisecond
}

// EmbeddingTimeout returns the per-request HTTP timeout
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutMs) * time.Millisecond
}
