package main

import (
	"errors"
	"fmt"

	"github.com/dshills/scopeiq/internal/chunker"
	"github.com/dshills/scopeiq/internal/classifier"
	"github.com/dshills/scopeiq/internal/config"
	"github.com/dshills/scopeiq/internal/domainsearch"
	"github.com/dshills/scopeiq/internal/embedder"
	"github.com/dshills/scopeiq/internal/indexer"
	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/internal/searcher"
	"github.com/dshills/scopeiq/internal/storage"
)

// components is the wired application. Close releases the embedder and store.
type components struct {
	cfg        *config.Config
	store      *storage.SQLiteStore
	embedder   embedder.Embedder
	router     *partition.Router
	classifier *classifier.Classifier
	indexer    *indexer.Indexer
	engine     *searcher.Engine
	domain     *domainsearch.Searcher
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}
	return cfg, nil
}

func openComponents(opts *rootOptions) (*components, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened store %s (driver %s)", dbPath, storage.DriverName)

	emb, err := embedder.New(embedder.ConfigFrom(cfg))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	logger.Debug("embedding provider %s, model %s, dimension %d", emb.Provider(), emb.Model(), emb.Dimension())

	router := partition.NewRouter(store)
	cls := classifier.Default()

	engine, err := searcher.NewEngine(router, emb, cls, searcher.ConfigFrom(cfg))
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, err
	}

	ch := chunker.New(
		chunker.WithMaxChunkSize(cfg.Chunking.MaxChunkSize),
		chunker.WithMinSectionLength(cfg.Chunking.MinSectionLength),
	)

	return &components{
		cfg:        cfg,
		store:      store,
		embedder:   emb,
		router:     router,
		classifier: cls,
		indexer:    indexer.New(ch, emb, router, indexer.ConfigFrom(cfg)),
		engine:     engine,
		domain:     domainsearch.New(engine, domainsearch.ConfigFrom(cfg)),
	}, nil
}

func (c *components) Close() error {
	return errors.Join(c.embedder.Close(), c.store.Close())
}
