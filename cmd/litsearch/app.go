package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/litsearch/internal/embedder"
	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/internal/storage"
)

// services holds the explicitly constructed collaborators of one command
type services struct {
	embedder embedder.Embedder
	index    storage.Index
}

// openServices builds the embedder first so the index learns its dimension
func openServices(ctx context.Context) (*services, error) {
	emb, err := embedder.New(ctx, cfg.EmbedderConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	storeCfg := cfg.StorageConfig()
	storeCfg.Dimension = emb.Dimension()
	if storeCfg.Backend == "" || storeCfg.Backend == storage.BackendSQLite {
		if storeCfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(storeCfg.Path), 0o755); err != nil {
				_ = emb.Close()
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	idx, err := storage.Open(ctx, storeCfg)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	logger.Debug().
		Str("backend", storeCfg.Backend).
		Str("provider", emb.Provider()).
		Str("model", emb.Model()).
		Int("dimension", emb.Dimension()).
		Msg("services ready")

	return &services{embedder: emb, index: idx}, nil
}

// newSearcher builds a searcher with the configured online fusion policy
func (s *services) newSearcher() (*searcher.Searcher, error) {
	policy, params, err := cfg.Search.Fusion.Parse()
	if err != nil {
		return nil, err
	}
	return searcher.New(s.index, s.embedder,
		searcher.WithFusion(policy, params),
		searcher.WithRetry(cfg.RetryPolicy()),
		searcher.WithCandidateDepth(max(cfg.Search.CandidateDepth, 1)),
		searcher.WithCacheSize(cfg.Search.CacheSize),
		searcher.WithCacheTTL(cfg.Search.CacheTTL),
		searcher.WithLogger(logger),
	)
}

// Close releases the index and the embedder
func (s *services) Close() error {
	return errors.Join(s.index.Close(), s.embedder.Close())
}
