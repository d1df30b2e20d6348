package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/litsearch/internal/fusion"
	"github.com/dshills/litsearch/internal/storage"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "litsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "rrf", cfg.Search.Fusion.Policy)
	assert.Equal(t, 60.0, cfg.Search.Fusion.RRFK)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "weighted", cfg.Eval.Fusion.Policy)
	assert.Equal(t, 0.5, cfg.Eval.Fusion.WeightSparse)
	assert.Equal(t, 0.5, cfg.Eval.Fusion.WeightDense)
	assert.Equal(t, 4, cfg.Eval.MaxLevel)
	assert.Equal(t, 10, cfg.Eval.Limit)
	assert.Equal(t, 30, cfg.Ingest.BatchSize)
	assert.Equal(t, 50, cfg.Fetch.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Wait)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, storage.BackendSQLite, cfg.Index.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
search:
  top_k: 9
  fusion:
    policy: weighted
    weight_sparse: 0.7
    weight_dense: 1.0
fetch:
  wait: 2s
`)
	t.Setenv("LITSEARCH_EVAL_LIMIT", "20")
	t.Setenv("LITSEARCH_SEARCH_CACHE_TTL", "10s")
	t.Setenv("LITSEARCH_INDEX_BACKEND", "postgres")
	t.Setenv("LITSEARCH_SERVER_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Search.TopK)
	assert.Equal(t, "weighted", cfg.Search.Fusion.Policy)
	assert.Equal(t, 0.7, cfg.Search.Fusion.WeightSparse)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Wait)
	assert.Equal(t, 20, cfg.Eval.Limit)
	assert.Equal(t, 10*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, storage.BackendPostgres, cfg.Index.Backend)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)

	// Untouched keys keep their defaults
	assert.Equal(t, 4, cfg.Eval.MaxLevel)
	assert.Equal(t, 60.0, cfg.Search.Fusion.RRFK)
}

func TestNewViperMissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown search policy", func(c *Config) { c.Search.Fusion.Policy = "borda" }},
		{"unknown eval policy", func(c *Config) { c.Eval.Fusion.Policy = "" }},
		{"top_k out of range", func(c *Config) { c.Search.TopK = 101 }},
		{"max_level out of range", func(c *Config) { c.Eval.MaxLevel = 6 }},
		{"zero eval limit", func(c *Config) { c.Eval.Limit = 0 }},
		{"zero cache ttl", func(c *Config) { c.Search.CacheTTL = 0 }},
		{"unknown backend", func(c *Config) { c.Index.Backend = "mongo" }},
		{"zero dimension", func(c *Config) { c.Embedder.Dimension = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("unknown backend wraps sentinel", func(t *testing.T) {
		cfg := Default()
		cfg.Index.Backend = "mongo"
		assert.ErrorIs(t, cfg.Validate(), storage.ErrUnknownBackend)
	})
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().WriteYAML(&buf))
	assert.Contains(t, buf.String(), "policy: rrf")
	assert.Contains(t, buf.String(), "wait: 5s")

	path := writeConfig(t, buf.String())
	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConversions(t *testing.T) {
	cfg := Default()

	policy, params, err := cfg.Eval.Fusion.Parse()
	require.NoError(t, err)
	assert.Equal(t, fusion.PolicyWeighted, policy)
	assert.Equal(t, fusion.Params{K: 60, WeightA: 0.5, WeightB: 0.5}, params)

	rp := cfg.RetryPolicy()
	assert.Equal(t, cfg.Retry.MaxAttempts, rp.MaxAttempts)

	sc := cfg.StorageConfig()
	assert.Equal(t, cfg.Index.Path, sc.Path)
	assert.Equal(t, cfg.Embedder.Dimension, sc.Dimension)

	ec := cfg.EmbedderConfig(zerolog.Nop())
	assert.Equal(t, cfg.Embedder.Provider, ec.Provider)
	assert.Equal(t, cfg.Embedder.Cache.Redis.Addr, ec.Redis.Addr)
}
