// Package config loads litsearch settings from a YAML file, LITSEARCH_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/dshills/litsearch/internal/acquire"
	"github.com/dshills/litsearch/internal/api"
	"github.com/dshills/litsearch/internal/embedder"
	"github.com/dshills/litsearch/internal/eval"
	"github.com/dshills/litsearch/internal/fusion"
	"github.com/dshills/litsearch/internal/indexer"
	"github.com/dshills/litsearch/internal/retry"
	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/internal/storage"
)

// Lookup settings
const (
	EnvPrefix  = "LITSEARCH"
	ConfigName = "litsearch"
	ConfigType = "yaml"
)

// Config is the complete application configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Index    IndexConfig    `mapstructure:"index" yaml:"index"`
	Embedder EmbedderConfig `mapstructure:"embedder" yaml:"embedder"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Eval     EvalConfig     `mapstructure:"eval" yaml:"eval"`
	Ingest   IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
}

// LogConfig selects the log level and output format (json or console)
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// IndexConfig selects the storage backend
type IndexConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// EmbedderConfig selects the embedding provider and its cache
type EmbedderConfig struct {
	Provider  string      `mapstructure:"provider" yaml:"provider"`
	Model     string      `mapstructure:"model" yaml:"model"`
	BaseURL   string      `mapstructure:"base_url" yaml:"base_url"`
	APIKey    string      `mapstructure:"api_key" yaml:"api_key"`
	Region    string      `mapstructure:"region" yaml:"region"`
	Dimension int         `mapstructure:"dimension" yaml:"dimension"`
	Cache     CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// CacheConfig configures the embedding cache
type CacheConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Size    int         `mapstructure:"size" yaml:"size"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the shared Redis embedding cache
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// FusionConfig names a fusion policy and its parameters. The sparse list is
// A and the dense list is B.
type FusionConfig struct {
	Policy       string  `mapstructure:"policy" yaml:"policy"`
	RRFK         float64 `mapstructure:"rrf_k" yaml:"rrf_k"`
	WeightSparse float64 `mapstructure:"weight_sparse" yaml:"weight_sparse"`
	WeightDense  float64 `mapstructure:"weight_dense" yaml:"weight_dense"`
}

// SearchConfig configures online search
type SearchConfig struct {
	Fusion         FusionConfig  `mapstructure:"fusion" yaml:"fusion"`
	TopK           int           `mapstructure:"top_k" yaml:"top_k"`
	CandidateDepth int           `mapstructure:"candidate_depth" yaml:"candidate_depth"`
	CacheSize      int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// EvalConfig configures offline evaluation
type EvalConfig struct {
	Fusion      FusionConfig `mapstructure:"fusion" yaml:"fusion"`
	MaxLevel    int          `mapstructure:"max_level" yaml:"max_level"`
	Limit       int          `mapstructure:"limit" yaml:"limit"`
	Concurrency int          `mapstructure:"concurrency" yaml:"concurrency"`
	Format      string       `mapstructure:"format" yaml:"format"`
}

// IngestConfig configures corpus ingestion
type IngestConfig struct {
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	Workers   int `mapstructure:"workers" yaml:"workers"`
}

// FetchConfig configures the arXiv fetcher
type FetchConfig struct {
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	PageSize int           `mapstructure:"page_size" yaml:"page_size"`
	Wait     time.Duration `mapstructure:"wait" yaml:"wait"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// RetryConfig configures the retry policy at collaborator boundaries
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier  float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	rp := retry.Default()

	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Index: IndexConfig{
			Backend: storage.BackendSQLite,
			Path:    filepath.Join(home, ".litsearch", "litsearch.db"),
		},
		Embedder: EmbedderConfig{
			Provider:  embedder.ProviderLocal,
			Dimension: embedder.LocalDimension,
			Cache: CacheConfig{
				Backend: embedder.CacheLRU,
				Size:    embedder.DefaultCacheSize,
				Redis:   RedisConfig{Addr: "localhost:6379", TTL: 24 * time.Hour},
			},
		},
		Search: SearchConfig{
			Fusion: FusionConfig{
				Policy:       string(fusion.PolicyRRF),
				RRFK:         fusion.DefaultRRFConstant,
				WeightSparse: 0.5,
				WeightDense:  0.5,
			},
			TopK:           searcher.DefaultTopK,
			CandidateDepth: 1,
			CacheSize:      searcher.DefaultCacheSize,
			CacheTTL:       searcher.DefaultCacheTTL,
		},
		Eval: EvalConfig{
			Fusion: FusionConfig{
				Policy:       string(fusion.PolicyWeighted),
				RRFK:         fusion.DefaultRRFConstant,
				WeightSparse: 0.5,
				WeightDense:  0.5,
			},
			MaxLevel:    eval.DefaultMaxLevel,
			Limit:       eval.DefaultLimit,
			Concurrency: eval.DefaultConcurrency,
			Format:      eval.FormatYAML,
		},
		Ingest: IngestConfig{BatchSize: indexer.DefaultBatchSize},
		Fetch: FetchConfig{
			BaseURL:  acquire.DefaultBaseURL,
			PageSize: acquire.DefaultPageSize,
			Wait:     acquire.DefaultWait,
			Timeout:  acquire.DefaultTimeout,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{api.DefaultAllowedOrigin},
		},
		Retry: RetryConfig{
			MaxAttempts: rp.MaxAttempts,
			BaseDelay:   rp.BaseDelay,
			MaxDelay:    rp.MaxDelay,
			Multiplier:  rp.Multiplier,
		},
	}
}

// SetDefaults registers every default with v so environment variables can
// override keys that appear in no config file
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("index.backend", d.Index.Backend)
	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("index.dsn", d.Index.DSN)

	v.SetDefault("embedder.provider", d.Embedder.Provider)
	v.SetDefault("embedder.model", d.Embedder.Model)
	v.SetDefault("embedder.base_url", d.Embedder.BaseURL)
	v.SetDefault("embedder.api_key", d.Embedder.APIKey)
	v.SetDefault("embedder.region", d.Embedder.Region)
	v.SetDefault("embedder.dimension", d.Embedder.Dimension)
	v.SetDefault("embedder.cache.backend", d.Embedder.Cache.Backend)
	v.SetDefault("embedder.cache.size", d.Embedder.Cache.Size)
	v.SetDefault("embedder.cache.redis.addr", d.Embedder.Cache.Redis.Addr)
	v.SetDefault("embedder.cache.redis.password", d.Embedder.Cache.Redis.Password)
	v.SetDefault("embedder.cache.redis.db", d.Embedder.Cache.Redis.DB)
	v.SetDefault("embedder.cache.redis.ttl", d.Embedder.Cache.Redis.TTL)

	setFusionDefaults(v, "search.fusion", d.Search.Fusion)
	v.SetDefault("search.top_k", d.Search.TopK)
	v.SetDefault("search.candidate_depth", d.Search.CandidateDepth)
	v.SetDefault("search.cache_size", d.Search.CacheSize)
	v.SetDefault("search.cache_ttl", d.Search.CacheTTL)

	setFusionDefaults(v, "eval.fusion", d.Eval.Fusion)
	v.SetDefault("eval.max_level", d.Eval.MaxLevel)
	v.SetDefault("eval.limit", d.Eval.Limit)
	v.SetDefault("eval.concurrency", d.Eval.Concurrency)
	v.SetDefault("eval.format", d.Eval.Format)

	v.SetDefault("ingest.batch_size", d.Ingest.BatchSize)
	v.SetDefault("ingest.workers", d.Ingest.Workers)

	v.SetDefault("fetch.base_url", d.Fetch.BaseURL)
	v.SetDefault("fetch.page_size", d.Fetch.PageSize)
	v.SetDefault("fetch.wait", d.Fetch.Wait)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
}

func setFusionDefaults(v *viper.Viper, prefix string, f FusionConfig) {
	v.SetDefault(prefix+".policy", f.Policy)
	v.SetDefault(prefix+".rrf_k", f.RRFK)
	v.SetDefault(prefix+".weight_sparse", f.WeightSparse)
	v.SetDefault(prefix+".weight_dense", f.WeightDense)
}

// NewViper prepares a viper instance: .env is loaded into the process
// environment, then cfgFile is used if set, else ./litsearch.yaml or
// ~/.config/litsearch/litsearch.yaml. A missing config file is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigType)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals v into a validated Config
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	if _, err := fusion.ParsePolicy(c.Search.Fusion.Policy); err != nil {
		return fmt.Errorf("search.fusion.policy: %w", err)
	}
	if _, err := fusion.ParsePolicy(c.Eval.Fusion.Policy); err != nil {
		return fmt.Errorf("eval.fusion.policy: %w", err)
	}
	if c.Search.TopK < 1 || c.Search.TopK > searcher.MaxTopK {
		return fmt.Errorf("search.top_k must be between 1 and %d, got %d", searcher.MaxTopK, c.Search.TopK)
	}
	if c.Search.CacheTTL <= 0 {
		return fmt.Errorf("search.cache_ttl must be positive, got %s", c.Search.CacheTTL)
	}
	if c.Eval.MaxLevel < eval.MinLevel || c.Eval.MaxLevel > eval.MaxLevel {
		return fmt.Errorf("eval.max_level must be between %d and %d, got %d", eval.MinLevel, eval.MaxLevel, c.Eval.MaxLevel)
	}
	if c.Eval.Limit < 1 {
		return fmt.Errorf("eval.limit must be >= 1, got %d", c.Eval.Limit)
	}
	switch strings.ToLower(c.Index.Backend) {
	case storage.BackendSQLite, storage.BackendPostgres:
	default:
		return fmt.Errorf("index.backend: %w: %s", storage.ErrUnknownBackend, c.Index.Backend)
	}
	if c.Embedder.Dimension < 1 {
		return fmt.Errorf("embedder.dimension must be >= 1, got %d", c.Embedder.Dimension)
	}
	return nil
}

// WriteYAML writes the configuration as YAML
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Parse returns the parsed policy and its parameters
func (f FusionConfig) Parse() (fusion.Policy, fusion.Params, error) {
	p, err := fusion.ParsePolicy(f.Policy)
	if err != nil {
		return "", fusion.Params{}, err
	}
	return p, fusion.Params{K: f.RRFK, WeightA: f.WeightSparse, WeightB: f.WeightDense}, nil
}

// RetryPolicy converts the retry settings
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
		Multiplier:  c.Retry.Multiplier,
	}
}

// StorageConfig converts the index settings
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:   c.Index.Backend,
		Path:      c.Index.Path,
		DSN:       c.Index.DSN,
		Dimension: c.Embedder.Dimension,
	}
}

// EmbedderConfig converts the embedder settings
func (c *Config) EmbedderConfig(logger zerolog.Logger) embedder.Config {
	e := c.Embedder
	return embedder.Config{
		Provider:     e.Provider,
		Model:        e.Model,
		BaseURL:      e.BaseURL,
		APIKey:       e.APIKey,
		Region:       e.Region,
		Dimension:    e.Dimension,
		CacheBackend: e.Cache.Backend,
		CacheSize:    e.Cache.Size,
		Redis: embedder.RedisOptions{
			Addr:     e.Cache.Redis.Addr,
			Password: e.Cache.Redis.Password,
			DB:       e.Cache.Redis.DB,
			TTL:      e.Cache.Redis.TTL,
		},
		Retry:  c.RetryPolicy(),
		Logger: logger,
	}
}
