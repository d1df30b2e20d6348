package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/internal/retry"
)

// Cache backends
const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // local, http, openai, bedrock
	Model     string
	BaseURL   string // http and openai providers
	APIKey    string // openai
	Region    string // bedrock
	Dimension int

	CacheBackend string // none, lru, redis
	CacheSize    int
	Redis        RedisOptions

	Retry  retry.Policy
	Logger zerolog.Logger
}

// New creates an embedder with explicit configuration, wrapped in the
// configured cache
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		emb Embedder
		err error
	)

	switch strings.ToLower(cfg.Provider) {
	case ProviderLocal, "":
		emb = NewLocalProvider(cfg.Dimension)
	case ProviderHTTP:
		emb = NewHTTPProvider(cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.Retry)
	case ProviderOpenAI:
		emb, err = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Retry)
	case ProviderBedrock:
		emb, err = NewBedrockProvider(ctx, cfg.Region, cfg.Model, cfg.Dimension, cfg.Retry)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	cache, err := newCache(ctx, cfg, emb)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}

	cfg.Logger.Debug().
		Str("provider", emb.Provider()).
		Str("model", emb.Model()).
		Int("dimension", emb.Dimension()).
		Str("cache", cfg.CacheBackend).
		Msg("embedder ready")

	return WithCache(emb, cache), nil
}

func newCache(ctx context.Context, cfg Config, emb Embedder) (Cache, error) {
	switch strings.ToLower(cfg.CacheBackend) {
	case CacheNone:
		return nil, nil
	case CacheLRU, "":
		if cfg.CacheSize < 0 {
			return nil, nil
		}
		return NewLRUCache(cfg.CacheSize), nil
	case CacheRedis:
		opts := cfg.Redis
		if opts.Prefix == "" {
			opts.Prefix = fmt.Sprintf("litsearch:emb:%s:%s:", emb.Provider(), emb.Model())
		}
		return NewRedisCache(ctx, opts, cfg.Logger)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %s", ErrInvalidInput, cfg.CacheBackend)
	}
}
