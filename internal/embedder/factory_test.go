package embedder

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantErr      error
	}{
		{
			name:         "default is local",
			cfg:          Config{},
			wantProvider: ProviderLocal,
		},
		{
			name:         "http provider",
			cfg:          Config{Provider: "HTTP", BaseURL: "http://127.0.0.1:1"},
			wantProvider: ProviderHTTP,
		},
		{
			name:         "openai with key",
			cfg:          Config{Provider: ProviderOpenAI, APIKey: "k"},
			wantProvider: ProviderOpenAI,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: ProviderOpenAI},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "jina"},
			wantErr: ErrUnsupportedModel,
		},
		{
			name:    "unknown cache",
			cfg:     Config{CacheBackend: "memcached"},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = zerolog.Nop()
			emb, err := New(ctx, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer emb.Close()
			assert.Equal(t, tt.wantProvider, emb.Provider())
		})
	}
}

func TestNewCacheSelection(t *testing.T) {
	ctx := context.Background()

	emb, err := New(ctx, Config{CacheBackend: CacheNone, Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, isLocal := emb.(*LocalProvider)
	assert.True(t, isLocal)

	emb, err = New(ctx, Config{CacheBackend: CacheLRU, CacheSize: 5, Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, isCached := emb.(*cached)
	assert.True(t, isCached)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, Config{
		CacheBackend: CacheRedis,
		Redis:        RedisOptions{Addr: "127.0.0.1:1"},
		Logger:       zerolog.Nop(),
	})
	assert.Error(t, err)
}
