package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/litsearch/pkg/types"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding holds the dense and sparse representation of one text
type Embedding struct {
	Dense    []float32          `json:"dense"`
	Sparse   types.SparseVector `json:"sparse"`
	Provider string             `json:"provider"`
	Model    string             `json:"model"`
	Hash     string             `json:"hash"` // Content hash for caching
}

// Dimension returns the dense vector length
func (e *Embedding) Dimension() int {
	return len(e.Dense)
}

// Clone returns a deep copy
func (e *Embedding) Clone() *Embedding {
	dense := make([]float32, len(e.Dense))
	copy(dense, e.Dense)

	sparse := make(types.SparseVector, len(e.Sparse))
	for k, v := range e.Sparse {
		sparse[k] = v
	}

	return &Embedding{
		Dense:    dense,
		Sparse:   sparse,
		Provider: e.Provider,
		Model:    e.Model,
		Hash:     e.Hash,
	}
}

// Embedder turns text into dense and sparse vectors
type Embedder interface {
	// Embed generates the embedding for a single text
	Embed(ctx context.Context, text string) (*Embedding, error)

	// EmbedBatch generates embeddings for several texts, in input order
	EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error)

	// Dimension returns the dense embedding dimension
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// Cache stores embeddings by content hash
type Cache interface {
	Get(ctx context.Context, hash string) (*Embedding, bool)
	Set(ctx context.Context, hash string, emb *Embedding)
	Close() error
}

// LRUCache provides in-memory LRU caching of embeddings
type LRUCache struct {
	cache *lru.Cache[string, *Embedding]
}

// DefaultCacheSize is the number of embeddings kept by the LRU cache
const DefaultCacheSize = 10000

// NewLRUCache creates an embedding cache with LRU eviction
func NewLRUCache(maxLen int) *LRUCache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](DefaultCacheSize)
	}
	return &LRUCache{cache: cache}
}

// Get returns a copy of the cached embedding so callers cannot mutate it
func (c *LRUCache) Get(_ context.Context, hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	return emb.Clone(), true
}

// Set stores an embedding with automatic LRU eviction
func (c *LRUCache) Set(_ context.Context, hash string, emb *Embedding) {
	c.cache.Add(hash, emb.Clone())
}

// Size returns the current cache size
func (c *LRUCache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *LRUCache) Clear() {
	c.cache.Purge()
}

// Close is a no-op for the in-memory cache
func (c *LRUCache) Close() error {
	return nil
}

// ComputeHash computes the SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateText validates a single embedding input
func ValidateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatch validates a batch embedding input
func ValidateBatch(texts []string, maxBatch int) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	if maxBatch > 0 && len(texts) > maxBatch {
		return fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, maxBatch)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrEmptyText, i)
		}
	}
	return nil
}

// cached wraps an Embedder with a Cache keyed by content hash
type cached struct {
	Embedder
	cache Cache
}

// WithCache returns an Embedder that consults cache before calling e
func WithCache(e Embedder, cache Cache) Embedder {
	if cache == nil {
		return e
	}
	return &cached{Embedder: e, cache: cache}
}

func (c *cached) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if emb, ok := c.cache.Get(ctx, hash); ok {
		return emb, nil
	}

	emb, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	emb.Hash = hash
	c.cache.Set(ctx, hash, emb)
	return emb, nil
}

// EmbedBatch only sends cache misses to the wrapped embedder
func (c *cached) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts, 0); err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(texts))
	hashes := make([]string, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		hashes[i] = ComputeHash(text)
		if emb, ok := c.cache.Get(ctx, hashes[i]); ok {
			out[i] = emb
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	embs, err := c.Embedder.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(embs), len(missTexts))
	}

	for j, emb := range embs {
		i := missIdx[j]
		emb.Hash = hashes[i]
		c.cache.Set(ctx, hashes[i], emb)
		out[i] = emb
	}
	return out, nil
}

func (c *cached) Close() error {
	return errors.Join(c.Embedder.Close(), c.cache.Close())
}
