package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/litsearch/internal/embedder"
	"github.com/dshills/litsearch/internal/fusion"
	"github.com/dshills/litsearch/internal/highlight"
	"github.com/dshills/litsearch/internal/retry"
	"github.com/dshills/litsearch/internal/storage"
	"github.com/dshills/litsearch/internal/tokenizer"
	"github.com/dshills/litsearch/pkg/types"
)

// Request limits
const (
	DefaultTopK      = 5
	MaxTopK          = 100
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Minute
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query    string
	TopK     int
	Policy   fusion.Policy // Empty uses the searcher's policy
	Params   *fusion.Params
	UseCache bool
	CacheTTL time.Duration // Zero uses the searcher's TTL
}

// Hit is one hydrated, highlighted search result
type Hit struct {
	Document   types.Document
	Rank       int
	Score      float64
	Highlights []types.HighlightSpan
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Hits          []Hit
	TotalResults  int
	Policy        fusion.Policy
	Duration      time.Duration
	CacheHit      bool
	DenseResults  int
	SparseResults int
}

// CompareResult holds highlights for both sides of a comparison
type CompareResult struct {
	UserHighlights  []types.HighlightSpan `json:"userHighlights"`
	PaperHighlights []types.HighlightSpan `json:"paperHighlights"`
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs the online path: embed, dense and sparse search, fuse,
// hydrate and highlight
type Searcher struct {
	index    storage.Index
	embedder embedder.Embedder
	aligner  *highlight.Aligner
	retry    retry.Policy
	policy   fusion.Policy
	params   fusion.Params
	depth    int
	cacheTTL time.Duration
	logger   zerolog.Logger

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// Option configures a Searcher
type Option func(*Searcher) error

// WithRetry sets the policy wrapping embed and search calls
func WithRetry(p retry.Policy) Option {
	return func(s *Searcher) error {
		s.retry = p
		return nil
	}
}

// WithFusion sets the default fusion policy and its parameters
func WithFusion(policy fusion.Policy, params fusion.Params) Option {
	return func(s *Searcher) error {
		if _, err := fusion.ParsePolicy(string(policy)); err != nil {
			return err
		}
		s.policy = policy
		s.params = params
		return nil
	}
}

// WithCandidateDepth sets how many candidates each sub-search returns, as a
// multiple of the requested top K
func WithCandidateDepth(factor int) Option {
	return func(s *Searcher) error {
		if factor < 1 {
			return fmt.Errorf("candidate depth must be >= 1, got %d", factor)
		}
		s.depth = factor
		return nil
	}
}

// WithCacheSize sets the result cache capacity
func WithCacheSize(size int) Option {
	return func(s *Searcher) error {
		cache, err := lru.New[[32]byte, *cacheEntry](size)
		if err != nil {
			return fmt.Errorf("failed to create LRU cache: %w", err)
		}
		s.cache = cache
		return nil
	}
}

// WithCacheTTL sets how long cached results stay valid. Another process can
// ingest into the same index, so a short TTL bounds how stale a hit can be.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive, got %s", ttl)
		}
		s.cacheTTL = ttl
		return nil
	}
}

// WithAligner replaces the default Unicode aligner
func WithAligner(a *highlight.Aligner) Option {
	return func(s *Searcher) error {
		s.aligner = a
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Searcher) error {
		s.logger = logger
		return nil
	}
}

// New creates a Searcher over an index and an embedder
func New(index storage.Index, emb embedder.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, fmt.Errorf("index not initialized")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}

	s := &Searcher{
		index:    index,
		embedder: emb,
		aligner:  highlight.NewAligner(tokenizer.NewUnicode()),
		retry:    retry.Default(),
		policy:   fusion.PolicyRRF,
		params:   fusion.Params{K: fusion.DefaultRRFConstant},
		depth:    1,
		cacheTTL: DefaultCacheTTL,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.cache == nil {
		if err := WithCacheSize(DefaultCacheSize)(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search performs a fused search and returns hydrated, highlighted hits
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	fused, dense, sparse, err := s.retrieve(ctx, req.Query, req.TopK, req.Policy, *req.Params)
	if err != nil {
		return nil, err
	}

	hits, err := s.hydrate(ctx, req.Query, fused)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Hits:          hits,
		TotalResults:  len(hits),
		Policy:        req.Policy,
		DenseResults:  dense,
		SparseResults: sparse,
		Duration:      time.Since(startTime),
	}

	s.logger.Debug().
		Str("policy", string(req.Policy)).
		Int("top_k", req.TopK).
		Int("dense", dense).
		Int("sparse", sparse).
		Int("hits", len(hits)).
		Dur("duration", response.Duration).
		Msg("search completed")

	if req.UseCache && len(hits) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// retrieve embeds the query, runs both sub-searches concurrently and fuses
// them with the sparse list as A and the dense list as B
func (s *Searcher) retrieve(ctx context.Context, query string, limit int, policy fusion.Policy, params fusion.Params) ([]types.FusedHit, int, int, error) {
	emb, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*embedder.Embedding, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	depth := limit * s.depth
	var dense, sparse []types.ScoredCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := retry.Do(gctx, s.retry, func(ctx context.Context) ([]types.ScoredCandidate, error) {
			res, err := s.index.SearchDense(ctx, emb.Dense, depth)
			if errors.Is(err, storage.ErrDimensionMismatch) {
				return nil, retry.Permanent(err)
			}
			return res, err
		})
		if err != nil {
			return fmt.Errorf("dense search failed: %w", err)
		}
		dense = res
		return nil
	})
	g.Go(func() error {
		res, err := retry.Do(gctx, s.retry, func(ctx context.Context) ([]types.ScoredCandidate, error) {
			return s.index.SearchSparse(ctx, emb.Sparse, depth)
		})
		if err != nil {
			return fmt.Errorf("sparse search failed: %w", err)
		}
		sparse = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}

	fused, err := fusion.Fuse(sparse, dense, policy, params, limit)
	if err != nil {
		return nil, 0, 0, err
	}
	return fused, len(dense), len(sparse), nil
}

// hydrate loads documents for fused hits and highlights their abstracts.
// Ids missing from the index are dropped.
func (s *Searcher) hydrate(ctx context.Context, query string, fused []types.FusedHit) ([]Hit, error) {
	if len(fused) == 0 {
		return []Hit{}, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	docs, err := s.index.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	hits := make([]Hit, 0, len(fused))
	abstracts := make([]string, 0, len(fused))
	for _, f := range fused {
		doc, ok := docs[f.ID]
		if !ok {
			s.logger.Warn().Str("id", f.ID).Msg("fused hit missing from index")
			continue
		}
		hits = append(hits, Hit{
			Document: doc,
			Rank:     len(hits) + 1,
			Score:    f.FusedScore,
		})
		abstracts = append(abstracts, doc.Abstract)
	}

	for i, spans := range s.aligner.AlignAll(query, abstracts) {
		hits[i].Highlights = spans
	}
	return hits, nil
}

// Compare highlights the shared tokens of a query and a paper text. User
// highlights index into the query; paper highlights index into paperText.
// An empty side yields empty highlights on both sides.
func (s *Searcher) Compare(query, paperText string) *CompareResult {
	return &CompareResult{
		UserHighlights:  s.aligner.Align(paperText, query),
		PaperHighlights: s.aligner.Align(query, paperText),
	}
}

// validateRequest ensures search request is valid and fills defaults
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return types.ErrEmptyQuery
	}

	if req.TopK == 0 {
		req.TopK = DefaultTopK
	}
	if req.TopK < 1 || req.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d, got %d", types.ErrInvalidLimit, MaxTopK, req.TopK)
	}

	if req.Policy == "" {
		req.Policy = s.policy
	}
	if _, err := fusion.ParsePolicy(string(req.Policy)); err != nil {
		return err
	}
	if req.Params == nil {
		p := s.params
		req.Params = &p
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = s.cacheTTL
	}
	return nil
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, true
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response; call after ingesting
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen reports the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Hits = make([]Hit, len(src.Hits))
	for i, h := range src.Hits {
		dst.Hits[i] = h
		dst.Hits[i].Document.Authors = append([]string(nil), h.Document.Authors...)
		dst.Hits[i].Highlights = append([]types.HighlightSpan(nil), h.Highlights...)
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Policy))
	fmt.Fprintf(&data, "|%d", req.TopK)
	if req.Params != nil {
		fmt.Fprintf(&data, "|%g|%g|%g", req.Params.K, req.Params.WeightA, req.Params.WeightB)
	}
	return sha256.Sum256([]byte(data.String()))
}

// RoundScore rounds a fused score to 4 decimals for presentation
func RoundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

// Close drops cached responses. The index and embedder belong to the caller.
func (s *Searcher) Close() error {
	s.InvalidateCache()
	return nil
}
