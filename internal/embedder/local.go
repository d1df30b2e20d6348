package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"unicode"

	"github.com/dshills/litsearch/internal/tokenizer"
	"github.com/dshills/litsearch/pkg/types"
)

// SparseEncoder derives lexical term weights from token counts. Term ids are
// hashed into a vocabulary of SparseDim entries.
type SparseEncoder struct {
	tokenizer tokenizer.Tokenizer
	dim       uint32
}

// NewSparseEncoder creates an encoder with a lower-casing tokenizer
func NewSparseEncoder() *SparseEncoder {
	return &SparseEncoder{
		tokenizer: tokenizer.NewUnicode(tokenizer.WithLowercase(true)),
		dim:       SparseDim,
	}
}

// TermID maps a token surface to its sparse dimension
func (s *SparseEncoder) TermID(surface string) uint32 {
	return hash32(surface) % s.dim
}

// Encode returns L2-normalized 1+ln(tf) weights. Tokens without a letter or
// digit are ignored.
func (s *SparseEncoder) Encode(text string) types.SparseVector {
	counts := make(map[uint32]int)
	for _, tok := range s.tokenizer.Tokenize(text) {
		if !isTerm(tok.Surface) {
			continue
		}
		counts[s.TermID(tok.Surface)]++
	}

	vec := make(types.SparseVector, len(counts))
	var norm float64
	for id, tf := range counts {
		w := 1 + math.Log(float64(tf))
		vec[id] = float32(w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for id, w := range vec {
			vec[id] = float32(float64(w) / norm)
		}
	}
	return vec
}

// LocalProvider is an offline embedder. Dense vectors are signed feature
// hashes of unigrams and bigrams; sparse vectors come from SparseEncoder.
// It needs no model files and is deterministic.
type LocalProvider struct {
	model     string
	dimension int
	tokenizer tokenizer.Tokenizer
	sparse    *SparseEncoder
}

// NewLocalProvider creates a local embedder. dimension <= 0 uses LocalDimension.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: dimension,
		tokenizer: tokenizer.NewUnicode(tokenizer.WithLowercase(true)),
		sparse:    NewSparseEncoder(),
	}
}

func (l *LocalProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Embedding{
		Dense:    l.dense(text),
		Sparse:   l.sparse.Encode(text),
		Provider: ProviderLocal,
		Model:    l.model,
		Hash:     ComputeHash(text),
	}, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts, 0); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (l *LocalProvider) dense(text string) []float32 {
	vec := make([]float32, l.dimension)
	prev := ""
	for _, tok := range l.tokenizer.Tokenize(text) {
		if !isTerm(tok.Surface) {
			prev = ""
			continue
		}
		l.addFeature(vec, tok.Surface, 1.0)
		if prev != "" {
			l.addFeature(vec, prev+" "+tok.Surface, 0.5)
		}
		prev = tok.Surface
	}
	return NormalizeVector(vec)
}

func (l *LocalProvider) addFeature(vec []float32, feature string, weight float32) {
	h := hash32(feature)
	idx := int(h % uint32(l.dimension))
	if h&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func isTerm(surface string) bool {
	for _, r := range surface {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
