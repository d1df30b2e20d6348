package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/litsearch/internal/retry"
	"github.com/dshills/litsearch/pkg/types"
)

// Provider configuration
const (
	ProviderLocal   = "local"
	ProviderHTTP    = "http"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"

	// Default models
	DefaultLocalModel   = "local-hash"
	DefaultHTTPModel    = "BAAI/bge-m3"
	DefaultOpenAIModel  = "text-embedding-3-small"
	DefaultBedrockModel = "amazon.titan-embed-text-v2:0"

	// Default endpoints
	DefaultHTTPURL   = "http://localhost:8001"
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// Dimensions
	LocalDimension   = 384
	BGEM3Dimension   = 1024
	OpenAIDimension  = 1536
	BedrockDimension = 1024

	// SparseDim is the size of the sparse vocabulary (the BGE-M3 tokenizer's)
	SparseDim = types.SparseDimension

	// Batch limits
	DefaultBatchSize = 30
	MaxBatchSize     = 100
)

// HTTPProvider calls an embedding server that returns dense and sparse
// vectors together, BGE-M3 style:
//
//	POST {base}/embed {"texts": [...], "model": "..."}
//	→ {"model": "...", "dense": [[...]], "sparse": [{"<term id>": weight}]}
type HTTPProvider struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	retry      retry.Policy
}

// NewHTTPProvider creates an embedder for a BGE-M3 style server
func NewHTTPProvider(baseURL, model string, dimension int, policy retry.Policy) *HTTPProvider {
	if baseURL == "" {
		baseURL = DefaultHTTPURL
	}
	if model == "" {
		model = DefaultHTTPModel
	}
	if dimension <= 0 {
		dimension = BGEM3Dimension
	}
	return &HTTPProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry: policy,
	}
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	embs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts, MaxBatchSize); err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"texts": texts,
		"model": p.model,
	}

	var apiResp struct {
		Model  string               `json:"model"`
		Dense  [][]float32          `json:"dense"`
		Sparse []map[string]float32 `json:"sparse"`
	}

	err := retry.DoErr(ctx, p.retry, func(ctx context.Context) error {
		return postJSON(ctx, p.httpClient, p.baseURL+"/embed", nil, reqBody, &apiResp)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(apiResp.Dense) != len(texts) {
		return nil, fmt.Errorf("%w: got %d dense vectors for %d texts", ErrProviderFailed, len(apiResp.Dense), len(texts))
	}

	model := apiResp.Model
	if model == "" {
		model = p.model
	}

	embeddings := make([]*Embedding, len(texts))
	for i := range texts {
		sparse := make(types.SparseVector)
		if i < len(apiResp.Sparse) {
			for key, w := range apiResp.Sparse[i] {
				id, err := strconv.ParseUint(key, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("%w: bad sparse term id %q", ErrProviderFailed, key)
				}
				sparse[uint32(id)] = w
			}
		}
		embeddings[i] = &Embedding{
			Dense:    apiResp.Dense[i],
			Sparse:   sparse,
			Provider: ProviderHTTP,
			Model:    model,
		}
	}
	return embeddings, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return ProviderHTTP
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// OpenAIProvider implements Embedder using the OpenAI embeddings API for the
// dense vector. OpenAI has no sparse output, so sparse weights are computed
// locally.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	sparse     *SparseEncoder
	retry      retry.Policy
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey, baseURL, model string, policy retry.Policy) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", ErrNoProviderEnabled)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sparse: NewSparseEncoder(),
		retry:  policy,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	embs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts, MaxBatchSize); err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"input": texts,
		"model": o.model,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	err := retry.DoErr(ctx, o.retry, func(ctx context.Context) error {
		return postJSON(ctx, o.httpClient, o.baseURL+"/embeddings", headers, reqBody, &apiResp)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(apiResp.Data), len(texts))
	}

	embeddings := make([]*Embedding, len(texts))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProviderFailed, data.Index)
		}
		embeddings[data.Index] = &Embedding{
			Dense:    data.Embedding,
			Sparse:   o.sparse.Encode(texts[data.Index]),
			Provider: ProviderOpenAI,
			Model:    apiResp.Model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: missing embedding for text %d", ErrProviderFailed, i)
		}
	}
	return embeddings, nil
}

func (o *OpenAIProvider) Dimension() int {
	return OpenAIDimension
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// postJSON sends body as JSON and decodes the response into out. Client
// errors other than 429 are marked permanent so they are not retried.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
