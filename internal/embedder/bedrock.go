package embedder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/dshills/litsearch/internal/retry"
)

// bedrockInvoker is the part of the Bedrock runtime client the provider uses
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider embeds text with Amazon Titan Text Embeddings v2. Titan
// returns dense vectors only; sparse weights are computed locally.
type BedrockProvider struct {
	client    bedrockInvoker
	model     string
	dimension int
	sparse    *SparseEncoder
	retry     retry.Policy
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockProvider loads the default AWS config for region and creates a
// Titan embedder
func NewBedrockProvider(ctx context.Context, region, model string, dimension int, policy retry.Policy) (*BedrockProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newBedrockProvider(bedrockruntime.NewFromConfig(cfg), model, dimension, policy), nil
}

func newBedrockProvider(client bedrockInvoker, model string, dimension int, policy retry.Policy) *BedrockProvider {
	if model == "" {
		model = DefaultBedrockModel
	}
	if dimension <= 0 {
		dimension = BedrockDimension
	}
	return &BedrockProvider{
		client:    client,
		model:     model,
		dimension: dimension,
		sparse:    NewSparseEncoder(),
		retry:     policy,
	}
}

func (b *BedrockProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: b.dimension, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("marshal titan request: %w", err)
	}

	out, err := retry.Do(ctx, b.retry, func(ctx context.Context) (*bedrockruntime.InvokeModelOutput, error) {
		return b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(b.model),
			Body:        body,
			Accept:      aws.String("application/json"),
			ContentType: aws.String("application/json"),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode titan response: %v", ErrProviderFailed, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty titan embedding", ErrProviderFailed)
	}

	return &Embedding{
		Dense:    resp.Embedding,
		Sparse:   b.sparse.Encode(text),
		Provider: ProviderBedrock,
		Model:    b.model,
	}, nil
}

// EmbedBatch calls Titan once per text; the model has no batch endpoint
func (b *BedrockProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := ValidateBatch(texts, 0); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := b.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (b *BedrockProvider) Dimension() int {
	return b.dimension
}

func (b *BedrockProvider) Provider() string {
	return ProviderBedrock
}

func (b *BedrockProvider) Model() string {
	return b.model
}

func (b *BedrockProvider) Close() error {
	return nil
}
