package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// Dimension caps per OpenAI embedding model.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIBackend embeds text batches through the OpenAI embeddings API.
type OpenAIBackend struct {
	client        *Client
	model         string
	maxInputChars int
}

// NewOpenAIBackend creates a backend for the given model. maxInputChars
// bounds per-text input length; zero picks a conservative default.
func NewOpenAIBackend(client *Client, model string, maxInputChars int) *OpenAIBackend {
	if maxInputChars <= 0 {
		maxInputChars = 1000
	}
	return &OpenAIBackend{
		client:        client,
		model:         model,
		maxInputChars: maxInputChars,
	}
}

// EmbedBatch embeds one batch of texts. Mode has no provider-side equivalent
// at OpenAI; it only drives filtering upstream in the pipeline.
func (b *OpenAIBackend) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	resp, err := b.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: b.model,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = toFloat32(data.Embedding)
	}
	return vectors, nil
}

// MaxInputChars implements Backend.
func (b *OpenAIBackend) MaxInputChars() int {
	return b.maxInputChars
}

// MaxDimension implements Backend.
func (b *OpenAIBackend) MaxDimension() int {
	return openAIModelDimensions[b.model]
}

// toFloat32 converts the API's float64 vectors to the storage type.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
