package embedding

import (
	"context"
	"errors"
)

// Mode distinguishes what is being embedded. Document texts are filtered for
// noise before spending a remote call; query texts never are.
type Mode int

const (
	ModeDocument Mode = iota
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "document"
}

var (
	// ErrRateLimited marks a backend throttling response. It is the only
	// error class the pipeline retries.
	ErrRateLimited = errors.New("embedding: rate limited")

	// ErrEmptyInput is returned when no text survives normalization and
	// filtering.
	ErrEmptyInput = errors.New("embedding: no valid texts to embed")
)

// Backend is a remote embedding provider for a single batch of texts. The
// returned vectors are positionally aligned with the input.
type Backend interface {
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error)

	// MaxInputChars is the provider's per-text character budget; texts are
	// truncated to it before embedding.
	MaxInputChars() int

	// MaxDimension is the largest vector size the provider can produce, or 0
	// when unconstrained.
	MaxDimension() int
}
