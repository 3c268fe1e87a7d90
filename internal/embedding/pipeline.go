package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/docrag/internal/backoff"
)

const (
	// MinTextChars is the shortest document text worth embedding; anything
	// under it is noise and is dropped before the remote call.
	MinTextChars = 10

	// DefaultBatchSize keeps batches inside provider throughput limits.
	DefaultBatchSize = 90

	// maxAttempts caps retries per batch when the provider throttles.
	maxAttempts = 5
)

// Pipeline normalizes, batches and embeds texts with rate-limit resilience.
// A Pipeline is safe for concurrent use.
type Pipeline struct {
	backend    Backend
	dimension  int
	batchSize  int
	batchPause time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize overrides the batch size; values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBatchPause sets the pacing delay inserted between batches.
func WithBatchPause(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.batchPause = d
		}
	}
}

// WithRetryDelay sets the base delay for rate-limit retries.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.retryDelay = d
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline producing vectors of the configured
// dimension. A non-positive dimension adopts the backend's maximum. If the
// backend enforces a smaller maximum dimension, the effective dimension is
// reduced to it and vectors are truncated consistently, so collections must
// be sized with EffectiveDimension.
func NewPipeline(backend Backend, dimension int, opts ...Option) *Pipeline {
	effective := dimension
	if limit := backend.MaxDimension(); limit > 0 {
		if effective <= 0 {
			effective = limit
		} else if limit < effective {
			slog.Warn("reducing embedding dimension to backend maximum",
				"configured", dimension, "effective", limit)
			effective = limit
		}
	}
	p := &Pipeline{
		backend:    backend,
		dimension:  effective,
		batchSize:  DefaultBatchSize,
		batchPause: 2 * time.Second,
		retryDelay: 2 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EffectiveDimension is the vector size this pipeline actually produces,
// after reconciliation with the backend's cap.
func (p *Pipeline) EffectiveDimension() int {
	return p.dimension
}

// Embed normalizes and embeds the given texts. In document mode texts
// shorter than MinTextChars after truncation and trimming are dropped; in
// query mode every non-empty text goes through. The call is all-or-nothing:
// if any batch exhausts its retries the whole call fails and no partial
// vector set is returned.
func (p *Pipeline) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	prepared := p.normalize(texts, mode)
	if dropped := len(texts) - len(prepared); dropped > 0 {
		p.logger.Debug("filtered texts before embedding", "dropped", dropped, "kept", len(prepared))
	}
	if len(prepared) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(prepared))
	for start := 0; start < len(prepared); start += p.batchSize {
		end := min(start+p.batchSize, len(prepared))

		if start > 0 && p.batchPause > 0 {
			if err := sleepCtx(ctx, p.batchPause); err != nil {
				return nil, err
			}
		}

		batch, err := p.embedBatch(ctx, prepared[start:end], mode)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// normalize truncates each text to the backend budget, trims whitespace and
// applies the document-mode length filter.
func (p *Pipeline) normalize(texts []string, mode Mode) []string {
	budget := p.backend.MaxInputChars()
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(truncateRunes(t, budget))
		if t == "" {
			continue
		}
		if mode == ModeDocument && len(t) < MinTextChars {
			continue
		}
		out = append(out, t)
	}
	return out
}

// embedBatch calls the backend with retry on throttling only.
func (p *Pipeline) embedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	var vectors [][]float32
	attempt := 0
	op := func() error {
		attempt++
		got, err := p.backend.EmbedBatch(ctx, texts, mode)
		if err != nil {
			if attempt < maxAttempts {
				p.logger.Warn("embedding batch failed", "attempt", attempt, "error", err)
			}
			return err
		}
		vectors = got
		return nil
	}

	err := backoff.Retry(ctx, op, maxAttempts, p.retryDelay, func(err error) bool {
		return errors.Is(err, ErrRateLimited)
	})
	if err != nil {
		return nil, err
	}
	return p.truncateVectors(vectors), nil
}

// truncateVectors cuts every vector down to the effective dimension.
func (p *Pipeline) truncateVectors(vectors [][]float32) [][]float32 {
	if p.dimension <= 0 {
		return vectors
	}
	for i, v := range vectors {
		if len(v) > p.dimension {
			vectors[i] = v[:p.dimension]
		}
	}
	return vectors
}

func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
