package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every batch and can throttle a fixed number of calls
// before succeeding.
type fakeBackend struct {
	batches       [][]string
	throttleFirst int
	calls         int
	dimension     int
	maxDimension  int
	maxInputChars int
	failWith      error
}

func (f *fakeBackend) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.calls <= f.throttleFirst {
		return nil, fmt.Errorf("%w: try later", ErrRateLimited)
	}
	f.batches = append(f.batches, append([]string(nil), texts...))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dimension)
		vectors[i][0] = float32(i + 1)
	}
	return vectors, nil
}

func (f *fakeBackend) MaxInputChars() int {
	if f.maxInputChars > 0 {
		return f.maxInputChars
	}
	return 1000
}

func (f *fakeBackend) MaxDimension() int { return f.maxDimension }

func fastOpts() []Option {
	return []Option{WithBatchPause(0), WithRetryDelay(time.Millisecond)}
}

func TestEmbedDocumentModeFiltersShortTexts(t *testing.T) {
	backend := &fakeBackend{dimension: 8}
	p := NewPipeline(backend, 8, fastOpts()...)

	texts := []string{"short", "this one is long enough to embed", "  x ", "another sufficiently long text"}
	vectors, err := p.Embed(context.Background(), texts, ModeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	require.Len(t, backend.batches, 1)
	assert.Equal(t, []string{
		"this one is long enough to embed",
		"another sufficiently long text",
	}, backend.batches[0])
}

func TestEmbedQueryModeNeverLengthFilters(t *testing.T) {
	backend := &fakeBackend{dimension: 8}
	p := NewPipeline(backend, 8, fastOpts()...)

	vectors, err := p.Embed(context.Background(), []string{"hi"}, ModeQuery)
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, []string{"hi"}, backend.batches[0])
}

func TestEmbedEmptyInput(t *testing.T) {
	backend := &fakeBackend{dimension: 8}
	p := NewPipeline(backend, 8, fastOpts()...)

	_, err := p.Embed(context.Background(), []string{"tiny", " ", "no"}, ModeDocument)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, backend.calls, "no remote call for an all-short batch")

	_, err = p.Embed(context.Background(), nil, ModeQuery)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedBatching(t *testing.T) {
	backend := &fakeBackend{dimension: 4}
	p := NewPipeline(backend, 4, append(fastOpts(), WithBatchSize(90))...)

	texts := make([]string, 205)
	for i := range texts {
		texts[i] = fmt.Sprintf("document number %03d with enough characters", i)
	}

	vectors, err := p.Embed(context.Background(), texts, ModeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors, 205)
	require.Len(t, backend.batches, 3)
	assert.Len(t, backend.batches[0], 90)
	assert.Len(t, backend.batches[1], 90)
	assert.Len(t, backend.batches[2], 25)
}

func TestEmbedRetriesThrottlingThenSucceeds(t *testing.T) {
	backend := &fakeBackend{dimension: 4, throttleFirst: 4}
	p := NewPipeline(backend, 4, fastOpts()...)

	vectors, err := p.Embed(context.Background(), []string{"a text long enough to pass"}, ModeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, 5, backend.calls, "four throttles then success")
}

func TestEmbedFailsAfterRetryCap(t *testing.T) {
	backend := &fakeBackend{dimension: 4, throttleFirst: 5}
	p := NewPipeline(backend, 4, fastOpts()...)

	_, err := p.Embed(context.Background(), []string{"a text long enough to pass"}, ModeDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 5, backend.calls)
}

func TestEmbedDoesNotRetryPermanentErrors(t *testing.T) {
	boom := errors.New("invalid api key")
	backend := &fakeBackend{dimension: 4, failWith: boom}
	p := NewPipeline(backend, 4, fastOpts()...)

	_, err := p.Embed(context.Background(), []string{"a text long enough to pass"}, ModeDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, backend.calls)
}

func TestEmbedTruncatesToInputBudget(t *testing.T) {
	backend := &fakeBackend{dimension: 4, maxInputChars: 20}
	p := NewPipeline(backend, 4, fastOpts()...)

	long := strings.Repeat("word ", 50)
	_, err := p.Embed(context.Background(), []string{long}, ModeDocument)
	require.NoError(t, err)
	require.Len(t, backend.batches, 1)
	sent := backend.batches[0][0]
	assert.LessOrEqual(t, len(sent), 20)
	assert.Equal(t, strings.TrimSpace(sent), sent)
}

func TestDimensionReconciliation(t *testing.T) {
	backend := &fakeBackend{dimension: 1536, maxDimension: 1536}
	p := NewPipeline(backend, 3072, fastOpts()...)

	assert.Equal(t, 1536, p.EffectiveDimension())

	vectors, err := p.Embed(context.Background(), []string{"a text long enough to pass"}, ModeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors[0], 1536)
}

func TestDimensionDefaultsToBackendMaximum(t *testing.T) {
	backend := &fakeBackend{dimension: 1536, maxDimension: 1536}
	p := NewPipeline(backend, 0, fastOpts()...)

	assert.Equal(t, 1536, p.EffectiveDimension())

	vectors, err := p.Embed(context.Background(), []string{"a text long enough to pass"}, ModeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors[0], 1536)
}

func TestVectorsTruncatedToEffectiveDimension(t *testing.T) {
	// Backend reports no cap but returns oversized vectors anyway; the
	// pipeline still cuts them to the configured size.
	backend := &fakeBackend{dimension: 64}
	p := NewPipeline(backend, 32, fastOpts()...)

	vectors, err := p.Embed(context.Background(), []string{"a text long enough to pass"}, ModeDocument)
	require.NoError(t, err)
	assert.Len(t, vectors[0], 32)
}
