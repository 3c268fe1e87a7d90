// Package ingest runs the document ingestion pipeline: fetch, decode, split,
// embed and persist, file by file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/bull/docrag/internal/blob"
	"github.com/bull/docrag/internal/chunker"
	"github.com/bull/docrag/internal/chunks"
	"github.com/bull/docrag/internal/decode"
	"github.com/bull/docrag/internal/embedding"
	"github.com/bull/docrag/internal/vectorstore"
)

var ErrInvalidParams = errors.New("ingest: invalid parameters")

// FileRef identifies one file to ingest.
type FileRef struct {
	AssetID   string
	FileID    string
	BucketRef string
}

// Params drives one ingestion run for a project.
type Params struct {
	ProjectID string
	Files     []FileRef
	ChunkSize int
	Overlap   int
	// Reset drops the project's existing chunks and vectors before any
	// file is processed.
	Reset bool
}

// SkippedFile records a file that failed and was passed over.
type SkippedFile struct {
	FileID string
	Reason string
}

// Result summarizes an ingestion run.
type Result struct {
	InsertedChunks int
	ProcessedFiles int
	Skipped        []SkippedFile
}

// Embedder is the slice of the embedding pipeline the orchestrator needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error)
	EffectiveDimension() int
}

// Repository is the chunk persistence surface used during ingestion.
type Repository interface {
	InsertMany(ctx context.Context, items []*chunks.Chunk) ([]int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}

// Orchestrator coordinates the per-file pipeline. Runs for the same project
// are serialized; different projects proceed concurrently.
type Orchestrator struct {
	blobs    blob.Store
	decoder  decode.Decoder
	embedder Embedder
	store    vectorstore.Store
	repo     Repository
	workers  int
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the file-level concurrency. Defaults to 1 so embedding
// rate limits are not compounded across files.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger used for per-file progress and skips.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds an orchestrator over the given collaborators.
func New(blobs blob.Store, decoder decode.Decoder, embedder Embedder, store vectorstore.Store, repo Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		blobs:    blobs,
		decoder:  decoder,
		embedder: embedder,
		store:    store,
		repo:     repo,
		workers:  1,
		logger:   slog.Default(),
		locks:    map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) projectLock(projectID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[projectID] = lock
	}
	return lock
}

// Run ingests the given files into the project's collection. A failing file
// is logged, recorded in the result and skipped; it never aborts the run.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*Result, error) {
	if params.ProjectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidParams)
	}
	if params.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", ErrInvalidParams)
	}

	lock := o.projectLock(params.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.store.Connect(ctx); err != nil {
		return nil, err
	}

	dimension := o.embedder.EffectiveDimension()
	collection := vectorstore.CollectionName(dimension, params.ProjectID)

	if params.Reset {
		existed, err := o.store.ResetCollection(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("reset collection: %w", err)
		}
		deleted, err := o.repo.DeleteByProject(ctx, params.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("reset chunks: %w", err)
		}
		o.logger.Info("reset project",
			"project_id", params.ProjectID, "collection_existed", existed, "deleted_chunks", deleted)
	}

	if err := o.store.EnsureCollection(ctx, collection, dimension); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	splitter := chunker.New(params.ChunkSize, params.Overlap)

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}
	defer pool.Release()

	var (
		resultMu sync.Mutex
		result   Result
		wg       sync.WaitGroup
	)

	for _, file := range params.Files {
		file := file
		wg.Add(1)
		task := func() {
			defer wg.Done()
			inserted, err := o.ingestFile(ctx, collection, params.ProjectID, file, splitter)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				o.logger.Warn("skipping file",
					"project_id", params.ProjectID, "file_id", file.FileID, "error", err)
				result.Skipped = append(result.Skipped, SkippedFile{FileID: file.FileID, Reason: err.Error()})
				return
			}
			result.InsertedChunks += inserted
			result.ProcessedFiles++
		}
		if err := pool.Submit(task); err != nil {
			// Pool refused the task; run it on the caller's goroutine.
			task()
		}
	}
	wg.Wait()

	o.logger.Info("ingestion finished",
		"project_id", params.ProjectID,
		"processed_files", result.ProcessedFiles,
		"inserted_chunks", result.InsertedChunks,
		"skipped_files", len(result.Skipped))
	return &result, nil
}

// ingestFile runs the full pipeline for one file and returns the number of
// chunks it inserted.
func (o *Orchestrator) ingestFile(ctx context.Context, collection, projectID string, file FileRef, splitter *chunker.Chunker) (int, error) {
	data, err := o.blobs.Get(ctx, file.BucketRef, file.FileID)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	pages, err := o.decoder.Decode(data, decode.ExtensionOf(file.FileID))
	if err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	segments := splitter.Split(toChunkerPages(pages))
	if len(segments) == 0 {
		return 0, fmt.Errorf("no chunks produced")
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	vectors, err := o.embedder.Embed(ctx, texts, embedding.ModeDocument)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	// The splitter never emits segments below the embedding length filter,
	// so the counts line up unless a collaborator misbehaves.
	if len(vectors) != len(segments) {
		return 0, fmt.Errorf("embedded %d of %d chunks", len(vectors), len(segments))
	}

	rows := make([]*chunks.Chunk, len(segments))
	for i, seg := range segments {
		rows[i] = &chunks.Chunk{
			Text:      seg.Text,
			Metadata:  seg.Metadata,
			Order:     seg.Index,
			ProjectID: projectID,
			AssetID:   file.AssetID,
		}
		if o.store.Inline() {
			rows[i].Vector = vectors[i]
		}
	}

	ids, err := o.repo.InsertMany(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}

	if !o.store.Inline() {
		metadata := make([]map[string]string, len(segments))
		for i, seg := range segments {
			metadata[i] = seg.Metadata
		}
		err := o.store.InsertMany(ctx, collection, &vectorstore.InsertBatch{
			Texts:       texts,
			Vectors:     vectors,
			Metadata:    metadata,
			ExternalIDs: ids,
			Mode:        vectorstore.AttachVectors,
		})
		if err != nil {
			return 0, fmt.Errorf("index vectors: %w", err)
		}
	}

	o.logger.Debug("ingested file",
		"project_id", projectID, "file_id", file.FileID, "chunks", len(segments))
	return len(segments), nil
}

func toChunkerPages(pages []decode.Page) []chunker.Page {
	out := make([]chunker.Page, len(pages))
	for i, p := range pages {
		out[i] = chunker.Page{Text: p.Text, Metadata: p.Metadata}
	}
	return out
}
