// Package rag answers questions about a project's documents by retrieving
// the most relevant chunks and prompting a generation backend with them.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/docrag/internal/embedding"
	"github.com/bull/docrag/internal/generation"
	"github.com/bull/docrag/internal/vectorstore"
)

const promptGroup = "rag"

// DefaultLimit is the number of chunks retrieved when the caller does not
// choose one.
const DefaultLimit = 10

// Embedder is the slice of the embedding pipeline needed for queries.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error)
	EffectiveDimension() int
}

// Searcher is the read side of the vector store.
type Searcher interface {
	Connect(ctx context.Context) error
	Search(ctx context.Context, name string, vector []float32, limit int) ([]vectorstore.Match, error)
	CollectionInfo(ctx context.Context, name string) (*vectorstore.CollectionInfo, error)
}

// Renderer resolves named prompt templates.
type Renderer interface {
	Render(group, name string, vars map[string]any) (string, error)
}

// Result is one answered question. Prompt and History expose exactly what
// was sent to the generation backend. Answer is empty when generation
// failed after retrieval succeeded.
type Result struct {
	Answer  string
	Prompt  string
	History []generation.Turn
}

// Status describes a project's collection.
type Status struct {
	Collection  string
	RecordCount uint64
}

// Answerer wires retrieval and generation together.
type Answerer struct {
	embedder  Embedder
	store     Searcher
	generator generation.Backend
	prompts   Renderer
	logger    *slog.Logger
}

// NewAnswerer builds an answerer over the given collaborators.
func NewAnswerer(embedder Embedder, store Searcher, generator generation.Backend, prompts Renderer, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder:  embedder,
		store:     store,
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

// Answer retrieves up to limit chunks for the query and asks the generation
// backend for an answer grounded in them. It returns nil without error when
// the query cannot be embedded or nothing relevant is stored, so callers can
// distinguish "no answer available" from infrastructure failures.
func (a *Answerer) Answer(ctx context.Context, projectID, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if err := a.store.Connect(ctx); err != nil {
		return nil, err
	}

	vectors, err := a.embedder.Embed(ctx, []string{query}, embedding.ModeQuery)
	if err != nil {
		a.logger.Warn("could not embed query", "project_id", projectID, "error", err)
		return nil, nil
	}

	collection := vectorstore.CollectionName(a.embedder.EffectiveDimension(), projectID)
	matches, err := a.store.Search(ctx, collection, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(matches) == 0 {
		a.logger.Info("no relevant chunks found", "project_id", projectID)
		return nil, nil
	}

	prompt, history, err := a.buildPrompt(query, matches)
	if err != nil {
		return nil, err
	}

	result := &Result{Prompt: prompt, History: history}
	answer, err := a.generator.Generate(ctx, prompt, history)
	if err != nil {
		a.logger.Warn("generation failed", "project_id", projectID, "error", err)
		return result, nil
	}
	result.Answer = answer
	return result, nil
}

// buildPrompt assembles the grounded prompt: numbered document blocks, the
// user question and the answer footer, with the system turn as history.
func (a *Answerer) buildPrompt(query string, matches []vectorstore.Match) (string, []generation.Turn, error) {
	system, err := a.prompts.Render(promptGroup, "system_prompt", nil)
	if err != nil {
		return "", nil, fmt.Errorf("render system prompt: %w", err)
	}

	blocks := make([]string, len(matches))
	for i, match := range matches {
		block, err := a.prompts.Render(promptGroup, "document_prompt", map[string]any{
			"doc_num":    i + 1,
			"chunk_text": a.generator.ProcessText(match.Text),
		})
		if err != nil {
			return "", nil, fmt.Errorf("render document prompt: %w", err)
		}
		blocks[i] = block
	}

	question, err := a.prompts.Render(promptGroup, "user_question_prompt", map[string]any{
		"user_query": query,
	})
	if err != nil {
		return "", nil, fmt.Errorf("render question prompt: %w", err)
	}

	footer, err := a.prompts.Render(promptGroup, "footer_prompt", nil)
	if err != nil {
		return "", nil, fmt.Errorf("render footer prompt: %w", err)
	}

	prompt := strings.Join([]string{
		strings.Join(blocks, "\n"),
		question,
		footer,
	}, "\n\n")

	history := []generation.Turn{{Role: generation.RoleSystem, Content: system}}
	return prompt, history, nil
}

// ProjectStatus reports the state of a project's collection.
func (a *Answerer) ProjectStatus(ctx context.Context, projectID string) (*Status, error) {
	if err := a.store.Connect(ctx); err != nil {
		return nil, err
	}

	collection := vectorstore.CollectionName(a.embedder.EffectiveDimension(), projectID)
	info, err := a.store.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("collection info: %w", err)
	}
	return &Status{Collection: collection, RecordCount: info.RecordCount}, nil
}
