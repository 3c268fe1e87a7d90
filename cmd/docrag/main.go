// Package main provides the docrag CLI for ingesting project documents and
// answering questions against them.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docrag/internal/blob"
	"github.com/bull/docrag/internal/chunks"
	"github.com/bull/docrag/internal/config"
	"github.com/bull/docrag/internal/decode"
	"github.com/bull/docrag/internal/embedding"
	"github.com/bull/docrag/internal/generation"
	"github.com/bull/docrag/internal/ingest"
	"github.com/bull/docrag/internal/prompt"
	"github.com/bull/docrag/internal/rag"
	"github.com/bull/docrag/internal/vectorstore"
)

var (
	configPath string
	verbose    bool

	projectID string
	bucketRef string
	fileID    string
	chunkSize int
	overlap   int
	reset     bool
	limit     int
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Document ingestion and retrieval-augmented answering",
	Long:  "CLI tool for chunking and embedding project documents and answering questions grounded in them",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a bucket's documents into a project",
	Long: `Fetches, decodes, chunks and embeds documents, then stores the
chunks and their vectors for retrieval.

By default every file in the bucket is ingested. Use --file to ingest a
single file, and --reset to drop the project's existing data first.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  QDRANT_HOST    Qdrant hostname (overrides config)
  QDRANT_PORT    Qdrant gRPC port (overrides config)`,
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from a project's documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a project's collection state",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "project id (required)")

	ingestCmd.Flags().StringVarP(&bucketRef, "bucket", "b", "default", "bucket to ingest from")
	ingestCmd.Flags().StringVarP(&fileID, "file", "f", "", "ingest a single file instead of the whole bucket")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk size in characters (defaults from config)")
	ingestCmd.Flags().IntVar(&overlap, "overlap", -1, "chunk overlap in characters (defaults from config)")
	ingestCmd.Flags().BoolVar(&reset, "reset", false, "drop the project's existing chunks and vectors first")

	askCmd.Flags().IntVarP(&limit, "limit", "l", rag.DefaultLimit, "number of chunks to retrieve")

	rootCmd.AddCommand(ingestCmd, askCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	repo     *chunks.Repository
	blobs    *blob.Filesystem
	client   *embedding.Client
	pipeline *embedding.Pipeline
	store    vectorstore.Store
}

func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if projectID == "" {
		return nil, fmt.Errorf("--project is required")
	}

	client, err := embedding.NewClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return nil, err
	}
	backend := embedding.NewOpenAIBackend(client, cfg.Embedding.Model, cfg.Embedding.MaxInputChars)
	pipeline := embedding.NewPipeline(backend, cfg.Embedding.Dimension,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithBatchPause(cfg.Embedding.BatchPause),
		embedding.WithRetryDelay(cfg.Embedding.RetryDelay),
		embedding.WithLogger(logger),
	)

	db, err := chunks.Open(cfg.Storage.Database)
	if err != nil {
		return nil, err
	}
	repo, err := chunks.NewRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	storeBackend, err := vectorstore.ParseBackend(cfg.VectorStore.Backend)
	if err != nil {
		db.Close()
		return nil, err
	}
	metric, err := vectorstore.ParseMetric(cfg.VectorStore.Metric)
	if err != nil {
		db.Close()
		return nil, err
	}
	store, err := vectorstore.New(vectorstore.Config{
		Backend: storeBackend,
		Host:    getEnv("QDRANT_HOST", cfg.VectorStore.Host),
		Port:    getEnvInt("QDRANT_PORT", cfg.VectorStore.Port),
		Metric:  metric,
	}, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		repo:     repo,
		blobs:    blob.NewFilesystem(cfg.Storage.Root),
		client:   client,
		pipeline: pipeline,
		store:    store,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.db.Close()
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	size := a.cfg.Ingest.ChunkSize
	if chunkSize > 0 {
		size = chunkSize
	}
	lap := a.cfg.Ingest.Overlap
	if overlap >= 0 {
		lap = overlap
	}

	files, err := resolveFiles(ctx, a.blobs)
	if err != nil {
		return err
	}
	fmt.Printf("Ingesting %d file(s) into project %s...\n", len(files), projectID)

	orchestrator := ingest.New(a.blobs, decode.NewRegistry(), a.pipeline, a.store, a.repo,
		ingest.WithWorkers(a.cfg.Ingest.Workers),
		ingest.WithLogger(a.logger),
	)

	result, err := orchestrator.Run(ctx, ingest.Params{
		ProjectID: projectID,
		Files:     files,
		ChunkSize: size,
		Overlap:   lap,
		Reset:     reset,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Files:    %d/%d\n", result.ProcessedFiles, len(files))
	fmt.Printf("  Chunks:   %d\n", result.InsertedChunks)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))

	if len(result.Skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped files:")
		for _, skipped := range result.Skipped {
			fmt.Printf("  - %s: %s\n", skipped.FileID, skipped.Reason)
		}
	}
	return nil
}

// resolveFiles expands the bucket listing unless a single file was chosen.
func resolveFiles(ctx context.Context, blobs *blob.Filesystem) ([]ingest.FileRef, error) {
	if fileID != "" {
		return []ingest.FileRef{{AssetID: fileID, FileID: fileID, BucketRef: bucketRef}}, nil
	}
	names, err := blobs.List(ctx, bucketRef)
	if err != nil {
		return nil, fmt.Errorf("list bucket %s: %w", bucketRef, err)
	}
	refs := make([]ingest.FileRef, len(names))
	for i, name := range names {
		refs[i] = ingest.FileRef{AssetID: name, FileID: name, BucketRef: bucketRef}
	}
	return refs, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	answerer, err := newAnswerer(a)
	if err != nil {
		return err
	}

	result, err := answerer.Answer(ctx, projectID, args[0], limit)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Println("No relevant documents found for this question.")
		return nil
	}
	if result.Answer == "" {
		fmt.Println("Retrieval succeeded but no answer could be generated.")
		return nil
	}
	fmt.Println(result.Answer)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	answerer, err := newAnswerer(a)
	if err != nil {
		return err
	}

	status, err := answerer.ProjectStatus(ctx, projectID)
	if err != nil {
		return err
	}
	fmt.Printf("Project:    %s\n", projectID)
	fmt.Printf("Collection: %s\n", status.Collection)
	fmt.Printf("Records:    %d\n", status.RecordCount)
	return nil
}

func newAnswerer(a *app) (*rag.Answerer, error) {
	prompts, err := prompt.NewStore(a.cfg.Language)
	if err != nil {
		return nil, err
	}
	// The generation backend shares the embedding side's OpenAI connection.
	generator := generation.NewOpenAIBackend(a.client.Client(),
		a.cfg.Generation.Model,
		a.cfg.Generation.MaxInputChars,
		a.cfg.Generation.MaxTokens,
		a.cfg.Generation.Temperature,
	)
	return rag.NewAnswerer(a.pipeline, a.store, generator, prompts, a.logger), nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
