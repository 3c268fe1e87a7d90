// Package config loads the application configuration from a YAML file and
// resolves it against defaults. A loaded Config is treated as immutable;
// nothing mutates it after Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Language    string      `yaml:"language"`
	Storage     Storage     `yaml:"storage"`
	Embedding   Embedding   `yaml:"embedding"`
	Generation  Generation  `yaml:"generation"`
	VectorStore VectorStore `yaml:"vectorstore"`
	Ingest      Ingest      `yaml:"ingest"`
}

// Storage locates the file bucket root and the chunk database.
type Storage struct {
	Root     string `yaml:"root"`
	Database string `yaml:"database"`
}

// Embedding configures the embedding backend and its batching behavior.
type Embedding struct {
	Model         string        `yaml:"model"`
	Dimension     int           `yaml:"dimension"`
	BatchSize     int           `yaml:"batch_size"`
	BatchPause    time.Duration `yaml:"batch_pause"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxInputChars int           `yaml:"max_input_chars"`
}

// Generation configures the answer generation backend.
type Generation struct {
	Model         string  `yaml:"model"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	MaxInputChars int     `yaml:"max_input_chars"`
}

// VectorStore selects and parameterizes the vector backend.
type VectorStore struct {
	Backend string `yaml:"backend"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Metric  string `yaml:"metric"`
}

// Ingest configures document splitting and ingestion concurrency.
type Ingest struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
	Workers   int `yaml:"workers"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Language: "en",
		Storage: Storage{
			Root:     "data/files",
			Database: "data/chunks.db",
		},
		Embedding: Embedding{
			Model:         "text-embedding-3-small",
			BatchSize:     90,
			BatchPause:    2 * time.Second,
			RetryDelay:    2 * time.Second,
			MaxInputChars: 1000,
		},
		Generation: Generation{
			Model:         "gpt-4o-mini",
			MaxTokens:     1000,
			Temperature:   0.1,
			MaxInputChars: 1000,
		},
		VectorStore: VectorStore{
			Backend: "sqlite",
			Host:    "localhost",
			Port:    6334,
			Metric:  "cosine",
		},
		Ingest: Ingest{
			ChunkSize: 512,
			Overlap:   64,
			Workers:   4,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding model is required", ErrInvalidConfig)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch_size must be positive", ErrInvalidConfig)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("%w: embedding dimension must not be negative", ErrInvalidConfig)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("%w: generation model is required", ErrInvalidConfig)
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("%w: ingest chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Ingest.Overlap < 0 {
		return fmt.Errorf("%w: ingest overlap must not be negative", ErrInvalidConfig)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("%w: ingest workers must be positive", ErrInvalidConfig)
	}
	switch c.VectorStore.Backend {
	case "qdrant", "sqlite":
	default:
		return fmt.Errorf("%w: unknown vectorstore backend %q", ErrInvalidConfig, c.VectorStore.Backend)
	}
	switch c.VectorStore.Metric {
	case "cosine", "dot":
	default:
		return fmt.Errorf("%w: unknown vectorstore metric %q", ErrInvalidConfig, c.VectorStore.Metric)
	}
	return nil
}
