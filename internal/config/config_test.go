package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
language: de
embedding:
  model: text-embedding-3-large
  dimension: 256
  batch_pause: 500ms
vectorstore:
  backend: qdrant
  host: vectors.internal
  port: 7000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Language)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 256, cfg.Embedding.Dimension)
	assert.Equal(t, 500*time.Millisecond, cfg.Embedding.BatchPause)
	assert.Equal(t, "qdrant", cfg.VectorStore.Backend)
	assert.Equal(t, "vectors.internal", cfg.VectorStore.Host)

	// Untouched sections keep their defaults.
	assert.Equal(t, 90, cfg.Embedding.BatchSize)
	assert.Equal(t, 512, cfg.Ingest.ChunkSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
vectorstore:
  backend: pinecone
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	path = writeConfig(t, `
ingest:
  chunk_size: 0
`)
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
