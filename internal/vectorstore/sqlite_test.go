package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docrag/internal/chunks"
)

func testSQLiteStore(t *testing.T, metric Metric) (*SQLite, *chunks.Repository) {
	t.Helper()
	db, err := chunks.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := chunks.NewRepository(db)
	require.NoError(t, err)

	store := NewSQLite(db, metric)
	require.NoError(t, store.Connect(context.Background()))
	return store, repo
}

func TestSQLiteAttachAndSearchOrdering(t *testing.T) {
	store, repo := testSQLiteStore(t, MetricCosine)
	ctx := context.Background()
	name := CollectionName(3, "p1")

	ids, err := repo.InsertMany(ctx, []*chunks.Chunk{
		{Text: "points mostly east", ProjectID: "p1", AssetID: "a", Order: 0},
		{Text: "points exactly north", ProjectID: "p1", AssetID: "a", Order: 1},
		{Text: "points mostly north", ProjectID: "p1", AssetID: "a", Order: 2},
	})
	require.NoError(t, err)

	err = store.InsertMany(ctx, name, &InsertBatch{
		Texts:       []string{"points mostly east", "points exactly north", "points mostly north"},
		Vectors:     [][]float32{{1, 0.1, 0}, {0, 1, 0}, {0.2, 1, 0}},
		ExternalIDs: ids,
		Mode:        AttachVectors,
	})
	require.NoError(t, err)

	matches, err := store.Search(ctx, name, []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "points exactly north", matches[0].Text)
	assert.Equal(t, "points mostly north", matches[1].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSQLiteSearchScopedToProject(t *testing.T) {
	store, _ := testSQLiteStore(t, MetricCosine)
	ctx := context.Background()

	err := store.InsertMany(ctx, CollectionName(2, "p1"), &InsertBatch{
		Texts:   []string{"belongs to p1"},
		Vectors: [][]float32{{1, 0}},
	})
	require.NoError(t, err)

	matches, err := store.Search(ctx, CollectionName(2, "p2"), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteSearchSkipsMismatchedDimensions(t *testing.T) {
	store, _ := testSQLiteStore(t, MetricCosine)
	ctx := context.Background()
	name := CollectionName(2, "p1")

	err := store.InsertMany(ctx, name, &InsertBatch{
		Texts:   []string{"two dims", "three dims"},
		Vectors: [][]float32{{1, 0}, {1, 0, 0}},
	})
	require.NoError(t, err)

	matches, err := store.Search(ctx, name, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "two dims", matches[0].Text)
}

func TestSQLiteResetDetachesVectors(t *testing.T) {
	store, _ := testSQLiteStore(t, MetricCosine)
	ctx := context.Background()
	name := CollectionName(2, "p1")

	err := store.InsertMany(ctx, name, &InsertBatch{
		Texts:   []string{"soon to be reset"},
		Vectors: [][]float32{{1, 0}},
	})
	require.NoError(t, err)

	existed, err := store.ResetCollection(ctx, name)
	require.NoError(t, err)
	assert.True(t, existed)

	matches, err := store.Search(ctx, name, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	existed, err = store.ResetCollection(ctx, name)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSQLiteCollectionInfo(t *testing.T) {
	store, _ := testSQLiteStore(t, MetricDot)
	ctx := context.Background()
	name := CollectionName(2, "p1")

	info, err := store.CollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.RecordCount)

	err = store.InsertMany(ctx, name, &InsertBatch{
		Texts:   []string{"first", "second"},
		Vectors: [][]float32{{1, 0}, {0, 1}},
	})
	require.NoError(t, err)

	info, err = store.CollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.RecordCount)
}

func TestSQLiteDotMetric(t *testing.T) {
	store, _ := testSQLiteStore(t, MetricDot)
	ctx := context.Background()
	name := CollectionName(2, "p1")

	err := store.InsertMany(ctx, name, &InsertBatch{
		Texts:   []string{"short vector", "long vector"},
		Vectors: [][]float32{{1, 0}, {3, 0}},
	})
	require.NoError(t, err)

	matches, err := store.Search(ctx, name, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "long vector", matches[0].Text)
	assert.InDelta(t, 3.0, matches[0].Score, 1e-6)
}
