package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopeiq/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id, docID string, vector []float32) VectorRecord {
	return VectorRecord{
		ID:      id,
		Vector:  vector,
		Content: "content of " + id,
		Metadata: types.ChunkMetadata{
			DocumentID:   docID,
			DocumentName: docID + ".pdf",
			ChunkType:    types.ChunkGeneral,
			TotalChunks:  1,
			MatchedTerms: []string{"door"},
		},
	}
}

func TestNewSQLiteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scopeiq.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// reopening applies no migrations twice
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	status, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)
}

func TestUpsertAndQuery(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "project_a", []VectorRecord{
		record("a1", "doc-1", []float32{1, 0, 0}),
		record("a2", "doc-1", []float32{0.8, 0.6, 0}),
		record("a3", "doc-2", []float32{0, 0, 1}),
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, "project_a", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a1", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "a2", matches[1].ID)
	assert.InDelta(t, 0.8, matches[1].Score, 1e-6)

	assert.Equal(t, "content of a1", matches[0].Content)
	assert.Equal(t, "doc-1", matches[0].Metadata.DocumentID)
	assert.Equal(t, types.ChunkGeneral, matches[0].Metadata.ChunkType)
	assert.Equal(t, []string{"door"}, matches[0].Metadata.MatchedTerms)
}

func TestUpsert_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := record("x", "doc-1", []float32{1, 1})
	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{rec}))
	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{rec}))

	matches, err := store.Query(ctx, "ns", []float32{1, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// latest write wins
	rec.Content = "revised"
	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{rec}))

	matches, err = store.Query(ctx, "ns", []float32{1, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "revised", matches[0].Content)
}

func TestUpsert_RejectsBadRecordsAtomically(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "ns", []VectorRecord{
		record("good", "doc-1", []float32{1}),
		record("", "doc-1", []float32{1}),
	})
	require.Error(t, err)

	matches, err := store.Query(ctx, "ns", []float32{1}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, matches, "failed batch must not leave partial writes")

	assert.Error(t, store.Upsert(ctx, "", []VectorRecord{record("a", "d", []float32{1})}))
	assert.Error(t, store.Upsert(ctx, "ns", []VectorRecord{record("a", "d", nil)}))
	assert.NoError(t, store.Upsert(ctx, "ns", nil))
}

func TestQuery_NamespaceIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	vec := []float32{0.3, 0.4, 0.5}

	require.NoError(t, store.Upsert(ctx, "project_a", []VectorRecord{record("shared-id", "doc-a", vec)}))
	require.NoError(t, store.Upsert(ctx, "project_b", []VectorRecord{record("only-b", "doc-b", vec)}))

	matches, err := store.Query(ctx, "project_b", vec, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "only-b", matches[0].ID)

	matches, err = store.Query(ctx, "project_c", vec, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQuery_DocumentFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{
		record("d1-0", "doc-1", []float32{1, 0}),
		record("d2-0", "doc-2", []float32{1, 0}),
		record("d2-1", "doc-2", []float32{0, 1}),
	}))

	matches, err := store.Query(ctx, "ns", []float32{1, 0}, 10, &QueryFilter{DocumentID: "doc-2"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "doc-2", m.Metadata.DocumentID)
	}
	assert.Equal(t, "d2-0", matches[0].ID)
}

func TestQuery_EdgeCases(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{
		record("three", "doc", []float32{1, 0, 0}),
		record("two", "doc", []float32{1, 0}),
	}))

	// zero topK returns nothing
	matches, err := store.Query(ctx, "ns", []float32{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// rows of another dimension are ignored
	matches, err = store.Query(ctx, "ns", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "two", matches[0].ID)

	_, err = store.Query(ctx, "ns", nil, 10, nil)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{
		record("a", "doc", []float32{1}),
		record("b", "doc", []float32{1}),
	}))
	require.NoError(t, store.Upsert(ctx, "other", []VectorRecord{record("a", "doc", []float32{1})}))

	n, err := store.Delete(ctx, "ns", []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := store.ListIDsByDocument(ctx, "ns", "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	// same id in another namespace is untouched
	ids, err = store.ListIDsByDocument(ctx, "other", "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	n, err = store.Delete(ctx, "ns", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDelete_LargeBatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	records := make([]VectorRecord, 1200)
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = fmt.Sprintf("chunk_%04d", i)
		records[i] = record(ids[i], "doc", []float32{1, float32(i)})
	}
	require.NoError(t, store.Upsert(ctx, "ns", records))

	n, err := store.Delete(ctx, "ns", ids)
	require.NoError(t, err)
	assert.Equal(t, 1200, n)
}

func TestDocuments(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "ns", "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	hash := sha256.Sum256([]byte("door schedule"))
	doc := &Document{
		Namespace:   "ns",
		DocumentID:  "doc-1",
		Name:        "A-601.pdf",
		ContentHash: hash,
		TotalChunks: 4,
		Failed:      1,
	}
	require.NoError(t, store.UpsertDocument(ctx, doc))
	assert.False(t, doc.IngestedAt.IsZero())

	got, err := store.GetDocument(ctx, "ns", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "A-601.pdf", got.Name)
	assert.Equal(t, hash, got.ContentHash)
	assert.Equal(t, 4, got.TotalChunks)
	assert.Equal(t, 1, got.Failed)
	assert.WithinDuration(t, doc.IngestedAt, got.IngestedAt, time.Second)

	doc.Failed = 0
	require.NoError(t, store.UpsertDocument(ctx, doc))
	got, err = store.GetDocument(ctx, "ns", "doc-1")
	require.NoError(t, err)
	assert.Zero(t, got.Failed)

	assert.Error(t, store.UpsertDocument(ctx, &Document{Namespace: "ns"}))
}

func TestDeleteDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "ns", []VectorRecord{
		record("d1-0", "doc-1", []float32{1}),
		record("d1-1", "doc-1", []float32{1}),
		record("d2-0", "doc-2", []float32{1}),
	}))
	require.NoError(t, store.UpsertDocument(ctx, &Document{Namespace: "ns", DocumentID: "doc-1", TotalChunks: 2}))

	n, err := store.DeleteDocument(ctx, "ns", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.GetDocument(ctx, "ns", "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := store.ListIDsByDocument(ctx, "ns", "doc-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2-0"}, ids)
}

func TestStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "project_a", []VectorRecord{
		record("a", "doc", []float32{1}),
		record("b", "doc", []float32{1}),
	}))
	require.NoError(t, store.Upsert(ctx, "common_safety", []VectorRecord{record("s", "osha", []float32{1})}))
	require.NoError(t, store.UpsertDocument(ctx, &Document{Namespace: "project_a", DocumentID: "doc"}))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalVectors)
	require.Len(t, status.Namespaces, 2)
	assert.Equal(t, NamespaceStats{Namespace: "common_safety", Vectors: 1, Documents: 0}, status.Namespaces[0])
	assert.Equal(t, NamespaceStats{Namespace: "project_a", Vectors: 2, Documents: 1}, status.Namespaces[1])
}

func TestMigrations_Rollback(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, store.db))
	v, err := schemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, ApplyMigrations(ctx, store.db))
	v, err = schemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}
