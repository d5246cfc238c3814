package partition

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/scopeiq/internal/storage"
	"github.com/dshills/scopeiq/pkg/types"
)

// Router maps partitions to store namespaces and performs single-partition
// operations. It never merges across partitions.
type Router struct {
	store storage.VectorStore
}

// NewRouter creates a router over store
func NewRouter(store storage.VectorStore) *Router {
	return &Router{store: store}
}

// Upsert writes parallel slices of ids, vectors, metadata and chunk text into
// p. All four must have the same length. Re-upserting an id overwrites it.
func (r *Router) Upsert(ctx context.Context, p Partition, ids []string, vectors [][]float32, metadatas []types.ChunkMetadata, contents []string) error {
	if err := validatePartition(p); err != nil {
		return err
	}
	if len(ids) != len(vectors) || len(ids) != len(metadatas) || len(ids) != len(contents) {
		return types.ValidationErrorf("length mismatch: %d ids, %d vectors, %d metadatas, %d contents",
			len(ids), len(vectors), len(metadatas), len(contents))
	}
	if len(ids) == 0 {
		return nil
	}

	dim := len(vectors[0])
	records := make([]storage.VectorRecord, len(ids))
	for i := range ids {
		if strings.TrimSpace(ids[i]) == "" {
			return types.ValidationErrorf("id at index %d is blank", i)
		}
		if len(vectors[i]) == 0 || len(vectors[i]) != dim {
			return types.ValidationErrorf("vector %s has dimension %d, expected %d", ids[i], len(vectors[i]), dim)
		}
		if err := metadatas[i].Validate(); err != nil {
			return types.ValidationErrorf("metadata %s: %v", ids[i], err)
		}

		md := metadatas[i].Clone()
		md.Source = p.Source()
		md.Partition = p.Namespace

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])

		records[i] = storage.VectorRecord{
			ID:       ids[i],
			Vector:   vec,
			Content:  contents[i],
			Metadata: md,
		}
	}

	if err := r.store.Upsert(ctx, p.Namespace, records); err != nil {
		return fmt.Errorf("upsert into %s: %w", p.Namespace, err)
	}
	return nil
}

// Query returns up to topK nearest results from p, optionally restricted to
// one document. topK is clamped to [1, MaxTopK]. Results are ranked from 1.
func (r *Router) Query(ctx context.Context, p Partition, vector []float32, topK int, documentID string) ([]types.SearchResult, error) {
	if err := validatePartition(p); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, types.ValidationErrorf("query vector is empty")
	}

	var filter *storage.QueryFilter
	if documentID != "" {
		filter = &storage.QueryFilter{DocumentID: documentID}
	}

	matches, err := r.store.Query(ctx, p.Namespace, vector, ClampTopK(topK), filter)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.Namespace, err)
	}

	results := make([]types.SearchResult, len(matches))
	for i, m := range matches {
		md := m.Metadata.Clone()
		md.Source = p.Source()
		md.Partition = p.Namespace

		results[i] = types.SearchResult{
			ID:       m.ID,
			Rank:     i + 1,
			Content:  m.Content,
			Metadata: md,
			Distance: scoreToDistance(m.Score),
		}
	}
	return results, nil
}

// Delete removes ids from p
func (r *Router) Delete(ctx context.Context, p Partition, ids []string) (int, error) {
	if err := validatePartition(p); err != nil {
		return 0, err
	}
	n, err := r.store.Delete(ctx, p.Namespace, ids)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", p.Namespace, err)
	}
	return n, nil
}

// ListDocumentIDs returns the chunk ids currently stored for a document
func (r *Router) ListDocumentIDs(ctx context.Context, p Partition, documentID string) ([]string, error) {
	if err := validatePartition(p); err != nil {
		return nil, err
	}
	return r.store.ListIDsByDocument(ctx, p.Namespace, documentID)
}

// DeleteDocument removes every chunk of a document and its ingestion record
func (r *Router) DeleteDocument(ctx context.Context, p Partition, documentID string) (int, error) {
	if err := validatePartition(p); err != nil {
		return 0, err
	}
	return r.store.DeleteDocument(ctx, p.Namespace, documentID)
}

// GetDocument returns the last ingestion record for a document in p
func (r *Router) GetDocument(ctx context.Context, p Partition, documentID string) (*storage.Document, error) {
	if err := validatePartition(p); err != nil {
		return nil, err
	}
	return r.store.GetDocument(ctx, p.Namespace, documentID)
}

// RecordDocument stores an ingestion record for a document in p
func (r *Router) RecordDocument(ctx context.Context, p Partition, doc *storage.Document) error {
	if err := validatePartition(p); err != nil {
		return err
	}
	doc.Namespace = p.Namespace
	return r.store.UpsertDocument(ctx, doc)
}

// Status reports store-wide counts
func (r *Router) Status(ctx context.Context) (*storage.Status, error) {
	return r.store.Status(ctx)
}

func validatePartition(p Partition) error {
	if p.Namespace == "" || (p.Kind != KindProject && p.Kind != KindCommon) {
		return types.ValidationErrorf("invalid partition %+v", p)
	}
	return nil
}

// scoreToDistance converts a similarity score to distance, kept within [0, 2]
func scoreToDistance(score float64) float64 {
	d := 1 - score
	switch {
	case d < 0:
		return 0
	case d > 2:
		return 2
	default:
		return d
	}
}
