package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// searchVectors returns the topK nearest vectors in a namespace
func searchVectors(ctx context.Context, q querier, namespace string, queryVector []float32, topK int, filter *QueryFilter) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	// Use SQL-side distance when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorsOptimized(ctx, q, namespace, queryVector, topK, filter)
	}
	return searchVectorsFallback(ctx, q, namespace, queryVector, topK, filter)
}

// searchVectorsOptimized ranks in SQL with vec_distance_cosine
func searchVectorsOptimized(ctx context.Context, q querier, namespace string, queryVector []float32, topK int, filter *QueryFilter) ([]Match, error) {
	query := `
		SELECT id, content, metadata, 1.0 - vec_distance_cosine(vector, ?) AS score
		FROM vectors
		WHERE namespace = ? AND dimension = ?
	`
	args := []interface{}{serializeVector(queryVector), namespace, len(queryVector)}

	if filter != nil && filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}

	query += " ORDER BY score DESC, id ASC LIMIT ?"
	args = append(args, topK)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		var metadata string
		if err := rows.Scan(&m.ID, &m.Content, &metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", m.ID, err)
		}
		results = append(results, m)
	}

	return results, rows.Err()
}

// searchVectorsFallback scores every candidate in Go (purego builds)
func searchVectorsFallback(ctx context.Context, q querier, namespace string, queryVector []float32, topK int, filter *QueryFilter) ([]Match, error) {
	query := `
		SELECT id, content, metadata, vector
		FROM vectors
		WHERE namespace = ? AND dimension = ?
	`
	args := []interface{}{namespace, len(queryVector)}

	if filter != nil && filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 256)
	for rows.Next() {
		var c candidate
		var blob []byte
		if err := rows.Scan(&c.id, &c.content, &c.metadata, &blob); err != nil {
			return nil, err
		}
		c.score = cosineSimilarity(queryVector, deserializeVector(blob))
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	// Decode metadata only for the survivors
	results := make([]Match, len(candidates))
	for i, c := range candidates {
		results[i] = Match{ID: c.id, Score: c.score, Content: c.content}
		if err := json.Unmarshal([]byte(c.metadata), &results[i].Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", c.id, err)
		}
	}
	return results, nil
}

// candidate is a scored row awaiting ranking
type candidate struct {
	id       string
	content  string
	metadata string
	score    float64
}

// sortCandidates orders by score descending, then id for a stable ranking
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// cosineSimilarity returns 0 for mismatched or zero vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors just past 1
	return math.Max(-1, math.Min(1, sim))
}
