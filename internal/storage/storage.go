package storage

import (
	"context"
	"time"

	"github.com/dshills/scopeiq/pkg/types"
)

// VectorStore persists vectors in isolated namespaces and answers
// nearest-neighbour queries within one namespace at a time
type VectorStore interface {
	// Vector operations
	Upsert(ctx context.Context, namespace string, records []VectorRecord) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *QueryFilter) ([]Match, error)
	Delete(ctx context.Context, namespace string, ids []string) (int, error)
	ListIDsByDocument(ctx context.Context, namespace, documentID string) ([]string, error)

	// Document operations
	GetDocument(ctx context.Context, namespace, documentID string) (*Document, error)
	UpsertDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, namespace, documentID string) (int, error)

	// Status operations
	Status(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
}

// VectorRecord is one stored vector with its chunk text and metadata
type VectorRecord struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata types.ChunkMetadata
}

// QueryFilter narrows a query. The zero value matches everything.
type QueryFilter struct {
	DocumentID string
}

// Match is a query hit. Score is cosine similarity in [-1, 1].
type Match struct {
	ID       string
	Score    float64
	Content  string
	Metadata types.ChunkMetadata
}

// Document tracks the last ingestion of one document into a namespace
type Document struct {
	Namespace   string
	DocumentID  string
	Name        string
	ContentHash [32]byte
	TotalChunks int
	Failed      int
	IngestedAt  time.Time
}

// NamespaceStats counts the contents of one namespace
type NamespaceStats struct {
	Namespace string `json:"namespace"`
	Vectors   int    `json:"vectors"`
	Documents int    `json:"documents"`
}

// Status describes the whole store
type Status struct {
	Namespaces    []NamespaceStats `json:"namespaces"`
	TotalVectors  int              `json:"total_vectors"`
	SizeMB        float64          `json:"size_mb"`
	SchemaVersion string           `json:"schema_version"`
	BuildMode     string           `json:"build_mode"`
}
