package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// deleteBatchSize keeps IN (...) lists under SQLite's variable limit
const deleteBatchSize = 500

// SQLiteStore implements VectorStore using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL lets readers proceed during ingestion writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (or creates) the store at dbPath and applies migrations.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, rolling back on error
func (s *SQLiteStore) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Vector operations

// Upsert writes records atomically. Re-upserting an id overwrites it.
func (s *SQLiteStore) Upsert(ctx context.Context, namespace string, records []VectorRecord) error {
	if namespace == "" {
		return errors.New("namespace is required")
	}
	if len(records) == 0 {
		return nil
	}

	return s.withTx(ctx, func(q querier) error {
		for i := range records {
			if err := upsertVectorWithQuerier(ctx, q, namespace, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertVectorWithQuerier(ctx context.Context, q querier, namespace string, rec *VectorRecord) error {
	if rec.ID == "" {
		return errors.New("record ID is required")
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("record %s has an empty vector", rec.ID)
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", rec.ID, err)
	}

	query := `
		INSERT INTO vectors (namespace, id, document_id, chunk_type, content, vector, dimension, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_type = excluded.chunk_type,
			content = excluded.content,
			vector = excluded.vector,
			dimension = excluded.dimension,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query,
		namespace, rec.ID, rec.Metadata.DocumentID, string(rec.Metadata.ChunkType),
		rec.Content, serializeVector(rec.Vector), len(rec.Vector), string(metadata), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert vector %s: %w", rec.ID, err)
	}
	return nil
}

// Query returns up to topK records nearest to vector within namespace
func (s *SQLiteStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *QueryFilter) ([]Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector is empty")
	}
	return searchVectors(ctx, s.db, namespace, vector, topK, filter)
}

// Delete removes ids from namespace and reports how many existed
func (s *SQLiteStore) Delete(ctx context.Context, namespace string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleted := 0
	err := s.withTx(ctx, func(q querier) error {
		for start := 0; start < len(ids); start += deleteBatchSize {
			end := min(start+deleteBatchSize, len(ids))
			n, err := deleteVectorsWithQuerier(ctx, q, namespace, ids[start:end])
			if err != nil {
				return err
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func deleteVectorsWithQuerier(ctx context.Context, q querier, namespace string, ids []string) (int, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, namespace)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf("DELETE FROM vectors WHERE namespace = ? AND id IN (%s)", placeholders)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vectors: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(affected), nil
}

// ListIDsByDocument returns the ids stored for one document, ordered by id
func (s *SQLiteStore) ListIDsByDocument(ctx context.Context, namespace, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM vectors WHERE namespace = ? AND document_id = ? ORDER BY id",
		namespace, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Document operations

// GetDocument returns ErrNotFound when the document was never ingested
func (s *SQLiteStore) GetDocument(ctx context.Context, namespace, documentID string) (*Document, error) {
	query := `
		SELECT namespace, document_id, name, content_hash, total_chunks, failed_chunks, ingested_at
		FROM documents
		WHERE namespace = ? AND document_id = ?
	`
	var doc Document
	var name sql.NullString
	var hash []byte
	err := s.db.QueryRowContext(ctx, query, namespace, documentID).Scan(
		&doc.Namespace, &doc.DocumentID, &name, &hash,
		&doc.TotalChunks, &doc.Failed, &doc.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Name = name.String
	copy(doc.ContentHash[:], hash)
	return &doc, nil
}

// UpsertDocument records an ingestion run
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc.Namespace == "" || doc.DocumentID == "" {
		return errors.New("document namespace and ID are required")
	}
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now()
	}

	query := `
		INSERT INTO documents (namespace, document_id, name, content_hash, total_chunks, failed_chunks, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, document_id) DO UPDATE SET
			name = excluded.name,
			content_hash = excluded.content_hash,
			total_chunks = excluded.total_chunks,
			failed_chunks = excluded.failed_chunks,
			ingested_at = excluded.ingested_at
	`
	_, err := s.db.ExecContext(ctx, query,
		doc.Namespace, doc.DocumentID, doc.Name, doc.ContentHash[:],
		doc.TotalChunks, doc.Failed, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// DeleteDocument removes a document's vectors and its record
func (s *SQLiteStore) DeleteDocument(ctx context.Context, namespace, documentID string) (int, error) {
	deleted := 0
	err := s.withTx(ctx, func(q querier) error {
		result, err := q.ExecContext(ctx,
			"DELETE FROM vectors WHERE namespace = ? AND document_id = ?", namespace, documentID)
		if err != nil {
			return fmt.Errorf("failed to delete document vectors: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		deleted = int(n)

		_, err = q.ExecContext(ctx,
			"DELETE FROM documents WHERE namespace = ? AND document_id = ?", namespace, documentID)
		if err != nil {
			return fmt.Errorf("failed to delete document record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Status operations

// Status reports per-namespace counts and database size
func (s *SQLiteStore) Status(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	query := `
		SELECT ns,
			(SELECT COUNT(*) FROM vectors v WHERE v.namespace = ns),
			(SELECT COUNT(*) FROM documents d WHERE d.namespace = ns)
		FROM (
			SELECT namespace AS ns FROM vectors
			UNION
			SELECT namespace AS ns FROM documents
		)
		ORDER BY ns
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count namespaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ns NamespaceStats
		if err := rows.Scan(&ns.Namespace, &ns.Vectors, &ns.Documents); err != nil {
			return nil, err
		}
		status.TotalVectors += ns.Vectors
		status.Namespaces = append(status.Namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}
