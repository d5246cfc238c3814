package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/scopeiq/internal/chunker"
	"github.com/dshills/scopeiq/internal/config"
	"github.com/dshills/scopeiq/internal/embedder"
	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/internal/storage"
	"github.com/dshills/scopeiq/pkg/types"
)

const (
	// DefaultBatchSize is the number of chunk embeddings in flight at once
	DefaultBatchSize = 5

	// DefaultBatchDelay is the pause between embedding batches
	DefaultBatchDelay = 200 * time.Millisecond
)

// Writer is the partition-scoped storage the indexer writes through
type Writer interface {
	Upsert(ctx context.Context, p partition.Partition, ids []string, vectors [][]float32, metadatas []types.ChunkMetadata, contents []string) error
	Delete(ctx context.Context, p partition.Partition, ids []string) (int, error)
	ListDocumentIDs(ctx context.Context, p partition.Partition, documentID string) ([]string, error)
	GetDocument(ctx context.Context, p partition.Partition, documentID string) (*storage.Document, error)
	RecordDocument(ctx context.Context, p partition.Partition, doc *storage.Document) error
}

// Indexer coordinates the ingestion pipeline: chunk -> embed -> upsert
type Indexer struct {
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	writer   Writer

	batchSize  int
	batchDelay time.Duration
	locks      *documentLocks
}

// Config contains configuration for the indexer
type Config struct {
	BatchSize  int           // chunks embedded concurrently (default: 5)
	BatchDelay time.Duration // pause between batches (default: 200ms, negative disables)
}

// ConfigFrom converts the application ingestion settings
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BatchSize:  cfg.Ingest.BatchSize,
		BatchDelay: cfg.BatchDelay(),
	}
}

// Document is one piece of extracted text to ingest
type Document struct {
	ID        string
	Name      string
	Content   string
	Partition partition.Partition
	Extra     map[string]string // copied onto every chunk's metadata
}

// Options controls a single ingestion
type Options struct {
	Force bool // re-ingest even when the content is unchanged
}

// Failure records one chunk that could not be ingested
type Failure struct {
	ChunkID    string
	ChunkIndex int
	Err        error
}

// Report describes one document ingestion
type Report struct {
	RunID      string
	DocumentID string
	Namespace  string
	Total      int
	Succeeded  int
	Skipped    int
	Failed     int
	Failures   []Failure
	Duration   time.Duration
}

// DocumentError records a document that could not be ingested at all
type DocumentError struct {
	DocumentID string
	Err        error
}

// Summary aggregates a multi-document ingestion
type Summary struct {
	Documents int
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Reports   []*Report
	Errors    []DocumentError
	Duration  time.Duration
}

// New creates a new Indexer instance
func New(ch *chunker.Chunker, emb embedder.Embedder, w Writer, cfg Config) *Indexer {
	if ch == nil {
		ch = chunker.New()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}

	return &Indexer{
		chunker:    ch,
		embedder:   emb,
		writer:     w,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		locks:      newDocumentLocks(),
	}
}

// IngestDocument chunks, embeds and stores one document. A chunk whose
// embedding or upsert fails is counted and logged without stopping the rest.
// The returned error is reserved for problems that stop the whole document.
func (idx *Indexer) IngestDocument(ctx context.Context, doc Document, opts *Options) (*Report, error) {
	if opts == nil {
		opts = &Options{}
	}
	if strings.TrimSpace(doc.ID) == "" {
		return nil, types.ValidationErrorf("document ID is required")
	}
	if doc.Partition.Namespace == "" {
		return nil, types.ValidationErrorf("document %s has no partition", doc.ID)
	}
	if idx.embedder == nil || idx.writer == nil {
		return nil, errors.New("indexer not initialized")
	}

	release, ok := idx.locks.tryAcquire(doc.Partition.Namespace + "/" + doc.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIngestInProgress, doc.ID)
	}
	defer release()

	start := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		DocumentID: doc.ID,
		Namespace:  doc.Partition.Namespace,
	}
	hash := sha256.Sum256([]byte(doc.Content))

	skip, err := idx.unchanged(ctx, doc, hash, opts.Force, report)
	if err != nil {
		return nil, err
	}
	if skip {
		report.Duration = time.Since(start)
		logger.Info("ingest %s: unchanged, skipped %d chunks (run %s)", doc.ID, report.Skipped, report.RunID)
		return report, nil
	}

	chunks, err := idx.chunker.Chunk(doc.Content, doc.ID, doc.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document %s: %w", doc.ID, err)
	}
	report.Total = len(chunks)

	if err := idx.removeStale(ctx, doc); err != nil {
		return nil, err
	}

	for batchStart := 0; batchStart < len(chunks); batchStart += idx.batchSize {
		if batchStart > 0 && idx.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(idx.batchDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batchEnd := min(batchStart+idx.batchSize, len(chunks))
		idx.ingestBatch(ctx, doc, chunks[batchStart:batchEnd], report)
	}

	record := &storage.Document{
		DocumentID:  doc.ID,
		Name:        doc.Name,
		ContentHash: hash,
		TotalChunks: report.Total,
		Failed:      report.Failed,
	}
	if err := idx.writer.RecordDocument(ctx, doc.Partition, record); err != nil {
		return report, fmt.Errorf("failed to record document %s: %w", doc.ID, err)
	}

	report.Duration = time.Since(start)
	logger.Info("ingest %s into %s: %d chunks, %d succeeded, %d failed in %v (run %s)",
		doc.ID, report.Namespace, report.Total, report.Succeeded, report.Failed, report.Duration, report.RunID)
	return report, nil
}

// IngestDocuments ingests documents one after another. A document-level
// failure is recorded and the next document is attempted; cancellation
// stops the run.
func (idx *Indexer) IngestDocuments(ctx context.Context, docs []Document, opts *Options) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	for _, doc := range docs {
		report, err := idx.IngestDocument(ctx, doc, opts)
		if report != nil {
			summary.add(report)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				summary.Duration = time.Since(start)
				return summary, ctxErr
			}
			logger.Error("ingest %s: %v", doc.ID, err)
			summary.Errors = append(summary.Errors, DocumentError{DocumentID: doc.ID, Err: err})
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func (s *Summary) add(r *Report) {
	s.Documents++
	s.Total += r.Total
	s.Succeeded += r.Succeeded
	s.Skipped += r.Skipped
	s.Failed += r.Failed
	s.Reports = append(s.Reports, r)
}

// unchanged reports whether a previous clean run stored identical content
func (idx *Indexer) unchanged(ctx context.Context, doc Document, hash [32]byte, force bool, report *Report) (bool, error) {
	if force {
		return false, nil
	}

	prior, err := idx.writer.GetDocument(ctx, doc.Partition, doc.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load document %s: %w", doc.ID, err)
	}

	if prior.ContentHash != hash || prior.Failed > 0 {
		return false, nil
	}
	report.Total = prior.TotalChunks
	report.Skipped = prior.TotalChunks
	return true, nil
}

// removeStale deletes the chunks a previous run stored for the document
func (idx *Indexer) removeStale(ctx context.Context, doc Document) error {
	ids, err := idx.writer.ListDocumentIDs(ctx, doc.Partition, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list chunks of %s: %w", doc.ID, err)
	}
	if len(ids) == 0 {
		return nil
	}

	n, err := idx.writer.Delete(ctx, doc.Partition, ids)
	if err != nil {
		return fmt.Errorf("failed to delete old chunks of %s: %w", doc.ID, err)
	}
	logger.Debug("ingest %s: removed %d old chunks", doc.ID, n)
	return nil
}

// ingestBatch embeds a batch concurrently and upserts whatever succeeded
func (idx *Indexer) ingestBatch(ctx context.Context, doc Document, batch []*types.DocumentChunk, report *Report) {
	vectors := make([][]float32, len(batch))
	var (
		mu       sync.Mutex
		failures []Failure
	)

	// Failures are recorded per chunk so one chunk never cancels the others
	var wg sync.WaitGroup
	for i, chunk := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emb, err := idx.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: chunk.Content})
			if err != nil {
				logger.Warn("ingest %s: chunk %d embedding failed: %v", doc.ID, chunk.ChunkIndex, err)
				mu.Lock()
				failures = append(failures, Failure{ChunkID: chunk.ID, ChunkIndex: chunk.ChunkIndex, Err: err})
				mu.Unlock()
				return
			}
			vectors[i] = emb.Vector
		}()
	}
	wg.Wait()

	ids := make([]string, 0, len(batch))
	embedded := make([][]float32, 0, len(batch))
	metadatas := make([]types.ChunkMetadata, 0, len(batch))
	contents := make([]string, 0, len(batch))
	var pending []*types.DocumentChunk

	for i, chunk := range batch {
		if vectors[i] == nil {
			continue
		}
		md := chunk.Metadata()
		if len(doc.Extra) > 0 {
			md.Extra = maps.Clone(doc.Extra)
		}
		ids = append(ids, chunk.ID)
		embedded = append(embedded, vectors[i])
		metadatas = append(metadatas, md)
		contents = append(contents, chunk.Content)
		pending = append(pending, chunk)
	}

	if len(ids) > 0 {
		if err := idx.writer.Upsert(ctx, doc.Partition, ids, embedded, metadatas, contents); err != nil {
			logger.Warn("ingest %s: upsert of chunks %d-%d failed: %v",
				doc.ID, pending[0].ChunkIndex, pending[len(pending)-1].ChunkIndex, err)
			for _, chunk := range pending {
				failures = append(failures, Failure{ChunkID: chunk.ID, ChunkIndex: chunk.ChunkIndex, Err: err})
			}
		} else {
			report.Succeeded += len(ids)
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].ChunkIndex < failures[j].ChunkIndex })
	report.Failed += len(failures)
	report.Failures = append(report.Failures, failures...)
}
