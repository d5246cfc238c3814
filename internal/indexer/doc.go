// Package indexer is the ingestion entry point: it chunks extracted document
// text, embeds every chunk and stores the vectors in a partition.
//
// # Basic Usage
//
//	p, _ := partition.ForProject("harbor-view")
//	idx := indexer.New(chunker.New(), emb, router, indexer.Config{})
//
//	report, err := idx.IngestDocument(ctx, indexer.Document{
//	    ID:        "spec-08",
//	    Name:      "Division 08 Openings",
//	    Content:   text,
//	    Partition: p,
//	}, nil)
//
//	fmt.Printf("%d/%d chunks stored, %d failed\n", report.Succeeded, report.Total, report.Failed)
//
// # Backpressure
//
// Chunks are embedded in batches of Config.BatchSize (default 5) concurrent
// requests with Config.BatchDelay between batches. Each batch that embeds
// successfully is upserted before the next one starts.
//
// # Failure Isolation
//
// A chunk whose embedding fails is logged with its document id and chunk
// index and recorded in Report.Failures. The other chunks carry on. A failed
// upsert marks every chunk of that batch as failed.
//
// # Incremental Ingestion
//
// The SHA-256 of the document text is stored with each run. Re-ingesting
// identical text after a run with no failures is a no-op reported as skipped
// chunks, unless Options.Force is set. Changed text replaces every chunk the
// previous run stored.
//
// Concurrent ingestion of the same document into the same partition is
// rejected with ErrIngestInProgress.
package indexer
