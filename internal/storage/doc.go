// Package storage provides the SQLite-backed vector store.
//
// Vectors live in named namespaces. A namespace is an isolated bucket: a
// query against one namespace never sees rows from another, even when ids
// collide. Each row keeps the chunk text, the little-endian float32 vector
// blob and the chunk metadata encoded as JSON.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.scopeiq/scopeiq.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Upsert(ctx, "project_tower_a", []storage.VectorRecord{{
//	    ID:       "doc-1_chunk_0",
//	    Vector:   vec,
//	    Content:  "All interior doors shall be ...",
//	    Metadata: chunk.Metadata(),
//	}})
//
//	matches, err := store.Query(ctx, "project_tower_a", queryVec, 10,
//	    &storage.QueryFilter{DocumentID: "doc-1"})
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and ranks candidates in Go.
// Building with -tags sqlite_vec switches to github.com/mattn/go-sqlite3 and
// ranks in SQL. Both return cosine similarity as Match.Score.
//
// # Documents
//
// Document records remember the content hash and chunk counts of the last
// ingestion so unchanged documents can be skipped.
//
// # Migrations
//
// Schema changes are versioned with semantic versions and applied on open.
package storage
