// Package embedder converts document text into vector embeddings.
//
// Hosted providers (OpenAI, Jina AI, or any API speaking the same
// POST {model, input} -> {data: [{embedding}]} contract via a custom base URL)
// are served by RemoteProvider. LocalProvider produces deterministic
// feature-hashed vectors without network access.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "openai"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "All interior doors shall be 3'-0\" x 7'-0\"",
//	})
//
// # Errors
//
// Failures are reported with the shared error taxonomy in pkg/types:
//   - ErrEmptyInput: blank text, nothing is sent
//   - ErrAuth: missing credential at construction, or HTTP 401/403
//   - ErrRateLimited: HTTP 429, retried with exponential backoff
//   - ErrValidation: HTTP 400
//   - ErrUpstream: any other non-2xx status or a malformed body
//
// Only rate limits are retried. Input longer than MaxInputChars (8000 by
// default) is truncated and a warning is logged.
//
// # Caching and Rate Limiting
//
// An optional LRU cache keyed by model and text hash avoids re-embedding
// identical text. It is disabled unless a cache size is configured. An
// optional token-bucket RateLimiter paces requests and backs off after 429s.
//
// # Thread Safety
//
// All providers are safe for concurrent use.
package embedder
