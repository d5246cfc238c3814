// Package types provides shared type definitions for the ScopeIQ retrieval core.
//
// This package defines the domain types passed between the chunker, the
// partition router, the hybrid query engine and the domain search filter.
//
// # Core Types
//
// DocumentChunk is a bounded-size unit of document text with derived features:
//
//	chunk := &types.DocumentChunk{
//	    ID:         types.ChunkID("spec-08", 3),
//	    DocumentID: "spec-08",
//	    Content:    "All interior doors shall be 3'-0\" x 7'-0\".",
//	    ChunkType:  types.ChunkSpecification,
//	}
//
// ChunkMetadata is the schema'd record stored with each vector. Required
// fields (DocumentID, ChunkType) are typed; free-form attributes live in Extra.
//
// SearchResult carries a distance from the vector store; Similarity() is
// 1 - Distance and AdjustedScore is the similarity after partition weighting.
//
// # Errors
//
// All components wrap one of the taxonomy sentinels:
//
//	ErrValidation  // malformed caller input
//	ErrAuth        // missing or rejected credential
//	ErrRateLimited // retryable upstream threshold
//	ErrUpstream    // permanent upstream failure
//	ErrEmptyInput  // blank text sent to the embedder
//
// Classify maps any error to configuration, transient or permanent so a
// single surfaced error tells the user what to do next.
package types
