package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ChunkType represents the structural classification of a document chunk
type ChunkType string

const (
	ChunkHeader        ChunkType = "header"
	ChunkSchedule      ChunkType = "schedule"
	ChunkSpecification ChunkType = "specification"
	ChunkTable         ChunkType = "table"
	ChunkGeneral       ChunkType = "general"
)

// AllChunkTypes lists every valid chunk type
func AllChunkTypes() []ChunkType {
	return []ChunkType{ChunkHeader, ChunkSchedule, ChunkSpecification, ChunkTable, ChunkGeneral}
}

// Valid reports whether t is one of the known chunk types
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkHeader, ChunkSchedule, ChunkSpecification, ChunkTable, ChunkGeneral:
		return true
	default:
		return false
	}
}

// DocumentChunk is a bounded-size unit of document text prepared for embedding.
// Chunks are immutable once produced by the chunker.
type DocumentChunk struct {
	// Identification
	ID          string
	ChunkIndex  int
	TotalChunks int

	// Owning document (lookup only)
	DocumentID   string
	DocumentName string

	// Content
	Content     string
	ContentHash [32]byte

	// Derived features
	ChunkType       ChunkType
	HasNumbers      bool
	HasMeasurements bool
	MatchedTerms    []string
}

// ChunkID builds the stable chunk identifier for a document position
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *DocumentChunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// Validate performs comprehensive validation of the chunk
func (c *DocumentChunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.DocumentID == "" {
		return errors.New("document ID is required")
	}

	if !c.ChunkType.Valid() {
		return fmt.Errorf("invalid chunk type %q", c.ChunkType)
	}

	if c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return fmt.Errorf("chunk index %d out of range [0, %d)", c.ChunkIndex, c.TotalChunks)
	}

	if c.ID != ChunkID(c.DocumentID, c.ChunkIndex) {
		return fmt.Errorf("chunk ID %q does not match document position", c.ID)
	}

	return nil
}

// Metadata returns the store metadata record for this chunk.
// Source and Partition are filled in by the partition router.
func (c *DocumentChunk) Metadata() ChunkMetadata {
	var terms []string
	if len(c.MatchedTerms) > 0 {
		terms = make([]string, len(c.MatchedTerms))
		copy(terms, c.MatchedTerms)
	}

	return ChunkMetadata{
		DocumentID:      c.DocumentID,
		DocumentName:    c.DocumentName,
		ChunkType:       c.ChunkType,
		ChunkIndex:      c.ChunkIndex,
		TotalChunks:     c.TotalChunks,
		HasNumbers:      c.HasNumbers,
		HasMeasurements: c.HasMeasurements,
		MatchedTerms:    terms,
	}
}
