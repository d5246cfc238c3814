package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-1_chunk_0", ChunkID("doc-1", 0))
	assert.Equal(t, "doc-1_chunk_12", ChunkID("doc-1", 12))
}

func TestDocumentChunk_Validate(t *testing.T) {
	valid := func() *DocumentChunk {
		return &DocumentChunk{
			ID:          ChunkID("doc", 1),
			ChunkIndex:  1,
			TotalChunks: 3,
			DocumentID:  "doc",
			Content:     "content",
			ChunkType:   ChunkGeneral,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *DocumentChunk)
		wantErr bool
	}{
		{"valid", func(c *DocumentChunk) {}, false},
		{"empty content", func(c *DocumentChunk) { c.Content = "" }, true},
		{"missing document", func(c *DocumentChunk) { c.DocumentID = "" }, true},
		{"bad type", func(c *DocumentChunk) { c.ChunkType = "drawing" }, true},
		{"index at total", func(c *DocumentChunk) { c.ChunkIndex = 3 }, true},
		{"negative index", func(c *DocumentChunk) { c.ChunkIndex = -1 }, true},
		{"mismatched id", func(c *DocumentChunk) { c.ID = "other" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocumentChunk_MetadataCopiesTerms(t *testing.T) {
	c := &DocumentChunk{DocumentID: "d", ChunkType: ChunkTable, MatchedTerms: []string{"door"}}
	md := c.Metadata()
	md.MatchedTerms[0] = "window"
	assert.Equal(t, "door", c.MatchedTerms[0])
	assert.Equal(t, ChunkTable, md.ChunkType)
}

func TestChunkMetadata_Clone(t *testing.T) {
	md := ChunkMetadata{
		DocumentID: "d",
		ChunkType:  ChunkGeneral,
		Extra:      map[string]string{"sheet": "A-101"},
	}
	cp := md.Clone()
	cp.Extra["sheet"] = "A-102"
	assert.Equal(t, "A-101", md.Extra["sheet"])
}

func TestSearchResult_Similarity(t *testing.T) {
	r := SearchResult{Distance: 0.25}
	assert.InDelta(t, 0.75, r.Similarity(), 1e-9)
}

func TestSearchResult_Validate(t *testing.T) {
	r := SearchResult{
		ID:       "x",
		Content:  "c",
		Distance: 0.1,
		Metadata: ChunkMetadata{DocumentID: "d", ChunkType: ChunkGeneral},
	}
	require.NoError(t, r.Validate())

	r.ID = ""
	assert.ErrorIs(t, r.Validate(), ErrInvalidResultID)
}

func TestQueryIntent_IsAmbiguous(t *testing.T) {
	assert.True(t, QueryIntent{}.IsAmbiguous())
	assert.False(t, QueryIntent{IsGeneric: true}.IsAmbiguous())
	assert.False(t, QueryIntent{IsProjectSpecific: true}.IsAmbiguous())
}

func TestClassify(t *testing.T) {
	rateLimited := &UpstreamError{Service: "embeddings", StatusCode: 429, Err: ErrRateLimited}
	unauthorized := &UpstreamError{Service: "embeddings", StatusCode: 401, Err: ErrAuth}

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassUnknown},
		{"auth", unauthorized, ClassConfiguration},
		{"wrapped auth", fmt.Errorf("search: %w", unauthorized), ClassConfiguration},
		{"rate limit", rateLimited, ClassTransient},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"validation", ValidationErrorf("topK %q", "ten"), ClassPermanent},
		{"empty", ErrEmptyInput, ClassPermanent},
		{"other", errors.New("boom"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&UpstreamError{Err: ErrRateLimited}))
	assert.False(t, IsRetryable(&UpstreamError{Err: ErrAuth}))
	assert.False(t, IsRetryable(ErrUpstream))
}

func TestUpstreamError_Error(t *testing.T) {
	err := &UpstreamError{Service: "embeddings", StatusCode: 500, Message: "oops", Err: ErrUpstream}
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "oops")
	assert.ErrorIs(t, err, ErrUpstream)
}
