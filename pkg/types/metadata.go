package types

import "errors"

// Source identifies which kind of partition produced a search result
type Source string

const (
	SourceProject Source = "project"
	SourceCommon  Source = "common"
)

// ChunkMetadata is the metadata record stored alongside every vector.
// Required fields are typed; anything else goes in Extra.
type ChunkMetadata struct {
	DocumentID      string            `json:"documentId"`
	DocumentName    string            `json:"documentName,omitempty"`
	ChunkType       ChunkType         `json:"chunkType"`
	ChunkIndex      int               `json:"chunkIndex"`
	TotalChunks     int               `json:"totalChunks"`
	HasNumbers      bool              `json:"hasNumbers"`
	HasMeasurements bool              `json:"hasMeasurements"`
	MatchedTerms    []string          `json:"matchedTerms,omitempty"`
	Source          Source            `json:"source,omitempty"`
	Partition       string            `json:"partition,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Validate checks the fields every stored record must carry
func (m *ChunkMetadata) Validate() error {
	if m.DocumentID == "" {
		return errors.New("metadata document ID is required")
	}
	if !m.ChunkType.Valid() {
		return errors.New("metadata chunk type is invalid")
	}
	return nil
}

// Clone returns a deep copy so results never share slices or maps
func (m ChunkMetadata) Clone() ChunkMetadata {
	out := m
	if m.MatchedTerms != nil {
		out.MatchedTerms = make([]string, len(m.MatchedTerms))
		copy(out.MatchedTerms, m.MatchedTerms)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
