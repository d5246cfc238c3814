package types

// SearchResult represents a single ranked match from one or more partitions
type SearchResult struct {
	// Identification
	ID   string
	Rank int // Position in result set (1-based), 0 until ranked

	// Content
	Content  string
	Metadata ChunkMetadata

	// Scoring
	Distance      float64 // 1 - store score
	AdjustedScore float64 // similarity scaled by partition weight
}

// Similarity is the derived ranking score
func (sr *SearchResult) Similarity() float64 {
	return 1 - sr.Distance
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ID == "" {
		return ErrInvalidResultID
	}

	if sr.Rank < 0 {
		return ErrInvalidRank
	}

	if sr.Distance < 0 || sr.Distance > 2 {
		return ErrInvalidDistance
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return sr.Metadata.Validate()
}
