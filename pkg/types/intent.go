package types

// QueryIntent is the lexical classification of a natural-language query
type QueryIntent struct {
	IsGeneric         bool
	IsProjectSpecific bool

	// Terms that triggered each side, kept for explanation
	GenericTerms []string
	ProjectTerms []string
}

// IsAmbiguous is true when neither flag is set, which routes to hybrid search
func (q QueryIntent) IsAmbiguous() bool {
	return !q.IsGeneric && !q.IsProjectSpecific
}
