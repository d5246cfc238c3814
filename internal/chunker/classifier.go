package chunker

import "github.com/dshills/scopeiq/pkg/types"

// SectionClassifier decides the ChunkType of a document section.
// Implementations must be pure functions of the section text.
type SectionClassifier interface {
	Name() string
	Classify(section string) types.ChunkType
}

// VocabularyClassifier is the primary classifier. It combines construction
// schedule vocabulary, normative specification language and layout.
//
// Priority:
//  1. schedule vocabulary: table if tabular, specification if written as a
//     requirement, otherwise schedule
//  2. header (all caps or title/sheet markers)
//  3. specification language
//  4. table
//  5. general
type VocabularyClassifier struct{}

// Name returns the classifier name
func (VocabularyClassifier) Name() string {
	return "vocabulary"
}

// Classify returns the chunk type for section
func (VocabularyClassifier) Classify(section string) types.ChunkType {
	tabular := looksTabular(section)

	if scheduleVocabulary.MatchString(section) {
		switch {
		case tabular:
			return types.ChunkTable
		case specificationLanguage.MatchString(section):
			return types.ChunkSpecification
		default:
			return types.ChunkSchedule
		}
	}

	switch {
	case looksLikeHeader(section):
		return types.ChunkHeader
	case specificationLanguage.MatchString(section):
		return types.ChunkSpecification
	case tabular:
		return types.ChunkTable
	default:
		return types.ChunkGeneral
	}
}

// LayoutClassifier uses only the visual shape of a section. It is the
// fallback when vocabulary matching is not wanted (e.g. non-English sets).
type LayoutClassifier struct{}

// Name returns the classifier name
func (LayoutClassifier) Name() string {
	return "layout"
}

// Classify returns the chunk type for section
func (LayoutClassifier) Classify(section string) types.ChunkType {
	switch {
	case looksTabular(section):
		return types.ChunkTable
	case looksLikeHeader(section):
		return types.ChunkHeader
	default:
		return types.ChunkGeneral
	}
}
