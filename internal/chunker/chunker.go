package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dshills/scopeiq/pkg/types"
)

const (
	// DefaultMaxChunkSize is the maximum chunk length in characters
	DefaultMaxChunkSize = 1000

	// DefaultMinSectionLength drops sections shorter than this (unless tabular)
	DefaultMinSectionLength = 50
)

var (
	sectionBreak = regexp.MustCompile(`\n[ \t]*\n`)

	// a sentence piece ends at terminal punctuation followed by whitespace, or at a line break
	sentencePiece = regexp.MustCompile(`[^\n]*?(?:[.!?]+["')\]]*\s+|\n+)`)

	wordPiece = regexp.MustCompile(`\S+\s*`)
)

// Chunker splits raw document text into classified, size-bounded chunks
type Chunker struct {
	maxChunkSize     int
	minSectionLength int
	classifier       SectionClassifier
}

// Option configures a Chunker
type Option func(*Chunker)

// WithMaxChunkSize sets the chunk size limit in characters
func WithMaxChunkSize(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChunkSize = n
		}
	}
}

// WithMinSectionLength sets the minimum retained section length
func WithMinSectionLength(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minSectionLength = n
		}
	}
}

// WithClassifier replaces the default VocabularyClassifier
func WithClassifier(sc SectionClassifier) Option {
	return func(c *Chunker) {
		if sc != nil {
			c.classifier = sc
		}
	}
}

// New creates a new Chunker
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChunkSize:     DefaultMaxChunkSize,
		minSectionLength: DefaultMinSectionLength,
		classifier:       VocabularyClassifier{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxChunkSize returns the configured size limit
func (c *Chunker) MaxChunkSize() int {
	return c.maxChunkSize
}

// Chunk splits content into ordered chunks. The result is a pure function of
// the inputs: the same content always produces the same chunks.
func (c *Chunker) Chunk(content, documentID, documentName string) ([]*types.DocumentChunk, error) {
	if strings.TrimSpace(content) == "" {
		return []*types.DocumentChunk{}, nil
	}
	if documentID == "" {
		return nil, types.ValidationErrorf("document ID is required")
	}

	chunks := make([]*types.DocumentChunk, 0)
	for _, section := range c.sections(content) {
		chunkType := c.classifier.Classify(section)
		hasNumbers := HasNumbers(section)
		hasMeasurements := HasMeasurements(section)

		for _, piece := range c.split(section) {
			chunks = append(chunks, &types.DocumentChunk{
				DocumentID:      documentID,
				DocumentName:    documentName,
				Content:         piece,
				ChunkType:       chunkType,
				HasNumbers:      hasNumbers,
				HasMeasurements: hasMeasurements,
				MatchedTerms:    MatchTerms(piece),
			})
		}
	}

	total := len(chunks)
	for i, chunk := range chunks {
		chunk.ChunkIndex = i
		chunk.TotalChunks = total
		chunk.ID = types.ChunkID(documentID, i)
		chunk.ComputeContentHash()
	}

	return chunks, nil
}

// sections splits on blank lines and drops fragments too short to carry
// meaning. Short tables survive: a two-row schedule is still a schedule.
func (c *Chunker) sections(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var out []string
	for _, raw := range sectionBreak.Split(content, -1) {
		section := strings.TrimSpace(raw)
		if section == "" {
			continue
		}
		if utf8.RuneCountInString(section) < c.minSectionLength && !looksTabular(section) {
			continue
		}
		out = append(out, section)
	}
	return out
}

// split bounds a section to maxChunkSize: sentences first, then words, then
// a hard cut for single tokens that are still too long.
func (c *Chunker) split(section string) []string {
	if utf8.RuneCountInString(section) <= c.maxChunkSize {
		return []string{section}
	}
	return c.pack(pieces(sentencePiece, section), c.splitWords)
}

func (c *Chunker) splitWords(text string) []string {
	return c.pack(pieces(wordPiece, text), c.splitRunes)
}

func (c *Chunker) splitRunes(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	for start := 0; start < len(runes); start += c.maxChunkSize {
		end := min(start+c.maxChunkSize, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// pack greedily accumulates pieces into chunks no longer than maxChunkSize.
// A piece that alone exceeds the limit is handed to oversize.
func (c *Chunker) pack(parts []string, oversize func(string) []string) []string {
	var out []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, part := range parts {
		if utf8.RuneCountInString(strings.TrimSpace(part)) > c.maxChunkSize {
			flush()
			out = append(out, oversize(part)...)
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(cur.String()+part)) > c.maxChunkSize {
			flush()
		}
		cur.WriteString(part)
	}
	flush()

	return out
}

// pieces cuts text at the end of each match of re, keeping separators so the
// original layout survives reassembly
func pieces(re *regexp.Regexp, text string) []string {
	var out []string
	start := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[1] <= start {
			continue
		}
		out = append(out, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
