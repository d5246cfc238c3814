package chunker

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopeiq/pkg/types"
)

const doorSpecAndTable = "All interior doors shall be 3'-0\" x 7'-0\" per Schedule D-1.\n\n" +
	"D1 | Wood | 3-0x7-0\nD2 | Wood | 2-8x7-0"

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestChunk_SpecificationAndTable(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(doorSpecAndTable, "doc-1", "A-601 Door Schedule")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := chunks[0]
	assert.Equal(t, "doc-1_chunk_0", first.ID)
	assert.Equal(t, types.ChunkSpecification, first.ChunkType)
	assert.True(t, first.HasNumbers)
	assert.True(t, first.HasMeasurements)
	assert.Contains(t, first.MatchedTerms, "door")
	assert.Contains(t, first.MatchedTerms, "schedule")

	second := chunks[1]
	assert.Equal(t, "doc-1_chunk_1", second.ID)
	assert.Equal(t, types.ChunkTable, second.ChunkType)
	assert.True(t, second.HasMeasurements)

	for _, ch := range chunks {
		assert.Equal(t, 2, ch.TotalChunks)
		assert.Equal(t, "A-601 Door Schedule", ch.DocumentName)
		assert.NoError(t, ch.Validate())
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New()
	for _, in := range []string{"", "   ", "\n\n\t\n"} {
		chunks, err := c.Chunk(in, "doc-1", "empty")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_RequiresDocumentID(t *testing.T) {
	_, err := New().Chunk(doorSpecAndTable, "", "name")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestChunk_DropsShortProseKeepsShortTables(t *testing.T) {
	content := "Note A.\n\n" +
		"The contractor shall verify all dimensions in the field before fabrication.\n\n" +
		"Rm 101 | Office\nRm 102 | Storage"

	chunks, err := New().Chunk(content, "doc-2", "")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, types.ChunkSpecification, chunks[0].ChunkType)
	assert.Equal(t, types.ChunkTable, chunks[1].ChunkType)
}

func TestChunk_IndexInvariant(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("Gypsum board partitions shall extend to the underside of the structure above. ")
		sb.WriteString("Provide fire rating as indicated on the life safety plan.\n\n")
	}

	chunks, err := New(WithMaxChunkSize(120)).Chunk(sb.String(), "doc-3", "specs")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, len(chunks), ch.TotalChunks)
		assert.Equal(t, types.ChunkID("doc-3", i), ch.ID)
		assert.NoError(t, ch.Validate())
	}
}

func TestChunk_SentenceSplitRespectsMaxSize(t *testing.T) {
	sentence := "Concrete shall conform to ASTM C150 with a minimum strength of 4,000 psi. "
	content := strings.Repeat(sentence, 30)

	c := New(WithMaxChunkSize(200))
	chunks, err := c.Chunk(content, "doc-4", "")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var joined strings.Builder
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 200)
		// sentence boundaries are preserved
		assert.True(t, strings.HasSuffix(ch.Content, "psi."), ch.Content)
		joined.WriteString(ch.Content)
	}
	assert.Equal(t, stripSpace(content), stripSpace(joined.String()))
}

func TestChunk_WordFallback(t *testing.T) {
	content := strings.Repeat("stud framing at sixteen inches on center ", 20)

	chunks, err := New(WithMaxChunkSize(60)).Chunk(content, "doc-5", "")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var joined strings.Builder
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 60)
		joined.WriteString(ch.Content)
	}
	assert.Equal(t, stripSpace(content), stripSpace(joined.String()))
}

func TestChunk_HardSplitLongToken(t *testing.T) {
	content := strings.Repeat("x", 250)

	chunks, err := New(WithMaxChunkSize(100)).Chunk(content, "doc-6", "")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Content, 100)
	assert.Len(t, chunks[1].Content, 100)
	assert.Len(t, chunks[2].Content, 50)
}

func TestChunk_MultibyteSizesCountRunes(t *testing.T) {
	content := strings.Repeat("é", 150)

	chunks, err := New(WithMaxChunkSize(100)).Chunk(content, "doc-7", "")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0].Content))
	assert.True(t, utf8.ValidString(chunks[1].Content))
}

func TestChunk_Deterministic(t *testing.T) {
	content := doorSpecAndTable + "\n\n" + strings.Repeat("Hardware sets per division 08 71 00. ", 50)
	c := New(WithMaxChunkSize(150))

	a, err := c.Chunk(content, "doc-8", "n")
	require.NoError(t, err)
	b, err := c.Chunk(content, "doc-8", "n")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestChunk_SplitPiecesInheritSectionFeatures(t *testing.T) {
	// the measurement appears only in the first sentence
	content := "Door frames are 3'-0\" wide. " + strings.Repeat("Frames are painted. ", 20)

	chunks, err := New(WithMaxChunkSize(80)).Chunk(content, "doc-9", "")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.True(t, ch.HasMeasurements)
		assert.Equal(t, chunks[0].ChunkType, ch.ChunkType)
	}
}

func TestChunk_CustomClassifier(t *testing.T) {
	chunks, err := New(WithClassifier(LayoutClassifier{})).Chunk(doorSpecAndTable, "doc-10", "")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, types.ChunkGeneral, chunks[0].ChunkType)
	assert.Equal(t, types.ChunkTable, chunks[1].ChunkType)
}

func TestHasMeasurements(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{`ceiling height 12'-6"`, true},
		{`door 3'-0" wide`, true},
		{"clearance of 3.5 ft", true},
		{"200 mm insulation", true},
		{"door size 3-0x7-0", true},
		{"sheet size 24 x 36", true},
		{"minimum 4,000 psi", true},
		{"16 ga studs", true},
		{"see permit 4471 for details", false},
		{"no numbers here", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMeasurements(tt.text))
		})
	}
}

func TestHasNumbers(t *testing.T) {
	assert.True(t, HasNumbers("permit 4471"))
	assert.False(t, HasNumbers("permit pending"))
}

func TestMatchTerms(t *testing.T) {
	assert.Equal(t, []string{"door", "hardware", "window"}, MatchTerms("Doors, Windows and Hardware"))
	assert.Equal(t, []string{"change order"}, MatchTerms("see change orders"))
	assert.Empty(t, MatchTerms("lorem ipsum"))
}
