// Package chunker divides construction document text into bounded-size,
// classified chunks for embedding and retrieval.
//
// # Basic Usage
//
//	c := chunker.New(chunker.WithMaxChunkSize(1000))
//	chunks, err := c.Chunk(text, "doc-123", "A-101 Door Schedule.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%s [%s] measurements=%v\n",
//	        chunk.ID, chunk.ChunkType, chunk.HasMeasurements)
//	}
//
// # Chunking Strategy
//
// Text is split into sections on blank lines. Sections shorter than the
// minimum section length are dropped unless they are tabular. Each section
// is classified once, and sections longer than the size limit are split at
// sentence boundaries, then at whitespace, then hard-cut.
//
// Chunk types:
//   - header: all-caps text or title/sheet markers
//   - schedule: door, window, frame or hardware schedule content
//   - specification: normative requirement language ("shall", ASTM, CSI numbers)
//   - table: delimiter-aligned columns
//   - general: everything else
//
// # Classifiers
//
// VocabularyClassifier is the default. LayoutClassifier looks only at the
// shape of the text and can be swapped in with WithClassifier.
//
// # Thread Safety
//
// A Chunker holds no mutable state and is safe for concurrent use.
package chunker
