// Package classifier decides whether a natural-language query is about general
// construction knowledge, about one project, or neither.
//
// Classification is a keyword heuristic over two disjoint vocabularies. A
// query that matches only the generic vocabulary is routed to the shared
// knowledge partitions, one that matches only the project vocabulary is routed
// to the project partition, and everything else is left ambiguous so callers
// fall back to hybrid search.
//
//	c := classifier.Default()
//	intent := c.Classify("what are the OSHA requirements for scaffolding")
//	// intent.IsGeneric == true
package classifier
