// Package searcher implements hybrid retrieval over a project partition and
// the shared common-knowledge partitions.
//
// HybridSearch splits the requested result count between the two sides,
// queries every partition concurrently and fuses the lists with a weighted
// similarity score:
//
//	projectK = ceil(topK * (1 - w))
//	commonK  = floor(topK * w)           // each at least 1
//	adjusted = (1 - distance) * weight   // weight is 1-w for project hits, w for common hits
//
// The fused list is sorted by adjusted score. A high-similarity common hit can
// outrank a weaker project hit only as far as w allows.
//
// SmartQuery classifies the query text first. Queries that are clearly
// generic read only the common partitions and queries that are clearly about
// the project read only the project partition. Anything else goes through
// HybridSearch. The chosen path is reported as Response.Strategy.
//
// # Timeouts
//
// Config.Timeout bounds the whole operation, including query embedding and
// every partition query, so a hybrid query gets the same budget as a
// single-partition one.
//
// # Errors
//
// A failure on any partition fails the call. Callers never receive a
// half-merged list that hides an unreachable partition.
package searcher
