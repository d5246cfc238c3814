// Package partition maps logical knowledge partitions onto vector store
// namespaces.
//
// There are two kinds of partition. Each project gets its own, named
// "project_<sanitized id>". A small fixed set of shared categories
// (building_codes, safety, materials, standards, general) are named
// "common_<category>". Naming is a pure function of the logical name.
//
// The Router validates writes (parallel slices must agree in length, vectors
// in dimension), stamps source and partition provenance onto metadata, and
// converts store scores into distances (1 - score). It performs no
// cross-partition logic; fusion belongs to the searcher package.
package partition
