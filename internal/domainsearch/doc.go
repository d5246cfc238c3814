// Package domainsearch answers construction-document questions with results
// narrowed to the content the caller cares about: particular chunk types,
// chunks that contain numbers, or chunks that contain measurements.
//
// Candidates are over-fetched from the hybrid engine, filtered, re-sorted by
// similarity and truncated. Each response carries a confidence (the mean
// similarity of the final results) and a short templated summary.
//
// Config.Timeout bounds a whole Search. The query embedding, the smart attempt
// and any hybrid fallback all draw on that one deadline.
package domainsearch
