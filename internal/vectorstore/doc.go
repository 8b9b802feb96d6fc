// Package vectorstore owns collection lifecycle and the hybrid query engine.
//
// A collection is a named, dimension-bound set of points, one per embedding
// strategy (news_<strategy>), always compared by cosine similarity.
// Recreating a collection destroys every point in it.
//
// # Filters
//
// BuildFilter turns the optional parts of a query into a conjunction of
// conditions:
//
//   - date and section are exact matches
//   - keywords with match-any become one set-membership condition; with
//     match-all, one equality condition per keyword on the same field
//   - a minimum keyword score, when keywords are present, adds a range
//     condition on keyword_scores as a whole. A point passes when any of its
//     scores reaches the threshold, not necessarily the matched keyword's.
//
// A nil filter matches every point. Points with an unknown publication date
// never match a date condition.
//
// # Queries
//
// Search ranks the filtered candidates by cosine similarity. Scroll returns
// filtered points in id order with no score. Both reconstruct keyword
// (term, score) pairs from storage and fail with ErrMisaligned if they
// cannot be paired.
//
// # Backends
//
// SQLiteStore keeps everything in one SQLite file, with keyword pairs in a
// child table so terms and scores cannot drift apart. ElasticStore maps each
// collection to an index with a dense_vector field and stores keywords as two
// parallel arrays, checking their lengths on write and read.
package vectorstore
