// Package corpus loads articles from the relational store owned by the
// collector and preprocessing subsystems and turns them into uniform
// records for indexing.
//
// Articles are always inner-joined with their section and newspaper. With
// UseProcessed the processed sibling is inner-joined too and its normalized
// title and content replace the raw text; otherwise the join is a left join
// and only the keywords are taken from it when present. Records whose word
// count falls outside [MinWords, MaxWords] are dropped, and keywords below
// MinKeywordScore are discarded.
//
// PostgreSQL (lib/pq) is the production store. SQLite is supported for local
// runs and tests, using the same driver as the vector store.
package corpus
