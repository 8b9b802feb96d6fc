// Package types provides shared type definitions for the newsrag retrieval layer.
//
// The article types mirror the tables owned by the collector and the
// preprocessing pipeline. Record is the uniform shape the corpus loader emits
// for indexing, Payload is what the vector store keeps next to each vector,
// and SearchQuery / SearchResult form the query contract exposed to the
// generation subsystem.
//
// # Keywords
//
// A keyword list is an ordered slice of (term, score) pairs. Scores are
// relevance weights in roughly [0, 1] and are not normalized across
// documents. Consumers treat a list as descending by score.
//
// # Queries
//
// A query needs a prompt, keywords, or both:
//
//	q := types.SearchQuery{
//	    Prompt:          "inflación y tasas",
//	    Keywords:        []string{"dólar"},
//	    Section:         "Economía",
//	    MatchAnyKeyword: true,
//	}
//	if err := q.Validate(); err != nil {
//	    return err
//	}
//
// Results from keyword-only queries carry no score. Score is a pointer so
// that "no score" is never confused with a score of zero.
package types
