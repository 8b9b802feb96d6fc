// Package searcher answers hybrid news queries against a vector store.
//
// A query combines an optional free-text prompt, optional keywords and
// optional section/date filters. The searcher picks one of three modes:
//   - Combined: prompt and keywords; vector search under the full filter
//   - Semantic: prompt only; vector search under the section/date filter
//   - Keyword: keywords only; a filtered scan with no similarity score
//
// # Basic Usage
//
//	s := searcher.New(store, provider, searcher.Config{CacheSize: 1000})
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query: types.SearchQuery{
//	        Prompt:   "inflación en octubre",
//	        Keywords: []string{"inflación"},
//	        Section:  "Economía",
//	        Limit:    10,
//	    },
//	    Strategy: embedder.StrategyMiniLM,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s (%s)\n", r.OriginalID, r.Title, r.Section)
//	}
//
// # Embedders
//
// Embedders are obtained from the EmbedderProvider the first time a strategy
// is queried and kept until Close. Keyword-only queries never need one; the
// collection name follows from the strategy.
//
// # Sorting by Keyword Score
//
// With SortByKeywordScore, results are reordered by the best score among the
// query keywords each result carries, and annotated with those keywords.
// Results carrying none of them sink to the end in their original order.
//
// # Caching
//
// Responses are kept in an LRU cache keyed by strategy and normalized query,
// each entry expiring after the configured TTL. Call InvalidateCache after
// reindexing; a rebuilt collection reuses point ids.
package searcher
