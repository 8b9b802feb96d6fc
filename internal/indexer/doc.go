// Package indexer builds one vector collection from the article corpus.
//
// # Basic Usage
//
//	idx := indexer.New(loader, store, factory, indexer.Config{Concurrency: 4})
//
//	stats, err := idx.Run(ctx, indexer.Options{
//	    Strategy:  embedder.StrategyBM25,
//	    BatchSize: 100,
//	    MinWords:  500,
//	    MaxWords:  20000,
//	})
//
//	fmt.Printf("Indexed %d points in %v\n", stats.PointsIndexed, stats.Duration)
//
// # Pipeline
//
//  1. Load: read records from the corpus, applying the word-count range
//  2. Fit: build the embedder, fitting lexical strategies on the contents
//  3. Recreate: drop and create news_<strategy> with the embedder dimension
//  4. Embed: vectorize each batch with bounded concurrency, keeping order
//  5. Store: upsert the batch; point ids are 0, 1, 2, ... in corpus order
//
// Recreating the collection makes every run a full rebuild. There is no
// incremental mode.
//
// # Failure Handling
//
// Each batch is written atomically by the store. The first batch that fails
// to embed or to upsert stops the run; the returned error says how many
// batches were already committed. Those points remain in the collection
// until the next run recreates it.
//
// # Concurrency
//
// Only one run may be active per Indexer. A second concurrent Run fails
// immediately with ErrIndexInProgress instead of waiting.
package indexer
