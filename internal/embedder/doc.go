// Package embedder converts article text into fixed-dimension vectors.
//
// Five strategies share one contract (Embedder):
//
//   - tfidf and bm25 are lexical. They learn corpus statistics through Fit and
//     return ErrNotFitted until then. Their output is zero-padded or truncated
//     to the configured dimension (384 by default) and L2-normalized.
//   - sbert, minilm and dpr are dense. A Dense embedder wraps an Encoder
//     (local ONNX Runtime inference or a remote OpenAI-compatible endpoint)
//     and always normalizes the result, since the store ranks by cosine.
//
// # Basic Usage
//
//	emb, err := embedder.New(ctx, embedder.Config{Strategy: embedder.StrategyTFIDF}, corpus)
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	vec, err := emb.Embed(ctx, "el dólar cerró en alza")
//
// The collection for a strategy is always news_<strategy>.
//
// # Concurrency
//
// A fitted lexical embedder is immutable and safe for concurrent Embed calls
// without locking. Models are built once by the caller and passed around;
// there are no package-level model caches. Cache is an explicit LRU with a
// fixed capacity.
package embedder
