// Package evaluation measures retrieval quality for the embedding strategies.
//
// A test set is a list of queries. Relevance judgments are generated from
// the corpus itself (GenerateJudgments): an article is relevant to a query
// when it mentions a prompt term or carries a query keyword, and it passes
// the query's section and date filters. The Evaluator runs every query
// through the searcher and scores the results against those judgments:
//
//	ev := evaluation.NewEvaluator(s, evaluation.Config{K: 5})
//	report, err := ev.Evaluate(ctx, embedder.StrategyBM25, queries, judgments)
//
// Reports are written as JSON and can be compared side by side with
// ComparisonTable or WriteComparisonCSV.
package evaluation
