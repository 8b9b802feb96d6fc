package evaluation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/pkg/types"
)

// DefaultK is the default cutoff for precision, recall and NDCG.
const DefaultK = 5

// Searcher runs queries for the evaluator.
type Searcher interface {
	Search(ctx context.Context, req searcher.Request) (*searcher.Response, error)
}

// Config contains evaluator configuration
type Config struct {
	K                int     // default: DefaultK
	KeywordThreshold float64 // score a retrieved keyword needs to count
	Logger           *zap.Logger
}

// Report is the outcome of evaluating one strategy.
type Report struct {
	EmbedderType    embedder.Strategy `json:"embedder_type"`
	Collection      string            `json:"collection"`
	NumQueries      int               `json:"num_queries"`
	K               int               `json:"k"`
	Metrics         Metrics           `json:"metrics"`
	QueryCategories Summary           `json:"query_categories"`
	Queries         []QueryResult     `json:"queries"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Evaluator scores a strategy against relevance judgments.
type Evaluator struct {
	searcher  Searcher
	k         int
	threshold float64
	logger    *zap.Logger
	now       func() time.Time
}

// NewEvaluator creates an evaluator on top of a searcher.
func NewEvaluator(s Searcher, cfg Config) *Evaluator {
	if cfg.K <= 0 {
		cfg.K = DefaultK
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Evaluator{
		searcher:  s,
		k:         cfg.K,
		threshold: cfg.KeywordThreshold,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Evaluate runs every query with the strategy and aggregates the metrics.
// Queries are run with a limit of k and bypass the response cache. The first
// failing query aborts the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, strategy embedder.Strategy, queries []types.SearchQuery, judgments map[string]Judgment) (*Report, error) {
	if e.k > types.MaxLimit {
		return nil, fmt.Errorf("%w: k=%d exceeds the per-query result limit %d", types.ErrInvalidLimit, e.k, types.MaxLimit)
	}

	report := &Report{
		EmbedderType:    strategy,
		Collection:      strategy.CollectionName(),
		NumQueries:      len(queries),
		K:               e.k,
		QueryCategories: QueryCategories(queries),
		Queries:         make([]QueryResult, 0, len(queries)),
	}

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := QueryKey(q)
		j, ok := judgments[key]
		if !ok {
			e.logger.Warn("no judgment for query, treating it as having no relevant articles",
				zap.String("query", key))
		}

		q.Limit = e.k
		resp, err := e.searcher.Search(ctx, searcher.Request{Query: q, Strategy: strategy, NoCache: true})
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", key, err)
		}

		report.Queries = append(report.Queries, e.score(key, resp, j))
	}

	report.Metrics = Aggregate(report.Queries)
	report.Timestamp = e.now()

	e.logger.Info("evaluation complete",
		zap.String("strategy", string(strategy)),
		zap.Int("queries", len(queries)),
		zap.Float64("precision_at_k", report.Metrics.PrecisionAtK),
		zap.Float64("recall_at_k", report.Metrics.RecallAtK),
		zap.Float64("ndcg", report.Metrics.NDCG),
		zap.Float64("keyword_f1", report.Metrics.KeywordF1))
	return report, nil
}

func (e *Evaluator) score(key string, resp *searcher.Response, j Judgment) QueryResult {
	retrieved := make([]int64, 0, len(resp.Results))
	found := make(map[string]struct{})
	for _, r := range resp.Results {
		retrieved = append(retrieved, r.OriginalID)
		for _, kw := range r.Keywords {
			if kw.Score >= e.threshold {
				found[kw.Term] = struct{}{}
			}
		}
	}

	relevant := j.RelevantSet()
	return QueryResult{
		Key:       key,
		Mode:      string(resp.Mode),
		Retrieved: retrieved,
		Relevant:  len(relevant),
		Precision: Precision(retrieved, relevant),
		Recall:    Recall(retrieved, relevant),
		NDCG:      NDCG(retrieved, relevant, e.k),
		Keywords:  KeywordMetrics(found, j.KeywordSet()),
		Latency:   resp.Duration,
	}
}
