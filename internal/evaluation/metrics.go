package evaluation

import (
	"math"
	"time"
)

// IDSet is a set of original article ids.
type IDSet map[int64]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...int64) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func overlap(retrieved []int64, relevant IDSet) int {
	seen := make(IDSet, len(retrieved))
	n := 0
	for _, id := range retrieved {
		if seen.Has(id) {
			continue
		}
		seen[id] = struct{}{}
		if relevant.Has(id) {
			n++
		}
	}
	return n
}

// Precision returns |retrieved ∩ relevant| / |retrieved|, or 0 when nothing
// was retrieved.
func Precision(retrieved []int64, relevant IDSet) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(overlap(retrieved, relevant)) / float64(len(retrieved))
}

// Recall returns |retrieved ∩ relevant| / |relevant|, or 0 when there is
// nothing relevant.
func Recall(retrieved []int64, relevant IDSet) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(overlap(retrieved, relevant)) / float64(len(relevant))
}

// NDCG returns the normalized discounted cumulative gain at k with binary
// gains: DCG = Σ rel_i / log2(i+2) over the first k results, normalized by
// the DCG of an ideal ranking of min(|relevant|, k) hits.
func NDCG(retrieved []int64, relevant IDSet, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}

	var dcg float64
	for i, id := range retrieved {
		if i >= k {
			break
		}
		if relevant.Has(id) {
			dcg += 1 / math.Log2(float64(i+2))
		}
	}

	var idcg float64
	for i := 0; i < min(len(relevant), k); i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// PRF holds a precision / recall / F1 triple.
type PRF struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// KeywordMetrics compares the keywords found in retrieved articles against
// the judged relevant keywords.
func KeywordMetrics(retrieved, relevant map[string]struct{}) PRF {
	var hits int
	for term := range retrieved {
		if _, ok := relevant[term]; ok {
			hits++
		}
	}

	var m PRF
	if len(retrieved) > 0 {
		m.Precision = float64(hits) / float64(len(retrieved))
	}
	if len(relevant) > 0 {
		m.Recall = float64(hits) / float64(len(relevant))
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Metrics are the aggregate scores of one evaluation run.
type Metrics struct {
	PrecisionAtK      float64 `json:"precision_at_k"`
	RecallAtK         float64 `json:"recall_at_k"`
	NDCG              float64 `json:"ndcg"`
	KeywordPrecision  float64 `json:"keyword_precision"`
	KeywordRecall     float64 `json:"keyword_recall"`
	KeywordF1         float64 `json:"keyword_f1"`
	MeanExecutionTime float64 `json:"mean_execution_time"` // seconds
	QueriesPerSecond  float64 `json:"queries_per_second"`
}

// QueryResult is the per-query outcome of an evaluation run.
type QueryResult struct {
	Key       string        `json:"key"`
	Mode      string        `json:"mode"`
	Retrieved []int64       `json:"retrieved"`
	Relevant  int           `json:"relevant"`
	Precision float64       `json:"precision"`
	Recall    float64       `json:"recall"`
	NDCG      float64       `json:"ndcg"`
	Keywords  PRF           `json:"keywords"`
	Latency   time.Duration `json:"latency_ns"`
}

// Aggregate averages per-query results. QueriesPerSecond is the inverse of
// the mean latency, 0 when the latency is 0.
func Aggregate(results []QueryResult) Metrics {
	var m Metrics
	if len(results) == 0 {
		return m
	}

	var latency time.Duration
	for _, r := range results {
		m.PrecisionAtK += r.Precision
		m.RecallAtK += r.Recall
		m.NDCG += r.NDCG
		m.KeywordPrecision += r.Keywords.Precision
		m.KeywordRecall += r.Keywords.Recall
		m.KeywordF1 += r.Keywords.F1
		latency += r.Latency
	}

	n := float64(len(results))
	m.PrecisionAtK /= n
	m.RecallAtK /= n
	m.NDCG /= n
	m.KeywordPrecision /= n
	m.KeywordRecall /= n
	m.KeywordF1 /= n
	m.MeanExecutionTime = latency.Seconds() / n
	if m.MeanExecutionTime > 0 {
		m.QueriesPerSecond = 1 / m.MeanExecutionTime
	}
	return m
}
