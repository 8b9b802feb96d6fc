package embedder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// BM25 Okapi parameters
const (
	BM25K1      = 1.5
	BM25B       = 0.75
	BM25Epsilon = 0.25
)

// bm25Model holds the fitted corpus statistics. It is never mutated after Fit.
type bm25Model struct {
	docFreqs []map[string]int
	docLen   []float64
	avgdl    float64
	idf      map[string]float64
}

// BM25 embeds text as the vector of its BM25 scores against every fitted
// document, padded or truncated to the output dimension.
type BM25 struct {
	dimension int

	mu    sync.Mutex
	model atomic.Pointer[bm25Model]
}

// NewBM25 creates an unfitted BM25 embedder. A non-positive dimension
// selects DefaultLexicalDimension.
func NewBM25(dimension int) *BM25 {
	if dimension <= 0 {
		dimension = DefaultLexicalDimension
	}
	return &BM25{dimension: dimension}
}

// Fit computes document frequencies, lengths and idf over corpus.
func (b *BM25) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return ErrEmptyCorpus
	}

	m := &bm25Model{
		docFreqs: make([]map[string]int, len(corpus)),
		docLen:   make([]float64, len(corpus)),
		idf:      make(map[string]float64),
	}

	nd := make(map[string]int)
	var total float64
	for i, doc := range corpus {
		tokens := analyzeFields(doc)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for tok := range freqs {
			nd[tok]++
		}
		m.docFreqs[i] = freqs
		m.docLen[i] = float64(len(tokens))
		total += float64(len(tokens))
	}
	m.avgdl = total / float64(len(corpus))
	if m.avgdl == 0 {
		return fmt.Errorf("%w: no tokens found", ErrEmptyCorpus)
	}

	// Terms present in more than half the corpus get negative idf; those are
	// floored to a fraction of the average idf.
	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for term, freq := range nd {
		idf := math.Log(n-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		m.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	eps := BM25Epsilon * idfSum / float64(len(m.idf))
	for _, term := range negative {
		m.idf[term] = eps
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.model.Store(m)
	return nil
}

// Fitted reports whether Fit has completed.
func (b *BM25) Fitted() bool {
	return b.model.Load() != nil
}

// Scores returns the raw BM25 score of the query against every fitted document.
func (b *BM25) Scores(query string) ([]float64, error) {
	m := b.model.Load()
	if m == nil {
		return nil, fmt.Errorf("bm25: %w", ErrNotFitted)
	}
	return m.scores(analyzeFields(query)), nil
}

func (m *bm25Model) scores(query []string) []float64 {
	scores := make([]float64, len(m.docFreqs))
	for _, q := range query {
		idf := m.idf[q]
		if idf == 0 {
			continue
		}
		for i, freqs := range m.docFreqs {
			f := float64(freqs[q])
			if f == 0 {
				continue
			}
			scores[i] += idf * (f * (BM25K1 + 1) / (f + BM25K1*(1-BM25B+BM25B*m.docLen[i]/m.avgdl)))
		}
	}
	return scores
}

// Embed returns the normalized BM25 score vector of text.
func (b *BM25) Embed(ctx context.Context, text string) ([]float32, error) {
	m := b.model.Load()
	if m == nil {
		return nil, fmt.Errorf("bm25: %w", ErrNotFitted)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := m.scores(analyzeFields(text))
	vec := make([]float32, b.dimension)
	for i := 0; i < len(scores) && i < b.dimension; i++ {
		vec[i] = float32(scores[i])
	}
	return Normalize(vec), nil
}

func (b *BM25) Dimension() int         { return b.dimension }
func (b *BM25) CollectionName() string { return StrategyBM25.CollectionName() }
func (b *BM25) Strategy() Strategy     { return StrategyBM25 }
func (b *BM25) Close() error           { return nil }
