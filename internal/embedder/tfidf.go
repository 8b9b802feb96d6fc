package embedder

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// tfidfModel is the fitted vocabulary. It is never mutated after Fit.
type tfidfModel struct {
	vocab map[string]int
	idf   []float64
}

// TFIDF embeds text as smoothed TF-IDF weights over a vocabulary capped at
// the output dimension.
type TFIDF struct {
	dimension int

	mu    sync.Mutex
	model atomic.Pointer[tfidfModel]
}

// NewTFIDF creates an unfitted TF-IDF embedder. A non-positive dimension
// selects DefaultLexicalDimension.
func NewTFIDF(dimension int) *TFIDF {
	if dimension <= 0 {
		dimension = DefaultLexicalDimension
	}
	return &TFIDF{dimension: dimension}
}

// Fit learns the vocabulary and document frequencies of corpus. A corpus
// without any token of two or more characters yields an empty vocabulary and
// every embedding is then the zero vector.
func (t *TFIDF) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return ErrEmptyCorpus
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range analyzeWords(doc) {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	// Most frequent first, alphabetical among ties
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > t.dimension {
		terms = terms[:t.dimension]
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	m := &tfidfModel{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	for i, term := range terms {
		m.vocab[term] = i
		m.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.model.Store(m)
	return nil
}

// Fitted reports whether Fit has completed.
func (t *TFIDF) Fitted() bool {
	return t.model.Load() != nil
}

// Embed returns the L2-normalized TF-IDF vector of text.
func (t *TFIDF) Embed(ctx context.Context, text string) ([]float32, error) {
	m := t.model.Load()
	if m == nil {
		return nil, fmt.Errorf("tfidf: %w", ErrNotFitted)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, len(m.idf))
	for _, tok := range analyzeWords(text) {
		if i, ok := m.vocab[tok]; ok {
			vec[i]++
		}
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * m.idf[i])
	}
	Normalize(vec)

	return Normalize(FitDimension(vec, t.dimension)), nil
}

// VocabularySize returns the number of fitted terms, 0 before Fit.
func (t *TFIDF) VocabularySize() int {
	if m := t.model.Load(); m != nil {
		return len(m.vocab)
	}
	return 0
}

func (t *TFIDF) Dimension() int         { return t.dimension }
func (t *TFIDF) CollectionName() string { return StrategyTFIDF.CollectionName() }
func (t *TFIDF) Strategy() Strategy     { return StrategyTFIDF }
func (t *TFIDF) Close() error           { return nil }
