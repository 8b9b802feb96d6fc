package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexicalEmbedders(dim int) map[string]interface {
	Embedder
	Fitter
} {
	return map[string]interface {
		Embedder
		Fitter
	}{
		"tfidf": NewTFIDF(dim),
		"bm25":  NewBM25(dim),
	}
}

func TestLexicalPreFitGuard(t *testing.T) {
	ctx := context.Background()
	for name, e := range lexicalEmbedders(0) {
		t.Run(name, func(t *testing.T) {
			assert.False(t, e.Fitted())
			_, err := e.Embed(ctx, "a b")
			assert.ErrorIs(t, err, ErrNotFitted)

			require.NoError(t, e.Fit([]string{"a b c", "b c d"}))
			assert.True(t, e.Fitted())

			vec, err := e.Embed(ctx, "a b")
			require.NoError(t, err)
			assert.Len(t, vec, DefaultLexicalDimension)
			assertUnitOrZero(t, vec)
		})
	}
}

func TestLexicalFitEmptyCorpus(t *testing.T) {
	for name, e := range lexicalEmbedders(0) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, e.Fit(nil), ErrEmptyCorpus)
		})
	}
}

func TestLexicalDimensionAndNormalization(t *testing.T) {
	corpus := []string{
		"El Banco Central subió la tasa de interés para contener la inflación",
		"La inflación de octubre fue menor a la esperada según el INDEC",
		"Boca y River empataron en el superclásico del domingo",
		"El gobierno anunció nuevas medidas económicas para el sector agropecuario",
	}
	inputs := []string{
		"inflación",
		"tasa de interés",
		"superclásico",
		"palabra desconocida",
		"x",
		"La inflación y la tasa del Banco Central",
	}

	ctx := context.Background()
	for _, dim := range []int{3, 16, 384} {
		for name, e := range lexicalEmbedders(dim) {
			require.NoError(t, e.Fit(corpus))
			for _, in := range inputs {
				vec, err := e.Embed(ctx, in)
				require.NoError(t, err, "%s/%d %q", name, dim, in)
				assert.Len(t, vec, dim, "%s/%d %q", name, dim, in)
				assertUnitOrZero(t, vec)
			}
		}
	}
}

func TestTFIDFWeights(t *testing.T) {
	e := NewTFIDF(384)
	require.NoError(t, e.Fit([]string{"el dólar sube", "el peso baja"}))
	assert.Equal(t, 5, e.VocabularySize())

	vec, err := e.Embed(context.Background(), "Dólar dólar el")
	require.NoError(t, err)

	// vocabulary in alphabetical order: baja, dólar, el, peso, sube
	assert.InDelta(t, 0.0, vec[0], 1e-6)
	assert.InDelta(t, 0.942156, vec[1], 1e-5)
	assert.InDelta(t, 0.335176, vec[2], 1e-5)
	assert.InDelta(t, 0.0, vec[3], 1e-6)
}

func TestTFIDFVocabularyCap(t *testing.T) {
	e := NewTFIDF(2)
	require.NoError(t, e.Fit([]string{"alpha beta beta gamma gamma gamma"}))
	assert.Equal(t, 2, e.VocabularySize())

	vec, err := e.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, vec)

	vec, err = e.Embed(context.Background(), "gamma")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
}

func TestBM25Scores(t *testing.T) {
	e := NewBM25(4)
	require.NoError(t, e.Fit([]string{"a b c", "b c d"}))

	scores, err := e.Scores("a b")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	// a has idf 0; b appears in every document so its idf is floored to
	// epsilon times the (negative) average idf
	assert.InDelta(t, -0.201180, scores[0], 1e-5)
	assert.InDelta(t, scores[0], scores[1], 1e-9)

	vec, err := e.Embed(context.Background(), "a b")
	require.NoError(t, err)
	assert.InDelta(t, -0.707107, vec[0], 1e-5)
	assert.InDelta(t, -0.707107, vec[1], 1e-5)
	assert.Equal(t, float32(0), vec[2])
}

func TestBM25FavoursMatchingDocument(t *testing.T) {
	e := NewBM25(8)
	require.NoError(t, e.Fit([]string{
		"inflación récord en octubre",
		"River ganó el superclásico",
		"el gobierno habló de inflación",
		"lluvias en Buenos Aires",
		"nuevo récord de exportaciones",
	}))

	scores, err := e.Scores("superclásico")
	require.NoError(t, err)
	assert.Greater(t, scores[1], 0.0)
	for i, s := range scores {
		if i != 1 {
			assert.Equal(t, 0.0, s)
		}
	}
}

func TestLexicalConcurrentEmbed(t *testing.T) {
	e := NewTFIDF(32)
	require.NoError(t, e.Fit([]string{"uno dos tres", "dos tres cuatro"}))

	done := make(chan []float32, 8)
	for i := 0; i < 8; i++ {
		go func() {
			v, _ := e.Embed(context.Background(), "dos tres")
			done <- v
		}()
	}
	first := <-done
	for i := 1; i < 8; i++ {
		assert.Equal(t, first, <-done)
	}
}
