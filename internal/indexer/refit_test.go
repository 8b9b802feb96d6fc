package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// wordSource applies the word-count bounds like the article loader
type wordSource struct {
	records []types.Record
	loads   int
	got     corpus.LoadOptions
}

func (s *wordSource) LoadWithStats(ctx context.Context, opts corpus.LoadOptions) ([]types.Record, corpus.LoadStats, error) {
	s.loads++
	s.got = opts
	var stats corpus.LoadStats
	out := make([]types.Record, 0, len(s.records))
	for _, r := range s.records {
		n := corpus.CountWords(r.Content)
		if n < opts.MinWords {
			stats.TooShort++
			continue
		}
		if opts.MaxWords > 0 && n > opts.MaxWords {
			stats.TooLong++
			continue
		}
		out = append(out, r)
	}
	stats.Scanned = len(s.records)
	return out, stats, nil
}

func newsCorpus() []types.Record {
	return []types.Record{
		record(1, "dólar", "Economía", "2024-11-01"),
		record(2, "la inflación de octubre bajó según el indec y el dólar siguió estable", "Economía", "2024-11-01"),
		record(3, "el congreso aprobó la ley de presupuesto con cambios en el senado", "Política", "2024-11-02"),
		record(4, "la inflación golpea el consumo y los salarios pierden contra el dólar", "Economía", "2024-11-03"),
	}
}

const testDimension = 32

func TestRefitterFitsOnIndexedCorpus(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	source := &wordSource{records: newsCorpus()}
	factory := NewFactory(embedder.Config{Dimension: testDimension})

	for _, strategy := range []embedder.Strategy{embedder.StrategyTFIDF, embedder.StrategyBM25} {
		t.Run(string(strategy), func(t *testing.T) {
			// index with a word bound the configured fallback does not have
			_, err := New(source, store, factory, Config{}).Run(ctx, Options{Strategy: strategy, MinWords: 5})
			require.NoError(t, err)

			info, err := store.CollectionInfo(ctx, strategy.CollectionName())
			require.NoError(t, err)
			assert.Equal(t, "5", info.Metadata["corpus.min_words"])
			assert.Equal(t, "3", info.Metadata["corpus.records"])

			refit := NewRefitter(source, store, factory, RefitConfig{Fallback: corpus.LoadOptions{}})
			got, err := refit.Embedder(ctx, strategy)
			require.NoError(t, err)
			assert.Equal(t, 5, source.got.MinWords)

			indexed, _, err := source.LoadWithStats(ctx, corpus.LoadOptions{MinWords: 5})
			require.NoError(t, err)
			texts := make([]string, len(indexed))
			for i := range indexed {
				texts[i] = indexed[i].Text()
			}
			want, err := factory(ctx, strategy, texts)
			require.NoError(t, err)

			assert.Equal(t, info.Dimension, got.Dimension())
			for _, q := range []string{"inflación y dólar", "ley de presupuesto"} {
				wantVec, err := want.Embed(ctx, q)
				require.NoError(t, err)
				gotVec, err := got.Embed(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, wantVec, gotVec, q)
			}
		})
	}
}

func TestRefitterReusesLoadedCorpus(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	source := &wordSource{records: newsCorpus()}
	factory := NewFactory(embedder.Config{Dimension: testDimension})

	idx := New(source, store, factory, Config{})
	_, err := idx.Run(ctx, Options{Strategy: embedder.StrategyTFIDF, MinWords: 5})
	require.NoError(t, err)
	_, err = idx.Run(ctx, Options{Strategy: embedder.StrategyBM25, MinWords: 5})
	require.NoError(t, err)

	source.loads = 0
	refit := NewRefitter(source, store, factory, RefitConfig{})
	_, err = refit.Embedder(ctx, embedder.StrategyTFIDF)
	require.NoError(t, err)
	_, err = refit.Embedder(ctx, embedder.StrategyBM25)
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)
}

func TestRefitterRejectsChangedCorpus(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	source := &wordSource{records: newsCorpus()}
	factory := NewFactory(embedder.Config{Dimension: testDimension})

	_, err := New(source, store, factory, Config{}).Run(ctx, Options{Strategy: embedder.StrategyTFIDF, MinWords: 5})
	require.NoError(t, err)

	source.records = append(source.records,
		record(5, "nueva nota sobre el dólar blue y las reservas del banco central", "Economía", "2024-11-04"))

	_, err = NewRefitter(source, store, factory, RefitConfig{}).Embedder(ctx, embedder.StrategyTFIDF)
	assert.ErrorIs(t, err, corpus.ErrCorpusChanged)
}

func TestRefitterFallbackWithoutLineage(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	source := &wordSource{records: newsCorpus()}
	factory := NewFactory(embedder.Config{Dimension: testDimension})

	require.NoError(t, store.RecreateCollection(ctx, "news_tfidf", testDimension))

	fallback := corpus.LoadOptions{MinWords: 10}
	emb, err := NewRefitter(source, store, factory, RefitConfig{Fallback: fallback}).Embedder(ctx, embedder.StrategyTFIDF)
	require.NoError(t, err)
	assert.Equal(t, fallback, source.got)
	assert.Equal(t, testDimension, emb.Dimension())
}

func TestRefitterSeedAndMissingCollection(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	source := &wordSource{records: newsCorpus()}
	factory := NewFactory(embedder.Config{Dimension: testDimension})

	_, err := NewRefitter(source, store, factory, RefitConfig{}).Embedder(ctx, embedder.StrategyBM25)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	_, err = New(source, store, factory, Config{}).Run(ctx, Options{Strategy: embedder.StrategyBM25, MinWords: 5})
	require.NoError(t, err)

	loaded, _, err := source.LoadWithStats(ctx, corpus.LoadOptions{MinWords: 5})
	require.NoError(t, err)
	source.loads = 0

	refit := NewRefitter(source, store, factory, RefitConfig{})
	refit.Seed(corpus.LoadOptions{MinWords: 5}, loaded)
	_, err = refit.Embedder(ctx, embedder.StrategyBM25)
	require.NoError(t, err)
	assert.Zero(t, source.loads)
}

func TestRefitterDenseNeedsNoCorpus(t *testing.T) {
	var got []string
	called := false
	factory := func(ctx context.Context, s embedder.Strategy, corpus []string) (embedder.Embedder, error) {
		called = true
		got = corpus
		return &mapEmbedder{dim: 2}, nil
	}
	source := &wordSource{records: newsCorpus()}

	_, err := NewRefitter(source, nil, factory, RefitConfig{}).Embedder(context.Background(), embedder.StrategyMiniLM)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, got)
	assert.Zero(t, source.loads)
}
