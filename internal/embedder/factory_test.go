package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllStrategiesHonourDimension(t *testing.T) {
	corpus := []string{"el dólar sube", "el peso baja", "River y Boca"}
	ctx := context.Background()

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			cfg := Config{Strategy: s, CacheSize: 16}
			want := DefaultLexicalDimension
			if !s.Lexical() {
				want = DefaultModels()[s].Dimension
				cfg.Encoder = hashEncoder{dim: want}
			}

			e, err := New(ctx, cfg, corpus)
			require.NoError(t, err)
			defer func() { _ = e.Close() }()

			assert.Equal(t, s, e.Strategy())
			assert.Equal(t, want, e.Dimension())
			assert.Equal(t, s.CollectionName(), e.CollectionName())

			for _, text := range []string{"dólar", "una sola", "River ganó el superclásico del domingo"} {
				vec, err := e.Embed(ctx, text)
				require.NoError(t, err)
				assert.Len(t, vec, e.Dimension())
				assertUnitOrZero(t, vec)
			}
		})
	}
}

func TestNewLexicalRequiresCorpus(t *testing.T) {
	_, err := New(context.Background(), Config{Strategy: StrategyBM25}, nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New(context.Background(), Config{Strategy: "glove"}, []string{"x"})
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestNewCustomDimensions(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, Config{Strategy: StrategyTFIDF, Dimension: 64}, []string{"uno dos", "tres cuatro"})
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimension())

	e, err = New(ctx, Config{
		Strategy: StrategySBERT,
		Models:   map[Strategy]ModelConfig{StrategySBERT: {Dimension: 16}},
		Encoder:  hashEncoder{dim: 16},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())
}

func TestNewDenseBackendErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Strategy: StrategyMiniLM, DenseBackend: "grpc"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(ctx, Config{Strategy: StrategyMiniLM, DenseBackend: BackendHTTP}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "http backend needs an endpoint")

	_, err = New(ctx, Config{Strategy: StrategyMiniLM, DenseBackend: BackendONNX}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "onnx backend needs model paths")
}
