package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Defaults
const (
	DefaultLexicalDimension = 384
	DefaultCacheSize        = 10000
	DefaultMaxSeqLen        = 512
	DefaultRequestTimeout   = 30 * time.Second
)

// Dense backends
const (
	BackendONNX = "onnx"
	BackendHTTP = "http"
)

// ModelConfig describes one pretrained model.
type ModelConfig struct {
	Dimension int     `mapstructure:"dimension"`
	Pooling   Pooling `mapstructure:"pooling"`
	MaxSeqLen int     `mapstructure:"max_seq_len"`

	// onnx backend
	ModelPath     string `mapstructure:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path"`

	// http backend
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// DefaultModels returns the pretrained models used by the dense strategies.
func DefaultModels() map[Strategy]ModelConfig {
	return map[Strategy]ModelConfig{
		StrategySBERT: {
			Dimension: 768,
			Pooling:   PoolingMean,
			Model:     "hiiamsid/sentence_similarity_spanish_es",
		},
		StrategyMiniLM: {
			Dimension: 384,
			Pooling:   PoolingMean,
			Model:     "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
		},
		StrategyDPR: {
			Dimension: 768,
			Pooling:   PoolingPooler,
			Model:     "facebook/dpr-question_encoder-single-nq-base",
		},
	}
}

// Config holds embedder configuration
type Config struct {
	Strategy Strategy

	// Dimension caps lexical vectors. Dense dimensions come from Models.
	Dimension int
	CacheSize int // 0 disables caching

	DenseBackend string
	ONNXLibrary  string
	Timeout      time.Duration
	Models       map[Strategy]ModelConfig

	// Encoder, when set, replaces the configured dense backend.
	Encoder Encoder
}

// New builds the embedder for cfg.Strategy. Lexical strategies are fitted on
// corpus before being returned.
func New(ctx context.Context, cfg Config, corpus []string) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch cfg.Strategy {
	case StrategyTFIDF:
		e := NewTFIDF(cfg.Dimension)
		if err := fitLexical(ctx, e, corpus); err != nil {
			return nil, err
		}
		return NewCached(e, cache), nil
	case StrategyBM25:
		e := NewBM25(cfg.Dimension)
		if err := fitLexical(ctx, e, corpus); err != nil {
			return nil, err
		}
		return NewCached(e, cache), nil
	case StrategyDPR, StrategySBERT, StrategyMiniLM:
		e, err := newDense(cfg)
		if err != nil {
			return nil, err
		}
		return NewCached(e, cache), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, cfg.Strategy)
	}
}

func fitLexical(ctx context.Context, f Fitter, corpus []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(corpus) == 0 {
		return ErrEmptyCorpus
	}
	return f.Fit(corpus)
}

func newDense(cfg Config) (*Dense, error) {
	model, ok := cfg.Models[cfg.Strategy]
	if !ok {
		model = DefaultModels()[cfg.Strategy]
	}
	if model.Dimension <= 0 {
		model.Dimension = DefaultModels()[cfg.Strategy].Dimension
	}

	if cfg.Encoder != nil {
		return NewDense(cfg.Strategy, model.Dimension, cfg.Encoder)
	}

	var (
		enc Encoder
		err error
	)
	switch strings.ToLower(cfg.DenseBackend) {
	case BackendONNX, "":
		enc, err = NewONNXEncoder(ONNXConfig{
			ModelPath:     model.ModelPath,
			TokenizerPath: model.TokenizerPath,
			LibraryPath:   cfg.ONNXLibrary,
			Pooling:       model.Pooling,
			MaxSeqLen:     model.MaxSeqLen,
		})
	case BackendHTTP:
		enc, err = NewHTTPEncoder(HTTPConfig{
			Endpoint: model.Endpoint,
			Model:    model.Model,
			APIKey:   model.APIKey,
			Timeout:  cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: unknown dense backend %q", ErrInvalidConfig, cfg.DenseBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s encoder: %w", cfg.Strategy, err)
	}
	return NewDense(cfg.Strategy, model.Dimension, enc)
}
