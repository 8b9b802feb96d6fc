package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrNotFitted           = errors.New("embedder needs to be fitted first")
	ErrEmptyCorpus         = errors.New("cannot fit on an empty corpus")
	ErrUnsupportedStrategy = errors.New("unsupported embedding strategy")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrInvalidConfig       = errors.New("invalid embedder configuration")
)

// Strategy names one of the interchangeable text-to-vector strategies.
type Strategy string

const (
	StrategyTFIDF  Strategy = "tfidf"
	StrategyBM25   Strategy = "bm25"
	StrategyDPR    Strategy = "dpr"
	StrategySBERT  Strategy = "sbert"
	StrategyMiniLM Strategy = "minilm"
)

// Strategies returns every supported strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyTFIDF, StrategyBM25, StrategyDPR, StrategySBERT, StrategyMiniLM}
}

// ParseStrategy resolves a strategy name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedStrategy, name)
}

// Lexical reports whether the strategy must be fitted on a corpus.
func (s Strategy) Lexical() bool {
	return s == StrategyTFIDF || s == StrategyBM25
}

// CollectionName is the vector-store collection holding this strategy's vectors.
func (s Strategy) CollectionName() string {
	return "news_" + string(s)
}

func (s Strategy) String() string { return string(s) }

// Embedder converts text into a vector of fixed dimension.
type Embedder interface {
	// Embed returns a vector of exactly Dimension() values, L2-normalized
	// unless it is the zero vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the output vector length
	Dimension() int

	// CollectionName returns the collection the vectors are stored in
	CollectionName() string

	// Strategy returns the strategy implemented
	Strategy() Strategy

	// Close releases any resources held by the embedder
	Close() error
}

// Fitter is implemented by lexical embedders that learn corpus statistics.
// Fit is called once; the fitted state is read-only afterwards.
type Fitter interface {
	Fit(corpus []string) error
	Fitted() bool
}

// Normalize scales v to unit L2 norm in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// FitDimension zero-pads or truncates v to exactly dim values.
func FitDimension(v []float32, dim int) []float32 {
	if len(v) == dim {
		return v
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}

// L2Norm returns the Euclidean norm of v.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cache provides in-memory LRU caching of vectors by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new vector cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector so callers cannot mutate the entry
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of the vector
func (c *Cache) Set(hash string, v []float32) {
	stored := make([]float32, len(v))
	copy(stored, v)
	c.cache.Add(hash, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Cached memoizes another embedder's output. Keys include the strategy so
// one cache can be shared between embedders.
type Cached struct {
	Embedder
	cache *Cache
}

// NewCached wraps e with the given cache. A nil cache returns e unchanged.
func NewCached(e Embedder, cache *Cache) Embedder {
	if cache == nil {
		return e
	}
	return &Cached{Embedder: e, cache: cache}
}

// Embed returns the cached vector or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := ComputeHash(string(c.Strategy()) + "|" + text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, v)
	return v, nil
}

// Unwrap returns the decorated embedder.
func (c *Cached) Unwrap() Embedder {
	return c.Embedder
}
