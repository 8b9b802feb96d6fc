package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// Defaults
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour
	DefaultStrategy  = embedder.StrategyMiniLM
)

// Mode defines how a query is executed
type Mode string

const (
	ModeCombined Mode = "semantic+keyword" // vector search with keyword filter
	ModeSemantic Mode = "semantic"         // vector search only
	ModeKeyword  Mode = "keyword"          // filtered scan, no score
)

// EmbedderProvider builds the embedder for a strategy. It is called at most
// once per strategy per Searcher.
type EmbedderProvider func(ctx context.Context, strategy embedder.Strategy) (embedder.Embedder, error)

// Request contains parameters for a search operation
type Request struct {
	Query              types.SearchQuery
	Strategy           embedder.Strategy // default: DefaultStrategy
	SortByKeywordScore bool
	NoCache            bool
}

// Response contains search results and metadata
type Response struct {
	Results    []types.SearchResult `json:"results"`
	Mode       Mode                 `json:"mode"`
	Strategy   embedder.Strategy    `json:"strategy"`
	Collection string               `json:"collection"`
	Duration   time.Duration        `json:"duration_ns"`
	CacheHit   bool                 `json:"cache_hit"`
}

// Config contains searcher configuration
type Config struct {
	CacheSize       int           // 0 uses DefaultCacheSize, negative disables caching
	CacheTTL        time.Duration // default: DefaultCacheTTL
	DefaultStrategy embedder.Strategy
	Logger          *zap.Logger
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher dispatches queries to the vector store
type Searcher struct {
	store    vectorstore.Store
	provider EmbedderProvider
	logger   *zap.Logger
	strategy embedder.Strategy

	embMu     sync.Mutex
	embedders map[embedder.Strategy]embedder.Embedder

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

// New creates a new Searcher instance
func New(store vectorstore.Store, provider EmbedderProvider, cfg Config) *Searcher {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = DefaultStrategy
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Searcher{
		store:     store,
		provider:  provider,
		logger:    cfg.Logger,
		strategy:  cfg.DefaultStrategy,
		embedders: make(map[embedder.Strategy]embedder.Embedder),
		ttl:       cfg.CacheTTL,
		now:       time.Now,
	}

	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		// lru.New only fails for non-positive sizes
		s.cache, _ = lru.New[[32]byte, *cacheEntry](size)
	}
	return s
}

// Search validates the query, then runs it in the mode its components select.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	start := s.now()

	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	useCache := s.cache != nil && !req.NoCache
	var key [32]byte
	if useCache {
		key = computeQueryHash(req)
		if cached := s.checkCache(key); cached != nil {
			cached.CacheHit = true
			cached.Duration = s.now().Sub(start)
			return cached, nil
		}
	}

	q := req.Query
	resp := &Response{Strategy: req.Strategy, Collection: req.Strategy.CollectionName()}

	var err error
	switch {
	case q.Prompt != "" && q.HasKeywords():
		resp.Mode = ModeCombined
		resp.Results, err = s.vectorSearch(ctx, req.Strategy, q, vectorstore.FilterSpec{
			Date:            q.Date,
			Section:         q.Section,
			Keywords:        q.Keywords,
			MinKeywordScore: q.MinKeywordScore,
			MatchAnyKeyword: q.MatchAnyKeyword,
		})
	case q.Prompt != "":
		resp.Mode = ModeSemantic
		resp.Results, err = s.vectorSearch(ctx, req.Strategy, q, vectorstore.FilterSpec{
			Date:    q.Date,
			Section: q.Section,
		})
	default:
		resp.Mode = ModeKeyword
		filter := vectorstore.BuildFilter(vectorstore.FilterSpec{
			Date:            q.Date,
			Section:         q.Section,
			Keywords:        q.Keywords,
			MinKeywordScore: q.MinKeywordScore,
			MatchAnyKeyword: q.MatchAnyKeyword,
		})
		resp.Results, err = s.store.Scroll(ctx, resp.Collection, filter, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%s search on %s: %w", resp.Mode, resp.Collection, err)
	}

	if req.SortByKeywordScore && q.HasKeywords() {
		SortByKeywordScore(resp.Results, q.Keywords)
	}

	resp.Duration = s.now().Sub(start)
	s.logger.Debug("search",
		zap.String("mode", string(resp.Mode)),
		zap.String("collection", resp.Collection),
		zap.Int("results", len(resp.Results)),
		zap.Duration("duration", resp.Duration))

	if useCache {
		s.storeInCache(key, resp)
	}
	return resp, nil
}

func (s *Searcher) vectorSearch(ctx context.Context, strategy embedder.Strategy, q types.SearchQuery, spec vectorstore.FilterSpec) ([]types.SearchResult, error) {
	emb, err := s.Embedder(ctx, strategy)
	if err != nil {
		return nil, err
	}
	vector, err := emb.Embed(ctx, q.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to embed prompt: %w", err)
	}
	return s.store.Search(ctx, emb.CollectionName(), vector, vectorstore.BuildFilter(spec), q.Limit)
}

// Embedder returns the embedder for strategy, building it on first use.
func (s *Searcher) Embedder(ctx context.Context, strategy embedder.Strategy) (embedder.Embedder, error) {
	s.embMu.Lock()
	defer s.embMu.Unlock()

	if e, ok := s.embedders[strategy]; ok {
		return e, nil
	}
	if s.provider == nil {
		return nil, errors.New("no embedder provider configured")
	}
	e, err := s.provider(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s embedder: %w", strategy, err)
	}
	s.embedders[strategy] = e
	return e, nil
}

// Close releases every embedder built so far.
func (s *Searcher) Close() error {
	s.embMu.Lock()
	defer s.embMu.Unlock()

	var errs []error
	for strategy, e := range s.embedders {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s embedder: %w", strategy, err))
		}
		delete(s.embedders, strategy)
	}
	return errors.Join(errs...)
}

// validateRequest normalizes and checks the request in place
func (s *Searcher) validateRequest(req *Request) error {
	req.Query.Normalize()
	if err := req.Query.Validate(); err != nil {
		return err
	}
	if req.Strategy == "" {
		req.Strategy = s.strategy
	}
	if _, err := embedder.ParseStrategy(string(req.Strategy)); err != nil {
		return err
	}
	return nil
}

// SortByKeywordScore orders results by the highest score among the query
// keywords each one carries, descending, and records those keywords in
// MatchingKeywords. Results without any rank last; the sort is stable.
func SortByKeywordScore(results []types.SearchResult, queryKeywords []string) {
	wanted := make(map[string]struct{}, len(queryKeywords))
	for _, kw := range queryKeywords {
		wanted[kw] = struct{}{}
	}

	best := make(map[int64]float64, len(results))
	for i := range results {
		r := &results[i]
		r.MatchingKeywords = nil
		score := -1.0
		for _, kw := range r.Keywords {
			if _, ok := wanted[kw.Term]; !ok {
				continue
			}
			r.MatchingKeywords = append(r.MatchingKeywords, kw)
			if kw.Score > score {
				score = kw.Score
			}
		}
		best[r.ID] = score
	}

	sort.SliceStable(results, func(i, j int) bool {
		return best[results[i].ID] > best[results[j].ID]
	})
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(key [32]byte) *Response {
	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if s.now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}

	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves a copy of the response
func (s *Searcher) storeInCache(key [32]byte, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: s.now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response.
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses.
func (s *Searcher) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copyResponse deep-copies a response so cached entries cannot be mutated
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, r := range src.Results {
		c := r
		if r.Score != nil {
			score := *r.Score
			c.Score = &score
		}
		if r.PublishedAt != nil {
			date := *r.PublishedAt
			c.PublishedAt = &date
		}
		c.Keywords = append([]types.Keyword(nil), r.Keywords...)
		if r.Keywords != nil && c.Keywords == nil {
			c.Keywords = []types.Keyword{}
		}
		c.MatchingKeywords = append([]types.Keyword(nil), r.MatchingKeywords...)
		dst.Results[i] = c
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req Request) [32]byte {
	q := req.Query
	var data strings.Builder
	data.WriteString(string(req.Strategy))
	data.WriteString("|")
	data.WriteString(q.Prompt)
	data.WriteString("|")
	data.WriteString(strings.Join(q.Keywords, "\x1f"))
	data.WriteString("|")
	data.WriteString(q.Section)
	data.WriteString("|")
	data.WriteString(q.Date)
	data.WriteString(fmt.Sprintf("|%g|%t|%d|%t", q.MinKeywordScore, q.MatchAnyKeyword, q.Limit, req.SortByKeywordScore))

	return sha256.Sum256([]byte(data.String()))
}
