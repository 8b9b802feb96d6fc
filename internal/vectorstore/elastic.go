package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/keywords"
	"github.com/argnews/newsrag/pkg/types"
)

// metaMarker tags indices created by this package in the mapping _meta.
const metaMarker = "newsrag_collection"

// ElasticConfig configures the Elasticsearch backend.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
	Timeout   time.Duration
}

// ElasticStore is a Store backed by Elasticsearch, one index per collection.
type ElasticStore struct {
	es      *elasticsearch.Client
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.RWMutex
	dims map[string]int
}

// NewElasticStore creates the client. It does not contact the cluster.
func NewElasticStore(cfg ElasticConfig, logger *zap.Logger) (*ElasticStore, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elasticsearch: at least one address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &ElasticStore{es: es, timeout: cfg.Timeout, logger: logger, dims: make(map[string]int)}, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (s *ElasticStore) Close() error { return nil }

func (s *ElasticStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// esDocument is the stored form of a point. Keywords are kept as two parallel
// arrays so they can be filtered on.
type esDocument struct {
	PointID       int64     `json:"point_id"`
	Vector        []float32 `json:"vector,omitempty"`
	OriginalID    int64     `json:"original_id"`
	Title         string    `json:"title"`
	Section       string    `json:"section"`
	PublishedAt   *string   `json:"published_at"`
	Newspaper     string    `json:"newspaper"`
	Keywords      []string  `json:"keywords"`
	KeywordScores []float64 `json:"keyword_scores"`
}

func toDocument(p *Point) esDocument {
	terms, scores := keywords.Split(p.Payload.Keywords)
	doc := esDocument{
		PointID:       p.ID,
		OriginalID:    p.Payload.OriginalID,
		Title:         p.Payload.Title,
		Section:       p.Payload.Section,
		PublishedAt:   p.Payload.PublishedAt,
		Newspaper:     p.Payload.Newspaper,
		Keywords:      terms,
		KeywordScores: scores,
	}
	// Cosine is undefined for zero vectors; such points stay reachable by
	// scroll and retrieve only.
	if !isZero(p.Vector) {
		doc.Vector = p.Vector
	}
	return doc
}

func (d *esDocument) payload() (types.Payload, error) {
	kws, err := keywords.Zip(d.Keywords, d.KeywordScores)
	if err != nil {
		return types.Payload{}, fmt.Errorf("point %d: %w", d.PointID, err)
	}
	return types.Payload{
		OriginalID:  d.OriginalID,
		Title:       d.Title,
		Section:     d.Section,
		Keywords:    kws,
		PublishedAt: d.PublishedAt,
		Newspaper:   d.Newspaper,
	}, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func indexBody(dimension int) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"_meta": indexMeta(nil),
			"properties": map[string]any{
				"point_id": map[string]any{"type": "long"},
				"vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dimension,
					"index":      true,
					"similarity": "cosine",
				},
				"original_id":    map[string]any{"type": "long"},
				"title":          map[string]any{"type": "text"},
				"section":        map[string]any{"type": "keyword"},
				"published_at":   map[string]any{"type": "keyword"},
				"newspaper":      map[string]any{"type": "keyword"},
				"keywords":       map[string]any{"type": "keyword"},
				"keyword_scores": map[string]any{"type": "float"},
			},
		},
	}
}

// filterClauses renders a filter as bool filter clauses. Multi-valued fields
// match when any element matches, as in the SQLite backend.
func filterClauses(filter *Filter) ([]map[string]any, error) {
	if filter.Empty() {
		return nil, nil
	}
	clauses := make([]map[string]any, 0, len(filter.Must))
	for _, c := range filter.Must {
		switch c.Kind {
		case MatchValue:
			clauses = append(clauses, map[string]any{"term": map[string]any{c.Key: c.Value}})
		case MatchAny:
			clauses = append(clauses, map[string]any{"terms": map[string]any{c.Key: c.Any}})
		case Range:
			clauses = append(clauses, map[string]any{
				"range": map[string]any{c.Key: map[string]any{"gte": c.GTE}},
			})
		default:
			return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedFilter, c.Kind, c.Key)
		}
	}
	return clauses, nil
}

func knnBody(vector []float32, clauses []map[string]any, limit int) map[string]any {
	knn := map[string]any{
		"field":          "vector",
		"query_vector":   vector,
		"k":              limit,
		"num_candidates": numCandidates(limit),
	}
	if len(clauses) > 0 {
		knn["filter"] = map[string]any{"bool": map[string]any{"filter": clauses}}
	}
	return map[string]any{
		"size":    limit,
		"knn":     knn,
		"_source": map[string]any{"excludes": []string{"vector"}},
	}
}

func numCandidates(limit int) int {
	n := limit * 10
	if n < 100 {
		n = 100
	}
	if n > 10000 {
		n = 10000
	}
	return n
}

func scrollBody(clauses []map[string]any, limit int) map[string]any {
	query := map[string]any{"match_all": map[string]any{}}
	if len(clauses) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": clauses}}
	}
	return map[string]any{
		"size":    limit,
		"query":   query,
		"sort":    []map[string]any{{"point_id": map[string]any{"order": "asc"}}},
		"_source": map[string]any{"excludes": []string{"vector"}},
	}
}

// cosineFromScore undoes the (1 + cos) / 2 scaling applied to cosine knn scores.
func cosineFromScore(score float64) float64 {
	return 2*score - 1
}

// responseError turns an error response into a Go error. 404 maps to
// ErrCollectionNotFound.
func responseError(res *esapi.Response, op, name string) error {
	data, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return fmt.Errorf("%s %s failed: %s", op, name, strings.TrimSpace(string(data)))
}

// RecreateCollection deletes the index if present and creates it with a
// cosine dense_vector mapping.
func (s *ElasticStore) RecreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.Delete([]string{name}, s.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		err := responseError(res, "delete index", name)
		_ = res.Body.Close()
		return err
	}
	_ = res.Body.Close()

	payload, err := json.Marshal(indexBody(dimension))
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}
	res, err = s.es.Indices.Create(name,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseError(res, "create index", name)
	}

	s.mu.Lock()
	s.dims[name] = dimension
	s.mu.Unlock()
	s.logger.Info("collection recreated", zap.String("collection", name), zap.Int("dimension", dimension))
	return nil
}

// DeleteCollection deletes the index.
func (s *ElasticStore) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.mu.Lock()
	delete(s.dims, name)
	s.mu.Unlock()

	res, err := s.es.Indices.Delete([]string{name}, s.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseError(res, "delete index", name)
	}
	s.logger.Info("collection deleted", zap.String("collection", name))
	return nil
}

const metadataKey = "metadata"

func indexMeta(md map[string]string) map[string]any {
	meta := map[string]any{
		metaMarker: true,
		"distance": string(DistanceCosine),
	}
	if len(md) > 0 {
		meta[metadataKey] = md
	}
	return meta
}

func metadataFromMeta(meta map[string]any) map[string]string {
	raw, _ := meta[metadataKey].(map[string]any)
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}
	return out
}

// SetMetadata replaces the collection metadata kept in the mapping _meta.
func (s *ElasticStore) SetMetadata(ctx context.Context, name string, md map[string]string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(map[string]any{"_meta": indexMeta(md)})
	if err != nil {
		return fmt.Errorf("marshal mapping body: %w", err)
	}
	res, err := s.es.Indices.PutMapping([]string{name}, bytes.NewReader(payload),
		s.es.Indices.PutMapping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseError(res, "put mapping", name)
	}
	return nil
}

type mappingResponse map[string]struct {
	Mappings struct {
		Meta       map[string]any `json:"_meta"`
		Properties struct {
			Vector struct {
				Dims int `json:"dims"`
			} `json:"vector"`
		} `json:"properties"`
	} `json:"mappings"`
}

func (s *ElasticStore) mappings(ctx context.Context, index ...string) (mappingResponse, error) {
	opts := []func(*esapi.IndicesGetMappingRequest){s.es.Indices.GetMapping.WithContext(ctx)}
	if len(index) > 0 {
		opts = append(opts, s.es.Indices.GetMapping.WithIndex(index...))
	}
	res, err := s.es.Indices.GetMapping(opts...)
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, responseError(res, "get mapping", strings.Join(index, ","))
	}

	var parsed mappingResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mapping response: %w", err)
	}
	return parsed, nil
}

func (s *ElasticStore) count(ctx context.Context, name string) (int64, error) {
	res, err := s.es.Count(s.es.Count.WithContext(ctx), s.es.Count.WithIndex(name))
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return 0, responseError(res, "count", name)
	}
	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

// ListCollections returns the indices created by RecreateCollection.
func (s *ElasticStore) ListCollections(ctx context.Context) ([]Collection, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mappings, err := s.mappings(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Collection, 0, len(mappings))
	for name, m := range mappings {
		if marked, _ := m.Mappings.Meta[metaMarker].(bool); !marked {
			continue
		}
		n, err := s.count(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, Collection{
			Name:        name,
			Dimension:   m.Mappings.Properties.Vector.Dims,
			Distance:    DistanceCosine,
			PointsCount: n,
			Metadata:    metadataFromMeta(m.Mappings.Meta),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CollectionInfo returns the index dimension and document count.
func (s *ElasticStore) CollectionInfo(ctx context.Context, name string) (*Collection, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mappings, err := s.mappings(ctx, name)
	if err != nil {
		return nil, err
	}
	m, ok := mappings[name]
	if !ok {
		s.forget(name)
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	n, err := s.count(ctx, name)
	if err != nil {
		return nil, err
	}

	dim := m.Mappings.Properties.Vector.Dims
	s.mu.Lock()
	s.dims[name] = dim
	s.mu.Unlock()
	return &Collection{
		Name:        name,
		Dimension:   dim,
		Distance:    DistanceCosine,
		PointsCount: n,
		Metadata:    metadataFromMeta(m.Mappings.Meta),
	}, nil
}

// dimension returns the cached vector dimension of name, reading the mapping
// on a miss.
func (s *ElasticStore) dimension(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	dim, ok := s.dims[name]
	s.mu.RUnlock()
	if ok {
		return dim, nil
	}
	return s.loadDimension(ctx, name)
}

// loadDimension reads dims from the index mapping and refreshes the cache.
func (s *ElasticStore) loadDimension(ctx context.Context, name string) (int, error) {
	mappings, err := s.mappings(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			s.forget(name)
		}
		return 0, err
	}
	m, ok := mappings[name]
	if !ok {
		s.forget(name)
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	dim := m.Mappings.Properties.Vector.Dims
	s.mu.Lock()
	s.dims[name] = dim
	s.mu.Unlock()
	return dim, nil
}

// checkDimension fails unless n matches the collection dimension. A cached
// dimension that disagrees is re-read once, since another process may have
// recreated the index.
func (s *ElasticStore) checkDimension(ctx context.Context, name string, n int, what string) error {
	dim, err := s.dimension(ctx, name)
	if err != nil {
		return err
	}
	if n != dim {
		if dim, err = s.loadDimension(ctx, name); err != nil {
			return err
		}
	}
	if n != dim {
		return fmt.Errorf("%w: %s has %d values, collection %s expects %d",
			ErrDimensionMismatch, what, n, name, dim)
	}
	return nil
}

func (s *ElasticStore) forget(name string) {
	s.mu.Lock()
	delete(s.dims, name)
	s.mu.Unlock()
}

// bulkBody renders points as an NDJSON _bulk body.
func bulkBody(name string, points []Point) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range points {
		meta := map[string]any{
			"index": map[string]any{"_index": name, "_id": strconv.FormatInt(points[i].ID, 10)},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, err
		}
		if err := enc.Encode(toDocument(&points[i])); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (r *bulkResponse) firstError() error {
	for _, item := range r.Items {
		for _, op := range item {
			if op.Error != nil {
				return fmt.Errorf("point %s: %s: %s", op.ID, op.Error.Type, op.Error.Reason)
			}
		}
	}
	return nil
}

// Upsert indexes the batch with one _bulk request and waits for refresh.
// Elasticsearch applies bulk items independently, so a failed batch may be
// partially written; the error is still reported.
func (s *ElasticStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for i := range points {
		if err := s.checkDimension(ctx, name, len(points[i].Vector), fmt.Sprintf("point %d", points[i].ID)); err != nil {
			return err
		}
	}

	body, err := bulkBody(name, points)
	if err != nil {
		return fmt.Errorf("marshal bulk body: %w", err)
	}

	res, err := s.es.Bulk(bytes.NewReader(body),
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(name),
		s.es.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseError(res, "bulk", name)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if parsed.Errors {
		return fmt.Errorf("bulk into %s failed: %w", name, parsed.firstError())
	}
	return nil
}

type searchHit struct {
	ID     string     `json:"_id"`
	Score  float64    `json:"_score"`
	Source esDocument `json:"_source"`
}

func (s *ElasticStore) doSearch(ctx context.Context, name string, body map[string]any) ([]searchHit, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(name),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		err := responseError(res, "search", name)
		if errors.Is(err, ErrCollectionNotFound) {
			s.forget(name)
		}
		return nil, err
	}

	var parsed struct {
		Hits struct {
			Hits []searchHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Hits.Hits, nil
}

// Search runs a filtered knn query.
func (s *ElasticStore) Search(ctx context.Context, name string, vector []float32, filter *Filter, limit int) ([]types.SearchResult, error) {
	return s.search(ctx, name, vector, filter, limit, math.Inf(-1))
}

// SearchSimilar drops hits below threshold.
func (s *ElasticStore) SearchSimilar(ctx context.Context, name string, vector []float32, filter *Filter, limit int, threshold float64) ([]types.SearchResult, error) {
	return s.search(ctx, name, vector, filter, limit, threshold)
}

func (s *ElasticStore) search(ctx context.Context, name string, vector []float32, filter *Filter, limit int, threshold float64) ([]types.SearchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.checkDimension(ctx, name, len(vector), "query"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []types.SearchResult{}, nil
	}

	clauses, err := filterClauses(filter)
	if err != nil {
		return nil, err
	}

	// A zero query is equally similar to everything
	if isZero(vector) {
		if threshold > 0 {
			return []types.SearchResult{}, nil
		}
		hits, err := s.doSearch(ctx, name, scrollBody(clauses, limit))
		if err != nil {
			return nil, err
		}
		return hitsToResults(hits, func(searchHit) *float64 {
			zero := 0.0
			return &zero
		})
	}

	hits, err := s.doSearch(ctx, name, knnBody(vector, clauses, limit))
	if err != nil {
		return nil, err
	}
	results, err := hitsToResults(hits, func(h searchHit) *float64 {
		score := cosineFromScore(h.Score)
		return &score
	})
	if err != nil {
		return nil, err
	}

	kept := results[:0]
	for _, r := range results {
		if *r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if *kept[i].Score != *kept[j].Score {
			return *kept[i].Score > *kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})
	return kept, nil
}

func hitsToResults(hits []searchHit, score func(searchHit) *float64) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(hits))
	for _, h := range hits {
		payload, err := h.Source.payload()
		if err != nil {
			return nil, err
		}
		results = append(results, types.NewSearchResult(h.Source.PointID, score(h), payload))
	}
	return results, nil
}

// Scroll returns matching documents sorted by point id.
func (s *ElasticStore) Scroll(ctx context.Context, name string, filter *Filter, limit int) ([]types.SearchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		if _, err := s.dimension(ctx, name); err != nil {
			return nil, err
		}
		return []types.SearchResult{}, nil
	}

	clauses, err := filterClauses(filter)
	if err != nil {
		return nil, err
	}
	hits, err := s.doSearch(ctx, name, scrollBody(clauses, limit))
	if err != nil {
		return nil, err
	}
	return hitsToResults(hits, func(searchHit) *float64 { return nil })
}

// Retrieve fetches documents by id with _mget.
func (s *ElasticStore) Retrieve(ctx context.Context, name string, ids []int64) ([]types.SearchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if len(ids) == 0 {
		if _, err := s.dimension(ctx, name); err != nil {
			return nil, err
		}
		return []types.SearchResult{}, nil
	}

	docIDs := make([]string, len(ids))
	for i, id := range ids {
		docIDs[i] = strconv.FormatInt(id, 10)
	}
	payload, err := json.Marshal(map[string]any{"ids": docIDs})
	if err != nil {
		return nil, fmt.Errorf("marshal mget body: %w", err)
	}

	res, err := s.es.Mget(bytes.NewReader(payload),
		s.es.Mget.WithContext(ctx),
		s.es.Mget.WithIndex(name),
		s.es.Mget.WithSourceExcludes("vector"),
	)
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, responseError(res, "mget", name)
	}

	var parsed struct {
		Docs []struct {
			Found  bool       `json:"found"`
			Source esDocument `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mget response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(parsed.Docs))
	for _, d := range parsed.Docs {
		if !d.Found {
			continue
		}
		p, err := d.Source.payload()
		if err != nil {
			return nil, err
		}
		results = append(results, types.NewSearchResult(d.Source.PointID, nil, p))
	}
	return results, nil
}
