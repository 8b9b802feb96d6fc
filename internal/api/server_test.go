package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

type stubSearcher struct {
	last searcher.Request
	err  error
}

func (s *stubSearcher) Search(_ context.Context, req searcher.Request) (*searcher.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &searcher.Response{
		Results:    []types.SearchResult{{ID: 0, OriginalID: 7, Title: "Suba del dólar"}},
		Mode:       searcher.ModeKeyword,
		Strategy:   req.Strategy,
		Collection: req.Strategy.CollectionName(),
	}, nil
}

func newTestAPI(t *testing.T, s Searcher) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	store, err := vectorstore.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.RecreateCollection(ctx, "news_tfidf", 4))

	ts := httptest.NewServer(New(s, store, Config{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts := newTestAPI(t, &stubSearcher{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestPostSearch(t *testing.T) {
	stub := &stubSearcher{}
	ts := newTestAPI(t, stub)

	payload := `{"keywords":["dólar"],"section":"Economía","limit":3,"embedder":"TFIDF","sort_by_keyword_score":true}`
	resp, err := http.Post(ts.URL+"/v1/search", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body searcher.Response
	decode(t, resp, &body)
	require.Len(t, body.Results, 1)
	assert.Nil(t, body.Results[0].Score)
	assert.Equal(t, searcher.ModeKeyword, body.Mode)

	assert.Equal(t, []string{"dólar"}, stub.last.Query.Keywords)
	assert.Equal(t, "Economía", stub.last.Query.Section)
	assert.Equal(t, 3, stub.last.Query.Limit)
	assert.Equal(t, embedder.StrategyTFIDF, stub.last.Strategy)
	assert.True(t, stub.last.SortByKeywordScore)
}

func TestGetSearch(t *testing.T) {
	stub := &stubSearcher{}
	ts := newTestAPI(t, stub)

	resp, err := http.Get(ts.URL + "/v1/search?prompt=inflaci%C3%B3n&keywords=bcra,tasas&match_any_keyword=true&min_keyword_score=0.4&limit=2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	q := stub.last.Query
	assert.Equal(t, "inflación", q.Prompt)
	assert.Equal(t, []string{"bcra", "tasas"}, q.Keywords)
	assert.True(t, q.MatchAnyKeyword)
	assert.InDelta(t, 0.4, q.MinKeywordScore, 1e-9)
	assert.Equal(t, 2, q.Limit)

	resp, err = http.Get(ts.URL + "/v1/search?prompt=x&limit=many")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty query", types.ErrEmptyQuery, http.StatusBadRequest},
		{"invalid date", types.ErrInvalidDate, http.StatusBadRequest},
		{"invalid limit", types.ErrInvalidLimit, http.StatusBadRequest},
		{"unknown embedder", embedder.ErrUnsupportedStrategy, http.StatusBadRequest},
		{"not indexed", vectorstore.ErrCollectionNotFound, http.StatusNotFound},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestAPI(t, &stubSearcher{err: tt.err})

			resp, err := http.Post(ts.URL+"/v1/search", "application/json", strings.NewReader(`{"prompt":"x"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorResponse
			decode(t, resp, &body)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestPostSearchBadBody(t *testing.T) {
	ts := newTestAPI(t, &stubSearcher{})

	for _, payload := range []string{`{`, `{"unknown":1}`} {
		resp, err := http.Post(ts.URL+"/v1/search", "application/json", strings.NewReader(payload))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, payload)
	}
}

func TestCollections(t *testing.T) {
	ts := newTestAPI(t, &stubSearcher{})

	resp, err := http.Get(ts.URL + "/v1/collections")
	require.NoError(t, err)
	var list struct {
		Collections []vectorstore.Collection `json:"collections"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Collections, 1)
	assert.Equal(t, "news_tfidf", list.Collections[0].Name)

	resp, err = http.Get(ts.URL + "/v1/collections/news_tfidf")
	require.NoError(t, err)
	var info vectorstore.Collection
	decode(t, resp, &info)
	assert.Equal(t, 4, info.Dimension)
	assert.Equal(t, vectorstore.DistanceCosine, info.Distance)

	resp, err = http.Get(ts.URL + "/v1/collections/news_dpr")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
