package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

type recordingSearcher struct {
	last searcher.Request
	resp *searcher.Response
	err  error
}

func (r *recordingSearcher) Search(_ context.Context, req searcher.Request) (*searcher.Response, error) {
	r.last = req
	if r.err != nil {
		return nil, r.err
	}
	return r.resp, nil
}

func newTestServer(t *testing.T, s Searcher) *Server {
	t.Helper()
	ctx := context.Background()

	store, err := vectorstore.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.RecreateCollection(ctx, "news_bm25", 3))
	require.NoError(t, store.Upsert(ctx, "news_bm25", []vectorstore.Point{
		{ID: 0, Vector: []float32{1, 0, 0}, Payload: types.Payload{OriginalID: 7, Title: "a"}},
	}))

	return NewServer(s, store, nil)
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	var text string
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content %T", c)
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func TestHandleSearchNewsParsesArguments(t *testing.T) {
	score := 0.8
	rs := &recordingSearcher{resp: &searcher.Response{
		Results:    []types.SearchResult{{ID: 0, Score: &score, OriginalID: 7, Title: "a"}},
		Mode:       searcher.ModeCombined,
		Strategy:   embedder.StrategyBM25,
		Collection: "news_bm25",
	}}
	srv := newTestServer(t, rs)

	res, err := srv.handleSearchNews(context.Background(), callRequest("search_news", map[string]interface{}{
		"prompt":                "inflación",
		"keywords":              []interface{}{"dólar", "bcra"},
		"section":               "Economía",
		"date":                  "2024-11-16",
		"min_keyword_score":     0.3,
		"match_any_keyword":     true,
		"limit":                 float64(5),
		"embedder":              "bm25",
		"sort_by_keyword_score": true,
	}))
	require.NoError(t, err)

	q := rs.last.Query
	assert.Equal(t, "inflación", q.Prompt)
	assert.Equal(t, []string{"dólar", "bcra"}, q.Keywords)
	assert.Equal(t, "Economía", q.Section)
	assert.Equal(t, "2024-11-16", q.Date)
	assert.InDelta(t, 0.3, q.MinKeywordScore, 1e-9)
	assert.True(t, q.MatchAnyKeyword)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, embedder.StrategyBM25, rs.last.Strategy)
	assert.True(t, rs.last.SortByKeywordScore)

	out := resultJSON(t, res)
	assert.Equal(t, "semantic+keyword", out["mode"])
	assert.Equal(t, float64(1), out["count"])
}

func TestHandleSearchNewsKeywordString(t *testing.T) {
	rs := &recordingSearcher{resp: &searcher.Response{}}
	srv := newTestServer(t, rs)

	_, err := srv.handleSearchNews(context.Background(), callRequest("search_news", map[string]interface{}{
		"keywords": "dólar, bcra",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dólar", "bcra"}, rs.last.Query.Keywords)
	assert.Equal(t, types.DefaultLimit, rs.last.Query.Limit)
}

func TestHandleSearchNewsErrors(t *testing.T) {
	tests := []struct {
		name string
		args interface{}
		err  error
		code int
	}{
		{name: "bad arguments", args: "nope", code: ErrorCodeInvalidParams},
		{name: "bad keywords", args: map[string]interface{}{"keywords": []interface{}{1.0}}, code: ErrorCodeInvalidParams},
		{name: "empty query", args: map[string]interface{}{}, err: types.ErrEmptyQuery, code: ErrorCodeEmptyQuery},
		{name: "bad date", args: map[string]interface{}{"prompt": "x"}, err: types.ErrInvalidDate, code: ErrorCodeInvalidParams},
		{name: "not indexed", args: map[string]interface{}{"prompt": "x"}, err: vectorstore.ErrCollectionNotFound, code: ErrorCodeCollectionNotFound},
		{name: "unknown embedder", args: map[string]interface{}{"prompt": "x"}, err: embedder.ErrUnsupportedStrategy, code: ErrorCodeUnsupportedEmbedder},
		{name: "internal", args: map[string]interface{}{"prompt": "x"}, err: errors.New("boom"), code: ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &recordingSearcher{err: tt.err})

			var req mcp.CallToolRequest
			req.Params.Arguments = tt.args
			_, err := srv.handleSearchNews(context.Background(), req)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestHandleListCollections(t *testing.T) {
	srv := newTestServer(t, &recordingSearcher{})

	res, err := srv.handleListCollections(context.Background(), callRequest("list_collections", nil))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, float64(1), out["count"])
}

func TestHandleCollectionInfo(t *testing.T) {
	srv := newTestServer(t, &recordingSearcher{})

	res, err := srv.handleCollectionInfo(context.Background(), callRequest("collection_info", map[string]interface{}{
		"name": "news_bm25",
	}))
	require.NoError(t, err)

	out := resultJSON(t, res)
	assert.Equal(t, float64(3), out["dimension"])
	assert.Equal(t, float64(1), out["points_count"])
	assert.Equal(t, "Cosine", out["distance"])

	_, err = srv.handleCollectionInfo(context.Background(), callRequest("collection_info", map[string]interface{}{
		"name": "news_dpr",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeCollectionNotFound, mcpErr.Code)

	_, err = srv.handleCollectionInfo(context.Background(), callRequest("collection_info", map[string]interface{}{}))
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSearchNewsSchema(t *testing.T) {
	tool := searchNewsTool()
	assert.Equal(t, "search_news", tool.Name)

	prop, ok := tool.InputSchema.Properties["embedder"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"tfidf", "bm25", "dpr", "sbert", "minilm"}, prop["enum"])
}

func TestListenStopsOnCancel(t *testing.T) {
	srv := newTestServer(t, &recordingSearcher{})

	// stdin that never delivers a line
	in, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Listen(ctx, in, io.Discard) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestListenAnswersOverStreams(t *testing.T) {
	srv := newTestServer(t, &recordingSearcher{})

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer
	require.NoError(t, srv.Listen(context.Background(), in, &out))

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_news", "list_collections", "collection_info"}, names)
}
