package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

func TestSelectStrategies(t *testing.T) {
	all, err := selectStrategies("", true)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	one, err := selectStrategies("BM25", false)
	require.NoError(t, err)
	assert.Equal(t, []embedder.Strategy{embedder.StrategyBM25}, one)

	_, err = selectStrategies("word2vec", false)
	assert.ErrorIs(t, err, embedder.ErrUnsupportedStrategy)
}

func TestRecentDates(t *testing.T) {
	at := func(s string) *time.Time {
		d, _ := time.Parse(types.DateLayout, s)
		return &d
	}
	records := []types.Record{
		{PublishedAt: at("2024-11-14")},
		{PublishedAt: at("2024-11-16")},
		{},
		{PublishedAt: at("2024-11-16")},
		{PublishedAt: at("2024-11-15")},
	}

	assert.Equal(t, []string{"2024-11-16", "2024-11-15"}, recentDates(records, 2))
	assert.Empty(t, recentDates(nil, 7))
}

func TestDeleteCollectionsKeepsExceptions(t *testing.T) {
	ctx := context.Background()
	store, err := vectorstore.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	for _, name := range []string{"news_tfidf", "news_bm25", "news_minilm"} {
		require.NoError(t, store.RecreateCollection(ctx, name, 2))
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(ctx)

	deleted, err := deleteCollections(cmd, store, map[string]struct{}{"news_minilm": {}})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Contains(t, out.String(), "kept news_minilm")

	left, err := store.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "news_minilm", left[0].Name)
}

func TestPrintResults(t *testing.T) {
	score := 0.8123
	date := "2024-11-16"
	var out bytes.Buffer

	printResults(&out, &searcher.Response{
		Collection: "news_bm25",
		Mode:       searcher.ModeCombined,
		Results: []types.SearchResult{
			{
				ID: 3, Score: &score, OriginalID: 103, Title: "Suba del dólar",
				Section: "Economía", PublishedAt: &date, Newspaper: "Clarín",
				Keywords:         []types.Keyword{{Term: "dólar", Score: 0.9}, {Term: "bcra", Score: 0.4}},
				MatchingKeywords: []types.Keyword{{Term: "dólar", Score: 0.9}},
			},
			{ID: 4, OriginalID: 104, Title: "Sin fecha"},
		},
	})

	s := out.String()
	assert.Contains(t, s, "2 results from news_bm25 (semantic+keyword)")
	assert.Contains(t, s, "score:     0.8123")
	assert.Contains(t, s, "matching:  dólar (0.90)")
	assert.NotContains(t, s, "bcra")
	assert.Contains(t, s, "date: unknown")
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"index", "search", "evaluate", "collections", "serve", "mcp", "embed-check", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
