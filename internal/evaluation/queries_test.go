package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/pkg/types"
)

func TestDefaultQueries(t *testing.T) {
	queries := DefaultQueries(GenerateOptions{
		Dates:               []string{"2024-11-16", "2024-11-17"},
		IncludeCrossSection: true,
		MinKeywordScore:     DefaultMinKeywordScore,
	})

	// 24 topics, 5 prompt variations plus one keyword-only query each
	require.Len(t, queries, 24*6)

	first := queries[0]
	assert.Equal(t, "noticias sobre apreciación del peso", first.Prompt)
	assert.Equal(t, "Economía", first.Section)
	assert.Equal(t, "2024-11-16", first.Date)
	assert.Equal(t, []string{"peso", "dólar", "tipo de cambio", "mercado cambiario"}, first.Keywords)
	assert.Equal(t, "2024-11-17", queries[1].Date)

	kwOnly := queries[5]
	assert.Empty(t, kwOnly.Prompt)
	assert.Empty(t, kwOnly.Date)
	assert.Equal(t, "Economía", kwOnly.Section)

	last := queries[len(queries)-1]
	assert.Empty(t, last.Section, "cross-section topics carry no section")

	for i, q := range queries {
		q.Normalize()
		assert.NoError(t, q.Validate(), "query %d", i)
	}
}

func TestDefaultQueriesKeywordAverages(t *testing.T) {
	queries := DefaultQueries(GenerateOptions{
		Sections:        []string{"Economía"},
		MinKeywordScore: 0.3,
		KeywordAverages: map[string]float64{"dólar": 0.5, "peso": 0.1},
	})

	assert.Equal(t, []string{"dólar"}, queries[0].Keywords)

	// a topic left without keywords gets no keyword-only query
	var kwOnly int
	for _, q := range queries {
		if q.Prompt == "" {
			kwOnly++
		}
	}
	assert.Equal(t, 2, kwOnly)
}

func TestAverageKeywordScores(t *testing.T) {
	records := []types.Record{
		{Keywords: []types.Keyword{{Term: "Dólar", Score: 0.4}, {Term: "peso", Score: 1}}},
		{Keywords: []types.Keyword{{Term: "dólar", Score: 0.8}}},
	}

	avg := AverageKeywordScores(records, 2)
	assert.InDelta(t, 0.6, avg["dólar"], 1e-9)
	assert.NotContains(t, avg, "peso")
}

func TestSaveLoadQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets", "queries.json")
	in := []types.SearchQuery{
		{Prompt: "inflación", Keywords: []string{"bcra"}, Section: "Economía", Date: "2024-11-16", Limit: 5},
		{Keywords: []string{"dólar"}, MatchAnyKeyword: true, Limit: 5},
	}

	require.NoError(t, SaveQueries(path, in))
	out, err := LoadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadQueriesNullPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	data := `[{"prompt": null, "keywords": ["dólar"], "date": null, "section": "Economía", "min_keyword_score": 0.1}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	out, err := LoadQueries(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Prompt)
	assert.Equal(t, types.DefaultLimit, out[0].Limit)
}

func TestLoadQueriesRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"section": "Economía"}]`), 0o644))

	_, err := LoadQueries(path)
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestQueryCategories(t *testing.T) {
	s := QueryCategories([]types.SearchQuery{
		{Prompt: "a", Keywords: []string{"x"}, Section: "Economía", Date: "2024-11-16"},
		{Prompt: "b", Date: "2024-11-16"},
		{Keywords: []string{"x"}, Section: "Política"},
		{Prompt: "c"},
	})

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Combined)
	assert.Equal(t, 2, s.SemanticOnly)
	assert.Equal(t, 1, s.KeywordOnly)
	assert.Equal(t, 1, s.DateAndSection)
	assert.Equal(t, 1, s.DateOnly)
	assert.Equal(t, 1, s.SectionOnly)
	assert.Equal(t, 1, s.NoFilters)
	assert.Equal(t, map[string]int{"Economía": 1, "Política": 1}, s.BySection)
}
