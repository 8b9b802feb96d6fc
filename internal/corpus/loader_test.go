package corpus

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/internal/keywords"
	"github.com/argnews/newsrag/pkg/types"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:", Options{})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	title, content, section, newspaper, link string
	published                                *time.Time
}

func insertArticle(t *testing.T, db *DB, f fixture) int64 {
	t.Helper()
	ctx := context.Background()

	paperID, err := db.EnsureNewspaper(ctx, f.newspaper)
	require.NoError(t, err)
	sectionID, err := db.EnsureSection(ctx, f.section)
	require.NoError(t, err)

	id, created, err := db.InsertArticle(ctx, &types.Article{
		Title:       f.title,
		Content:     f.content,
		Link:        f.link,
		NewspaperID: paperID,
		SectionID:   sectionID,
		PublishedAt: f.published,
	})
	require.NoError(t, err)
	require.True(t, created)
	return id
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palabra ", n))
}

func TestWordCountFiltering(t *testing.T) {
	db := setupTestDB(t)
	short := insertArticle(t, db, fixture{title: "corta", content: words(10), section: "Política", newspaper: "Clarín", link: "https://a/1"})
	long := insertArticle(t, db, fixture{title: "larga", content: words(50000), section: "Política", newspaper: "Clarín", link: "https://a/2"})
	ok := insertArticle(t, db, fixture{title: "justa", content: words(1000), section: "Política", newspaper: "Clarín", link: "https://a/3"})

	records, stats, err := NewLoader(db).LoadWithStats(context.Background(), LoadOptions{MinWords: 500, MaxWords: 20000})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, ok, records[0].ID)
	assert.NotEqual(t, short, records[0].ID)
	assert.NotEqual(t, long, records[0].ID)
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 1, stats.TooShort)
	assert.Equal(t, 1, stats.TooLong)
}

func TestEmptyArticlesAlwaysDropped(t *testing.T) {
	db := setupTestDB(t)
	insertArticle(t, db, fixture{title: "vacía", content: "   ", section: "Política", newspaper: "Clarín", link: "https://a/1"})
	kept := insertArticle(t, db, fixture{title: "breve", content: "una palabra", section: "Política", newspaper: "Clarín", link: "https://a/2"})

	records, stats, err := NewLoader(db).LoadWithStats(context.Background(), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, kept, records[0].ID)
	assert.Equal(t, 1, stats.Empty)
	assert.Zero(t, stats.TooShort)
}

func TestProcessedRawSwitch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	published := time.Date(2024, 11, 16, 10, 0, 0, 0, time.UTC)

	withProcessed := insertArticle(t, db, fixture{
		title: "Título Crudo", content: "Contenido crudo del artículo", section: "Economía",
		newspaper: "La Nación", link: "https://b/1", published: &published,
	})
	rawOnly := insertArticle(t, db, fixture{
		title: "Solo crudo", content: "Texto sin procesar", section: "Economía",
		newspaper: "La Nación", link: "https://b/2",
	})

	require.NoError(t, db.ReplaceProcessed(ctx, &types.ProcessedArticle{
		ArticleID:        withProcessed,
		ProcessedTitle:   "título procesar",
		ProcessedContent: "contenido procesar artículo",
		Keywords:         keywords.Encode([]types.Keyword{{Term: "dólar", Score: 0.8}, {Term: "tasa", Score: 0.1}}),
	}))

	loader := NewLoader(db)

	t.Run("processed", func(t *testing.T) {
		records, err := loader.Load(ctx, LoadOptions{UseProcessed: true})
		require.NoError(t, err)
		require.Len(t, records, 1, "inner join drops articles without a processed sibling")

		rec := records[0]
		assert.Equal(t, withProcessed, rec.ID)
		assert.Equal(t, "título procesar", rec.Title)
		assert.Equal(t, "contenido procesar artículo", rec.Content)
		assert.Equal(t, "Economía", rec.Section)
		assert.Equal(t, "La Nación", rec.Newspaper)
		require.NotNil(t, rec.PublishedAt)
		assert.Equal(t, "2024-11-16", rec.PublishedAt.UTC().Format(types.DateLayout))
		assert.Len(t, rec.Keywords, 2)
	})

	t.Run("raw keeps processed keywords", func(t *testing.T) {
		records, err := loader.Load(ctx, LoadOptions{MinKeywordScore: 0.5})
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "Título Crudo", records[0].Title)
		assert.Equal(t, "Contenido crudo del artículo", records[0].Content)
		assert.Equal(t, []types.Keyword{{Term: "dólar", Score: 0.8}}, records[0].Keywords)

		assert.Equal(t, rawOnly, records[1].ID)
		assert.Empty(t, records[1].Keywords)
		assert.Nil(t, records[1].PublishedAt)
	})
}

func TestMalformedKeywordsDegrade(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := insertArticle(t, db, fixture{title: "t", content: "uno dos tres", section: "Sociedad", newspaper: "Página 12", link: "https://c/1"})
	require.NoError(t, db.ReplaceProcessed(ctx, &types.ProcessedArticle{
		ArticleID: id, ProcessedTitle: "t", ProcessedContent: "uno dos tres", Keywords: "not (a valid) list",
	}))

	records, err := NewLoader(db).Load(ctx, LoadOptions{UseProcessed: true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].Keywords)
	assert.Empty(t, records[0].Keywords)
}

func TestInsertArticleIdempotentOnLink(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	first := insertArticle(t, db, fixture{title: "a", content: "x", section: "s", newspaper: "n", link: "https://d/1"})

	paperID, err := db.EnsureNewspaper(ctx, "n")
	require.NoError(t, err)
	id, created, err := db.InsertArticle(ctx, &types.Article{Title: "b", Content: "y", Link: "https://d/1", NewspaperID: paperID, SectionID: 1})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, id)
}

func TestReplaceProcessedRegenerates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := insertArticle(t, db, fixture{title: "a", content: "x", section: "s", newspaper: "n", link: "https://e/1"})

	require.NoError(t, db.ReplaceProcessed(ctx, &types.ProcessedArticle{ArticleID: id, ProcessedTitle: "v1", ProcessedContent: "v1"}))
	require.NoError(t, db.ReplaceProcessed(ctx, &types.ProcessedArticle{ArticleID: id, ProcessedTitle: "v2", ProcessedContent: "v2"}))

	p, err := db.GetProcessed(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", p.ProcessedTitle)

	_, err = db.GetProcessed(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadLimit(t *testing.T) {
	db := setupTestDB(t)
	for i := 0; i < 5; i++ {
		insertArticle(t, db, fixture{title: "t", content: "a b", section: "s", newspaper: "n", link: "https://f/" + string(rune('a'+i))})
	}
	records, err := NewLoader(db).Load(context.Background(), LoadOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", Options{})
	assert.Error(t, err)

	_, err = Open(context.Background(), DriverSQLite, "", Options{})
	assert.Error(t, err)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 3, CountWords(" uno\tdos\ntres "))
}

func TestLineageRoundTrip(t *testing.T) {
	records := []types.Record{
		{ID: 3, Content: "la inflación de octubre"},
		{ID: 7, Content: "el congreso aprobó la ley"},
	}
	opts := LoadOptions{UseProcessed: true, MinWords: 50, MaxWords: 900, MinKeywordScore: 0.25, Limit: 10}
	l := NewLineage(opts, records)

	parsed, ok, err := LineageFromMetadata(l.Metadata())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, l, parsed)
	assert.NoError(t, parsed.Verify(records))

	t.Run("changed text", func(t *testing.T) {
		changed := []types.Record{records[0], {ID: 7, Content: "el senado aprobó la ley"}}
		assert.ErrorIs(t, parsed.Verify(changed), ErrCorpusChanged)
	})

	t.Run("dropped record", func(t *testing.T) {
		assert.ErrorIs(t, parsed.Verify(records[:1]), ErrCorpusChanged)
	})

	t.Run("no lineage", func(t *testing.T) {
		_, ok, err := LineageFromMetadata(map[string]string{"other": "x"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt", func(t *testing.T) {
		md := l.Metadata()
		md["corpus.min_words"] = "many"
		_, ok, err := LineageFromMetadata(md)
		assert.True(t, ok)
		assert.Error(t, err)
	})
}
