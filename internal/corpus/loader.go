package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/argnews/newsrag/internal/keywords"
	"github.com/argnews/newsrag/pkg/types"
)

// Default word-count bounds
const (
	DefaultMinWords = 500
	DefaultMaxWords = 20000
)

// LoadOptions selects and filters the records to load.
type LoadOptions struct {
	UseProcessed    bool
	MinWords        int
	MaxWords        int // 0 means no upper bound
	MinKeywordScore float64
	Limit           int // 0 means no limit
}

// DefaultLoadOptions returns the bounds used by the indexing command.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{MinWords: DefaultMinWords, MaxWords: DefaultMaxWords}
}

// LoadStats describes what a Load call skipped.
type LoadStats struct {
	Scanned       int
	Empty         int // no text at all, dropped whatever MinWords is
	TooShort      int
	TooLong       int
	WithKeywords  int
	KeywordsKept  int
	KeywordsTotal int
}

// Loader reads corpus records from the article store.
type Loader struct {
	db *DB
}

// NewLoader creates a loader over db.
func NewLoader(db *DB) *Loader {
	return &Loader{db: db}
}

type articleRow struct {
	ID               int64          `db:"id"`
	Title            string         `db:"title"`
	Content          string         `db:"content"`
	PublishedAt      sql.NullTime   `db:"published_at"`
	Section          string         `db:"section"`
	Newspaper        string         `db:"newspaper"`
	ProcessedTitle   sql.NullString `db:"processed_title"`
	ProcessedContent sql.NullString `db:"processed_content"`
	Keywords         sql.NullString `db:"keywords"`
}

func buildLoadQuery(opts LoadOptions) string {
	join := "LEFT JOIN"
	if opts.UseProcessed {
		join = "INNER JOIN"
	}
	var b strings.Builder
	b.WriteString(`
		SELECT
			a.id, a.title, a.content, a.published_at,
			s.name AS section, n.name AS newspaper,
			p.processed_title, p.processed_content, p.keywords
		FROM articles a
		INNER JOIN sections s ON s.id = a.section_id
		INNER JOIN newspapers n ON n.id = a.newspaper_id
		`)
	b.WriteString(join)
	b.WriteString(` processed_articles p ON p.article_id = a.id
		ORDER BY a.id`)
	return b.String()
}

// Load returns the filtered corpus ordered by article id.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) ([]types.Record, error) {
	records, _, err := l.LoadWithStats(ctx, opts)
	return records, err
}

// LoadWithStats is Load plus counters for logging.
func (l *Loader) LoadWithStats(ctx context.Context, opts LoadOptions) ([]types.Record, LoadStats, error) {
	var stats LoadStats

	rows, err := l.db.QueryxContext(ctx, buildLoadQuery(opts))
	if err != nil {
		return nil, stats, fmt.Errorf("failed to query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]types.Record, 0)
	for rows.Next() {
		var row articleRow
		if err := rows.StructScan(&row); err != nil {
			return nil, stats, fmt.Errorf("failed to scan article: %w", err)
		}
		stats.Scanned++

		rec, ok := toRecord(row, opts, &stats)
		if !ok {
			continue
		}
		records = append(records, rec)
		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, stats, err
	}

	return records, stats, nil
}

func toRecord(row articleRow, opts LoadOptions, stats *LoadStats) (types.Record, bool) {
	title, content := row.Title, row.Content
	if opts.UseProcessed {
		title, content = row.ProcessedTitle.String, row.ProcessedContent.String
	}

	words := CountWords(content)
	if words == 0 {
		stats.Empty++
		return types.Record{}, false
	}
	if words < opts.MinWords {
		stats.TooShort++
		return types.Record{}, false
	}
	if opts.MaxWords > 0 && words > opts.MaxWords {
		stats.TooLong++
		return types.Record{}, false
	}

	decoded := keywords.Decode(row.Keywords.String)
	kept := keywords.FilterMin(decoded, opts.MinKeywordScore)
	stats.KeywordsTotal += len(decoded)
	stats.KeywordsKept += len(kept)
	if len(kept) > 0 {
		stats.WithKeywords++
	}

	rec := types.Record{
		ID:        row.ID,
		Title:     title,
		Content:   content,
		Section:   row.Section,
		Newspaper: row.Newspaper,
		Keywords:  kept,
	}
	if row.PublishedAt.Valid {
		t := row.PublishedAt.Time
		rec.PublishedAt = &t
	}
	return rec, true
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
