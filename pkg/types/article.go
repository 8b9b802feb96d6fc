package types

import "time"

// DateLayout is the day-level date format used in payloads and filters.
const DateLayout = "2006-01-02"

// Keyword is a lemma with its relevance score inside one document.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Article is a raw article as persisted by the collector.
type Article struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	Link        string     `db:"link"`
	NewspaperID int64      `db:"newspaper_id"`
	SectionID   int64      `db:"section_id"`
	PublishedAt *time.Time `db:"published_at"` // Nullable - some sources never resolve it
}

// ProcessedArticle holds the normalized text and encoded keyword list of an Article.
type ProcessedArticle struct {
	ID               int64      `db:"id"`
	ArticleID        int64      `db:"article_id"`
	ProcessedTitle   string     `db:"processed_title"`
	ProcessedContent string     `db:"processed_content"`
	Keywords         string     `db:"keywords"` // "(term,score),(term,score)"
	ArticleCreatedAt *time.Time `db:"article_created_at"`
	ProcessedAt      time.Time  `db:"processed_at"`
}

// Record is the uniform corpus entry produced by the loader.
type Record struct {
	ID          int64
	Title       string
	Content     string
	Section     string
	Newspaper   string
	Keywords    []Keyword
	PublishedAt *time.Time
}

// Text returns the text fitted on and embedded for the record. The title is
// kept in the payload only.
func (r *Record) Text() string {
	return r.Content
}

// DateString formats the publication day, or nil when unknown.
func (r *Record) DateString() *string {
	if r.PublishedAt == nil {
		return nil
	}
	s := r.PublishedAt.Format(DateLayout)
	return &s
}
