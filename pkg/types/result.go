package types

// Payload is the metadata stored next to each vector.
type Payload struct {
	OriginalID  int64     `json:"original_id"`
	Title       string    `json:"title"`
	Section     string    `json:"section"`
	Keywords    []Keyword `json:"keywords"`
	PublishedAt *string   `json:"published_at"` // YYYY-MM-DD or null
	Newspaper   string    `json:"newspaper"`
}

// PayloadFromRecord builds the payload stored for a corpus record.
func PayloadFromRecord(r *Record) Payload {
	kws := make([]Keyword, len(r.Keywords))
	copy(kws, r.Keywords)
	return Payload{
		OriginalID:  r.ID,
		Title:       r.Title,
		Section:     r.Section,
		Keywords:    kws,
		PublishedAt: r.DateString(),
		Newspaper:   r.Newspaper,
	}
}

// SearchResult is one hit returned by the query engine.
type SearchResult struct {
	ID          int64     `json:"id"`
	Score       *float64  `json:"score,omitempty"` // nil for keyword-only results
	OriginalID  int64     `json:"original_id"`
	Title       string    `json:"title"`
	Section     string    `json:"section"`
	Keywords    []Keyword `json:"keywords"`
	PublishedAt *string   `json:"published_at"`
	Newspaper   string    `json:"newspaper"`

	// Set only when results are sorted by keyword score.
	MatchingKeywords []Keyword `json:"matching_keywords,omitempty"`
}

// NewSearchResult builds a result from a stored point.
func NewSearchResult(id int64, score *float64, p Payload) SearchResult {
	return SearchResult{
		ID:          id,
		Score:       score,
		OriginalID:  p.OriginalID,
		Title:       p.Title,
		Section:     p.Section,
		Keywords:    p.Keywords,
		PublishedAt: p.PublishedAt,
		Newspaper:   p.Newspaper,
	}
}
