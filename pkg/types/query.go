package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// SearchQuery is a hybrid query. Every component is optional but at least
// one of Prompt and Keywords must be set.
type SearchQuery struct {
	Prompt          string   `json:"prompt,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Section         string   `json:"section,omitempty"`
	Date            string   `json:"date,omitempty"` // exact day, YYYY-MM-DD
	MinKeywordScore float64  `json:"min_keyword_score,omitempty"`
	MatchAnyKeyword bool     `json:"match_any_keyword,omitempty"`
	Limit           int      `json:"limit,omitempty"`
}

// Normalize trims whitespace, drops empty keywords and applies the default limit.
func (q *SearchQuery) Normalize() {
	q.Prompt = strings.TrimSpace(q.Prompt)
	q.Section = strings.TrimSpace(q.Section)
	q.Date = strings.TrimSpace(q.Date)

	kws := make([]string, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	q.Keywords = kws

	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
}

// Validate checks the query invariants.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" && !q.HasKeywords() {
		return ErrEmptyQuery
	}
	if q.Date != "" {
		if _, err := time.Parse(DateLayout, q.Date); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, q.Date)
		}
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidLimit, q.Limit, MaxLimit)
	}
	return nil
}

// HasKeywords reports whether the query carries at least one non-blank keyword.
func (q *SearchQuery) HasKeywords() bool {
	for _, kw := range q.Keywords {
		if strings.TrimSpace(kw) != "" {
			return true
		}
	}
	return false
}

// ParseKeywordList splits a comma-separated keyword argument.
func ParseKeywordList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
