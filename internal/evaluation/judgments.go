package evaluation

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/argnews/newsrag/internal/keywords"
	"github.com/argnews/newsrag/pkg/types"
)

// DefaultKeywordThreshold is the keyword score an article keyword needs to
// count towards relevance.
const DefaultKeywordThreshold = 0.5

// JudgmentOptions tunes judgment generation.
type JudgmentOptions struct {
	KeywordThreshold float64
	MinTermLength    int // prompt terms shorter than this are ignored; 0 keeps all
}

// Judgment is the relevant set for one query.
type Judgment struct {
	Relevant []int64  `json:"relevant"` // original article ids, ascending
	Keywords []string `json:"keywords"` // ascending
}

// RelevantSet returns the relevant ids as a set.
func (j Judgment) RelevantSet() IDSet {
	return NewIDSet(j.Relevant...)
}

// KeywordSet returns the relevant keywords as a set.
func (j Judgment) KeywordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(j.Keywords))
	for _, kw := range j.Keywords {
		set[kw] = struct{}{}
	}
	return set
}

// QueryKey identifies a query in a judgment map. Queries differing only in
// their filters get distinct keys.
func QueryKey(q types.SearchQuery) string {
	var b strings.Builder
	if p := strings.TrimSpace(q.Prompt); p != "" {
		b.WriteString(p)
	} else {
		kws := append([]string(nil), q.Keywords...)
		sort.Strings(kws)
		b.WriteString("kw:")
		b.WriteString(strings.Join(kws, ","))
	}
	if q.Section != "" {
		b.WriteString("|section:")
		b.WriteString(q.Section)
	}
	if q.Date != "" {
		b.WriteString("|date:")
		b.WriteString(q.Date)
	}
	return b.String()
}

type judgedRecord struct {
	rec   *types.Record
	text  string
	date  string
	terms map[string]struct{}
}

// GenerateJudgments derives relevance judgments for queries from the corpus.
// An article is relevant when a prompt term occurs in its title or content,
// or when one of its keywords scoring at least the threshold is a query
// keyword, and it also passes the query's section and date filters. The
// judged keywords are the union of the relevant articles' keywords above the
// threshold.
func GenerateJudgments(records []types.Record, queries []types.SearchQuery, opts JudgmentOptions) map[string]Judgment {
	judged := make([]judgedRecord, len(records))
	for i := range records {
		rec := &records[i]
		jr := judgedRecord{
			rec:   rec,
			text:  strings.ToLower(rec.Title + " " + rec.Content),
			terms: keywords.Terms(rec.Keywords, opts.KeywordThreshold),
		}
		if d := rec.DateString(); d != nil {
			jr.date = *d
		}
		judged[i] = jr
	}

	out := make(map[string]Judgment, len(queries))
	for _, q := range queries {
		out[QueryKey(q)] = judge(judged, q, opts)
	}
	return out
}

func judge(records []judgedRecord, q types.SearchQuery, opts JudgmentOptions) Judgment {
	var promptTerms []string
	for _, term := range strings.Fields(strings.ToLower(q.Prompt)) {
		if utf8.RuneCountInString(term) >= opts.MinTermLength {
			promptTerms = append(promptTerms, term)
		}
	}
	queryKeywords := make(map[string]struct{}, len(q.Keywords))
	for _, kw := range q.Keywords {
		queryKeywords[kw] = struct{}{}
	}

	j := Judgment{Relevant: []int64{}, Keywords: []string{}}
	kwUnion := make(map[string]struct{})
	seen := make(IDSet)

	for _, r := range records {
		if !mentions(r.text, promptTerms) && !intersects(r.terms, queryKeywords) {
			continue
		}
		if q.Section != "" && r.rec.Section != q.Section {
			continue
		}
		// records without a date never pass a date filter
		if q.Date != "" && r.date != q.Date {
			continue
		}
		if !seen.Has(r.rec.ID) {
			seen[r.rec.ID] = struct{}{}
			j.Relevant = append(j.Relevant, r.rec.ID)
		}
		for term := range r.terms {
			kwUnion[term] = struct{}{}
		}
	}

	sort.Slice(j.Relevant, func(a, b int) bool { return j.Relevant[a] < j.Relevant[b] })
	for term := range kwUnion {
		j.Keywords = append(j.Keywords, term)
	}
	sort.Strings(j.Keywords)
	return j
}

func mentions(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func intersects(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
