package vectorstore

import (
	"strings"
)

// Payload keys
const (
	KeyOriginalID    = "original_id"
	KeyTitle         = "title"
	KeySection       = "section"
	KeyPublishedAt   = "published_at"
	KeyNewspaper     = "newspaper"
	KeyKeywords      = "keywords"
	KeyKeywordScores = "keyword_scores"
)

// ConditionKind selects how a condition compares its field.
type ConditionKind int

const (
	// MatchValue requires the field (or one element of it) to equal Value
	MatchValue ConditionKind = iota
	// MatchAny requires the field (or one element of it) to be in Any
	MatchAny
	// Range requires the field (or one element of it) to be >= GTE
	Range
)

func (k ConditionKind) String() string {
	switch k {
	case MatchValue:
		return "match_value"
	case MatchAny:
		return "match_any"
	case Range:
		return "range"
	default:
		return "unknown"
	}
}

// Condition is one predicate on a payload field.
type Condition struct {
	Key   string
	Kind  ConditionKind
	Value string
	Any   []string
	GTE   float64
}

// Filter is a conjunction of conditions.
type Filter struct {
	Must []Condition
}

// Empty reports whether the filter has no conditions.
func (f *Filter) Empty() bool {
	return f == nil || len(f.Must) == 0
}

// FilterSpec lists the optional filter dimensions of a query.
type FilterSpec struct {
	Date            string
	Section         string
	Keywords        []string
	MinKeywordScore float64
	MatchAnyKeyword bool
}

// BuildFilter builds the conjunctive filter for spec. It returns nil when no
// dimension is set.
func BuildFilter(spec FilterSpec) *Filter {
	var must []Condition

	if date := strings.TrimSpace(spec.Date); date != "" {
		must = append(must, Condition{Key: KeyPublishedAt, Kind: MatchValue, Value: date})
	}
	if section := strings.TrimSpace(spec.Section); section != "" {
		must = append(must, Condition{Key: KeySection, Kind: MatchValue, Value: section})
	}

	kws := make([]string, 0, len(spec.Keywords))
	for _, kw := range spec.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	if len(kws) > 0 {
		if spec.MatchAnyKeyword {
			must = append(must, Condition{Key: KeyKeywords, Kind: MatchAny, Any: kws})
		} else {
			for _, kw := range kws {
				must = append(must, Condition{Key: KeyKeywords, Kind: MatchValue, Value: kw})
			}
		}
		// Applies to the whole score list, not to the matched keyword
		if spec.MinKeywordScore > 0 {
			must = append(must, Condition{Key: KeyKeywordScores, Kind: Range, GTE: spec.MinKeywordScore})
		}
	}

	if len(must) == 0 {
		return nil
	}
	return &Filter{Must: must}
}
