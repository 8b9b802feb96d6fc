package keywords

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/argnews/newsrag/pkg/types"
)

// ErrMisaligned is returned when parallel term and score slices differ in length.
var ErrMisaligned = errors.New("keyword terms and scores are misaligned")

var pairPattern = regexp.MustCompile(`\(([^,()]+),\s*([-+0-9.eE]+)\)`)

var termReplacer = strings.NewReplacer(",", " ", "(", " ", ")", " ")

// NormalizeTerm makes term encodable: the delimiters , ( ) become spaces and
// surrounding whitespace is trimmed.
func NormalizeTerm(term string) string {
	return strings.TrimSpace(termReplacer.Replace(term))
}

// Encode renders the list as "(term,score)" entries joined by commas. Terms
// are normalized with NormalizeTerm; entries left with an empty term or a
// non-finite score are dropped, so Decode(Encode(list)) returns exactly the
// encoded entries.
func Encode(list []types.Keyword) string {
	var b strings.Builder
	n := 0
	for _, kw := range list {
		term := NormalizeTerm(kw.Term)
		if term == "" || math.IsNaN(kw.Score) || math.IsInf(kw.Score, 0) {
			continue
		}
		if n > 0 {
			b.WriteByte(',')
		}
		n++
		b.WriteByte('(')
		b.WriteString(term)
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(kw.Score, 'f', -1, 64))
		b.WriteByte(')')
	}
	return b.String()
}

// Decode parses an encoded list. Groups whose score does not parse are skipped.
func Decode(s string) []types.Keyword {
	out := []types.Keyword{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	for _, m := range pairPattern.FindAllStringSubmatch(s, -1) {
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, types.Keyword{Term: strings.TrimSpace(m[1]), Score: score})
	}
	return out
}

// Merge sums the scores of duplicate terms, keeping first-seen order.
func Merge(list []types.Keyword) []types.Keyword {
	index := make(map[string]int, len(list))
	out := make([]types.Keyword, 0, len(list))
	for _, kw := range list {
		term := NormalizeTerm(kw.Term)
		if term == "" {
			continue
		}
		if i, ok := index[term]; ok {
			out[i].Score += kw.Score
			continue
		}
		index[term] = len(out)
		out = append(out, types.Keyword{Term: term, Score: kw.Score})
	}
	return out
}

// FilterMin keeps the entries whose score is at least min.
func FilterMin(list []types.Keyword, min float64) []types.Keyword {
	out := make([]types.Keyword, 0, len(list))
	for _, kw := range list {
		if kw.Score >= min {
			out = append(out, kw)
		}
	}
	return out
}

// SortByScore orders the list by descending score. Equal scores keep their order.
func SortByScore(list []types.Keyword) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
}

// Split returns the terms and scores as two index-aligned slices.
func Split(list []types.Keyword) ([]string, []float64) {
	terms := make([]string, len(list))
	scores := make([]float64, len(list))
	for i, kw := range list {
		terms[i] = kw.Term
		scores[i] = kw.Score
	}
	return terms, scores
}

// Zip pairs parallel term and score slices back into a keyword list.
func Zip(terms []string, scores []float64) ([]types.Keyword, error) {
	if len(terms) != len(scores) {
		return nil, fmt.Errorf("%w: %d terms, %d scores", ErrMisaligned, len(terms), len(scores))
	}
	out := make([]types.Keyword, len(terms))
	for i := range terms {
		out[i] = types.Keyword{Term: terms[i], Score: scores[i]}
	}
	return out, nil
}

// Terms returns the set of terms whose score is at least min.
func Terms(list []types.Keyword, min float64) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, kw := range list {
		if kw.Score >= min {
			set[kw.Term] = struct{}{}
		}
	}
	return set
}
