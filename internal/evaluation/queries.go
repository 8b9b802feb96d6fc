package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/argnews/newsrag/pkg/types"
)

// DefaultMinKeywordScore is the average score a topic keyword needs to stay
// in a generated query.
const DefaultMinKeywordScore = 0.1

// Topic is a seed for generated queries.
type Topic struct {
	Topic    string
	Keywords []string
}

// Sections with built-in topics, in generation order.
var Sections = []string{"Economía", "Internacional", "Política", "Sociedad"}

// SectionTopics are the per-section seeds.
var SectionTopics = map[string][]Topic{
	"Economía": {
		{"apreciación del peso", []string{"peso", "dólar", "tipo de cambio", "mercado cambiario"}},
		{"dólar MEP", []string{"dólar", "mep", "bolsa", "bonos"}},
		{"pesquera china", []string{"pesca", "china", "mar", "buques"}},
		{"pymes caputo", []string{"pymes", "caputo", "empresas", "impuestos"}},
		{"transferencia de emisiones", []string{"emisiones", "carbono", "clima", "ambiente"}},
	},
	"Internacional": {
		{"cambio climático", []string{"clima", "calentamiento", "emisiones", "ambiente"}},
		{"reloj de oro del titanic", []string{"titanic", "reloj", "subasta", "naufragio"}},
		{"seguridad social en estados unidos", []string{"seguridad social", "eeuu", "pensiones", "jubilación"}},
		{"g20 brasil", []string{"g20", "brasil", "cumbre", "lula"}},
		{"donald trump", []string{"trump", "elecciones", "eeuu", "republicano"}},
	},
	"Política": {
		{"congreso nacional", []string{"congreso", "diputados", "senadores", "leyes"}},
		{"Emanuel Macron", []string{"macron", "francia", "europa", "presidente"}},
		{"kirchnerismo", []string{"kirchner", "peronismo", "política", "justicia"}},
		{"Estados Unidos", []string{"eeuu", "biden", "washington", "política"}},
		{"Cristina Kirchner", []string{"cristina", "kirchner", "senado", "justicialismo"}},
	},
	"Sociedad": {
		{"Lionsgate", []string{"lionsgate", "cine", "película", "entertainment"}},
		{"Efemérides", []string{"efemérides", "historia", "aniversario", "conmemoración"}},
		{"hormigas voladoras", []string{"hormigas", "insectos", "naturaleza", "clima"}},
		{"clima", []string{"temperatura", "lluvia", "pronóstico", "meteorología"}},
		{"Andrea Giunta", []string{"arte", "cultura", "exposición", "museo"}},
	},
}

// CrossSectionTopics are seeds for queries without a section filter.
var CrossSectionTopics = []Topic{
	{"crisis económica", []string{"crisis", "economía", "inflación", "recesión"}},
	{"presupuesto nacional", []string{"presupuesto", "gasto", "congreso", "fiscal"}},
	{"políticas públicas", []string{"política", "estado", "gestión", "gobierno"}},
	{"impacto social", []string{"social", "sociedad", "impacto", "comunidad"}},
}

// Variations returns the prompt phrasings generated for a topic.
func Variations(topic string) []string {
	return []string{
		"noticias sobre " + topic,
		"información de " + topic,
		"últimas noticias de " + topic,
		"actualidad sobre " + topic,
		topic,
	}
}

// GenerateOptions controls DefaultQueries.
type GenerateOptions struct {
	Dates               []string // assigned round-robin to prompt queries
	Sections            []string // default: Sections
	IncludeCrossSection bool
	MinKeywordScore     float64

	// KeywordAverages, when set, drops topic keywords whose corpus average
	// is missing or below MinKeywordScore.
	KeywordAverages map[string]float64
}

// DefaultQueries builds the test set from the built-in topics. Every prompt
// variation becomes a query carrying the topic keywords, the topic section
// and the next date; every topic also yields one keyword-only query.
func DefaultQueries(opts GenerateOptions) []types.SearchQuery {
	sections := opts.Sections
	if len(sections) == 0 {
		sections = Sections
	}

	var (
		queries []types.SearchQuery
		next    int
	)
	date := func() string {
		if len(opts.Dates) == 0 {
			return ""
		}
		d := opts.Dates[next%len(opts.Dates)]
		next++
		return d
	}

	add := func(section string, topic Topic) {
		kws := filterTopicKeywords(topic.Keywords, opts)
		for _, prompt := range Variations(topic.Topic) {
			queries = append(queries, types.SearchQuery{
				Prompt:          prompt,
				Keywords:        kws,
				Section:         section,
				Date:            date(),
				MinKeywordScore: opts.MinKeywordScore,
			})
		}
		if len(kws) > 0 {
			queries = append(queries, types.SearchQuery{
				Keywords:        kws,
				Section:         section,
				MinKeywordScore: opts.MinKeywordScore,
			})
		}
	}

	for _, section := range sections {
		for _, topic := range SectionTopics[section] {
			add(section, topic)
		}
	}
	if opts.IncludeCrossSection {
		for _, topic := range CrossSectionTopics {
			add("", topic)
		}
	}
	return queries
}

func filterTopicKeywords(kws []string, opts GenerateOptions) []string {
	if opts.KeywordAverages == nil {
		return append([]string(nil), kws...)
	}
	var out []string
	for _, kw := range kws {
		if avg, ok := opts.KeywordAverages[strings.ToLower(kw)]; ok && avg >= opts.MinKeywordScore {
			out = append(out, kw)
		}
	}
	return out
}

// AverageKeywordScores returns the mean score of every keyword (lowercased)
// that occurs at least minArticles times in the corpus.
func AverageKeywordScores(records []types.Record, minArticles int) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range records {
		for _, kw := range records[i].Keywords {
			term := strings.ToLower(kw.Term)
			sums[term] += kw.Score
			counts[term]++
		}
	}

	out := make(map[string]float64, len(sums))
	for term, n := range counts {
		if n >= minArticles {
			out[term] = sums[term] / float64(n)
		}
	}
	return out
}

// LoadQueries reads a JSON test set.
func LoadQueries(path string) ([]types.SearchQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	var queries []types.SearchQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse queries %s: %w", path, err)
	}
	for i := range queries {
		queries[i].Normalize()
		if err := queries[i].Validate(); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
	}
	return queries, nil
}

// SaveQueries writes a JSON test set, creating parent directories.
func SaveQueries(path string, queries []types.SearchQuery) error {
	data, err := json.MarshalIndent(queries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queries: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write queries: %w", err)
	}
	return nil
}

// Summary describes the composition of a test set.
type Summary struct {
	Total          int            `json:"total_queries"`
	BySection      map[string]int `json:"by_section"`
	SemanticOnly   int            `json:"semantic_only"`
	KeywordOnly    int            `json:"keyword_only"`
	Combined       int            `json:"combined"`
	WithDate       int            `json:"with_date"`
	WithSection    int            `json:"with_section"`
	DateAndSection int            `json:"date_and_section"`
	DateOnly       int            `json:"date_only"`
	SectionOnly    int            `json:"section_only"`
	NoFilters      int            `json:"no_filters"`
}

// QueryCategories counts queries by component and filter.
func QueryCategories(queries []types.SearchQuery) Summary {
	s := Summary{Total: len(queries), BySection: make(map[string]int)}
	for _, q := range queries {
		hasPrompt := strings.TrimSpace(q.Prompt) != ""
		hasKeywords := q.HasKeywords()
		switch {
		case hasPrompt && hasKeywords:
			s.Combined++
		case hasPrompt:
			s.SemanticOnly++
		case hasKeywords:
			s.KeywordOnly++
		}

		hasDate, hasSection := q.Date != "", q.Section != ""
		if hasDate {
			s.WithDate++
		}
		if hasSection {
			s.WithSection++
			s.BySection[q.Section]++
		}
		switch {
		case hasDate && hasSection:
			s.DateAndSection++
		case hasDate:
			s.DateOnly++
		case hasSection:
			s.SectionOnly++
		default:
			s.NoFilters++
		}
	}
	return s
}
