package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/pkg/types"
)

type searchFlags struct {
	prompt             string
	keywords           string
	date               string
	section            string
	minKeywordScore    float64
	matchAnyKeyword    bool
	limit              int
	embedder           string
	sortByKeywordScore bool
	asJSON             bool
}

func newSearchCmd(root *rootFlags) *cobra.Command {
	f := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search indexed articles by prompt, keywords, section and date",
		Example: `  newsrag search --prompt "inflación y tasas" --section Economía --limit 5
  newsrag search --keywords "dólar,bcra" --match-any-keyword --sort-by-keyword-score`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(a *app) error {
				ctx := cmd.Context()
				s, err := a.newSearcher(ctx, corpus.LoadOptions{}, nil)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()

				resp, err := s.Search(ctx, searcher.Request{
					Query: types.SearchQuery{
						Prompt:          f.prompt,
						Keywords:        types.ParseKeywordList(f.keywords),
						Section:         f.section,
						Date:            f.date,
						MinKeywordScore: f.minKeywordScore,
						MatchAnyKeyword: f.matchAnyKeyword,
						Limit:           f.limit,
					},
					Strategy:           embedder.Strategy(strings.ToLower(f.embedder)),
					SortByKeywordScore: f.sortByKeywordScore,
					NoCache:            true,
				})
				if err != nil {
					return err
				}

				if f.asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(resp)
				}
				printResults(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.prompt, "prompt", "", "natural language query")
	fl.StringVar(&f.keywords, "keywords", "", "comma-separated keywords")
	fl.StringVar(&f.date, "date", "", "publication day (YYYY-MM-DD)")
	fl.StringVar(&f.section, "section", "", "exact section name")
	fl.Float64Var(&f.minKeywordScore, "min-keyword-score", 0, "minimum keyword score")
	fl.BoolVar(&f.matchAnyKeyword, "match-any-keyword", false, "match any keyword instead of all")
	fl.IntVar(&f.limit, "limit", types.DefaultLimit, "maximum results")
	fl.StringVar(&f.embedder, "embedder", "", "embedding strategy (default from config)")
	fl.BoolVar(&f.sortByKeywordScore, "sort-by-keyword-score", false, "order results by their best matching keyword score")
	fl.BoolVar(&f.asJSON, "json", false, "print the response as JSON")
	return cmd
}

func printResults(w io.Writer, resp *searcher.Response) {
	fmt.Fprintf(w, "%d results from %s (%s)\n", len(resp.Results), resp.Collection, resp.Mode)
	for i, r := range resp.Results {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, r.Title)
		if r.Score != nil {
			fmt.Fprintf(w, "   score:     %.4f\n", *r.Score)
		}
		date := "unknown"
		if r.PublishedAt != nil {
			date = *r.PublishedAt
		}
		fmt.Fprintf(w, "   section:   %s | date: %s | newspaper: %s\n", r.Section, date, r.Newspaper)
		fmt.Fprintf(w, "   article:   %d (point %d)\n", r.OriginalID, r.ID)

		kws := r.Keywords
		label := "keywords:"
		if len(r.MatchingKeywords) > 0 {
			kws, label = r.MatchingKeywords, "matching:"
		}
		if len(kws) > 0 {
			parts := make([]string, 0, len(kws))
			for _, kw := range kws {
				parts = append(parts, fmt.Sprintf("%s (%.2f)", kw.Term, kw.Score))
			}
			fmt.Fprintf(w, "   %-10s %s\n", label, strings.Join(parts, ", "))
		}
	}
}
