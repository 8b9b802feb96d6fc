package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/indexer"
)

type indexFlags struct {
	embedderType    string
	all             bool
	useProcessed    bool
	batchSize       int
	minKeywordScore float64
	minWords        int
	maxWords        int
	limit           int
}

func newIndexCmd(root *rootFlags) *cobra.Command {
	f := &indexFlags{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the article corpus and rebuild a strategy's collection",
		Long: `Loads the articles that pass the word-count filters, fits the embedder
when the strategy is lexical, drops and recreates the news_<strategy>
collection and uploads one point per article in batches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(a *app) error {
				strategies, err := selectStrategies(f.embedderType, f.all)
				if err != nil {
					return err
				}

				opts := indexer.Options{
					UseProcessed:    a.cfg.Index.UseProcessed,
					BatchSize:       a.cfg.Index.BatchSize,
					MinKeywordScore: a.cfg.Index.MinKeywordScore,
					MinWords:        a.cfg.Index.MinWords,
					MaxWords:        a.cfg.Index.MaxWords,
					Limit:           f.limit,
				}
				flags := cmd.Flags()
				if flags.Changed("use-processed") {
					opts.UseProcessed = f.useProcessed
				}
				if flags.Changed("batch-size") {
					opts.BatchSize = f.batchSize
				}
				if flags.Changed("min-keyword-score") {
					opts.MinKeywordScore = f.minKeywordScore
				}
				if flags.Changed("min-words") {
					opts.MinWords = f.minWords
				}
				if flags.Changed("max-words") {
					opts.MaxWords = f.maxWords
				}

				ctx := cmd.Context()
				db, err := a.corpusDB(ctx)
				if err != nil {
					return err
				}
				store, err := a.vectorStore(ctx)
				if err != nil {
					return err
				}

				idx := indexer.New(corpus.NewLoader(db), store, indexer.NewFactory(a.cfg.EmbedderBase()), indexer.Config{
					Concurrency: a.cfg.Embedder.Concurrency,
					Logger:      a.log.Named("indexer"),
				})

				for _, s := range strategies {
					opts.Strategy = s
					stats, err := idx.Run(ctx, opts)
					if err != nil {
						return fmt.Errorf("index %s: %w", s, err)
					}
					printStatistics(cmd.OutOrStdout(), stats)
				}
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.embedderType, "embedder-type", string(embedder.StrategyMiniLM), "embedding strategy: tfidf, bm25, dpr, sbert or minilm")
	fl.BoolVar(&f.all, "all", false, "index every strategy")
	fl.BoolVar(&f.useProcessed, "use-processed", false, "embed preprocessed text instead of raw articles")
	fl.IntVar(&f.batchSize, "batch-size", indexer.DefaultBatchSize, "points per upsert batch")
	fl.Float64Var(&f.minKeywordScore, "min-keyword-score", 0, "drop stored keywords scoring below this")
	fl.IntVar(&f.minWords, "min-words", corpus.DefaultMinWords, "skip articles shorter than this")
	fl.IntVar(&f.maxWords, "max-words", corpus.DefaultMaxWords, "skip articles longer than this (0 = no limit)")
	fl.IntVar(&f.limit, "limit", 0, "index at most this many articles (0 = all)")
	return cmd
}

func selectStrategies(name string, all bool) ([]embedder.Strategy, error) {
	if all {
		return embedder.Strategies(), nil
	}
	s, err := embedder.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	return []embedder.Strategy{s}, nil
}

func printStatistics(w io.Writer, s *indexer.Statistics) {
	fmt.Fprintf(w, "Indexed %s into %s (dimension %d)\n", s.Strategy, s.Collection, s.Dimension)
	fmt.Fprintf(w, "  articles: %d loaded of %d scanned (%d empty, %d too short, %d too long)\n",
		s.RecordsLoaded, s.RecordsScanned, s.SkippedEmpty, s.SkippedShort, s.SkippedLong)
	fmt.Fprintf(w, "  points:   %d in %d batches\n", s.PointsIndexed, s.Batches)
	fmt.Fprintf(w, "  keywords: %d articles with keywords, %d unique, %.1f per article\n",
		s.RecordsWithKeywords, s.UniqueKeywords, s.AvgKeywords)
	if s.RecordsWithKeywords > 0 {
		fmt.Fprintf(w, "  scores:   min %.3f, max %.3f, mean %.3f\n",
			s.MinKeywordScore, s.MaxKeywordScore, s.AvgKeywordScore)
	}
	fmt.Fprintf(w, "  took:     %s\n", s.Duration.Round(time.Millisecond))
}
