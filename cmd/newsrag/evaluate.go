package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/evaluation"
	"github.com/argnews/newsrag/pkg/types"
)

// keyword averages need this many occurrences to count
const minKeywordArticles = 5

type evaluateFlags struct {
	queriesPath      string
	embedders        string
	k                int
	outputDir        string
	keywordThreshold float64
	minTermLength    int
	limitArticles    int
	minKeywordScore  float64
}

func newEvaluateCmd(root *rootFlags) *cobra.Command {
	f := &evaluateFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare embedding strategies on a test set",
		Long: `Runs a test set against each strategy's collection and reports
precision@k, recall@k, NDCG, keyword precision/recall/F1 and throughput.
Relevance judgments are generated from the corpus. Without --queries the
built-in topic test set is generated and saved next to the reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(a *app) error {
				return runEvaluate(cmd, a, f)
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.queriesPath, "queries", "", "JSON test set (default: generate one)")
	fl.StringVar(&f.embedders, "embedders", "tfidf,bm25,dpr,sbert,minilm", "comma-separated strategies to evaluate")
	fl.IntVar(&f.k, "k", 0, "cutoff for precision, recall and NDCG (default from config)")
	fl.StringVar(&f.outputDir, "output-dir", "", "directory for reports (default from config)")
	fl.Float64Var(&f.keywordThreshold, "keyword-threshold", -1, "keyword score needed to count towards relevance (default from config)")
	fl.IntVar(&f.minTermLength, "min-term-length", -1, "ignore prompt terms shorter than this when judging (default from config)")
	fl.IntVar(&f.limitArticles, "limit-articles", 0, "judge against at most this many articles (0 = all)")
	fl.Float64Var(&f.minKeywordScore, "min-keyword-score", evaluation.DefaultMinKeywordScore, "average score a topic keyword needs in generated queries")
	return cmd
}

func runEvaluate(cmd *cobra.Command, a *app, f *evaluateFlags) error {
	ctx := cmd.Context()
	ecfg := a.cfg.Evaluation
	if f.k > 0 {
		ecfg.K = f.k
	}
	if f.outputDir != "" {
		ecfg.OutputDir = f.outputDir
	}
	if f.keywordThreshold >= 0 {
		ecfg.KeywordThreshold = f.keywordThreshold
	}
	if f.minTermLength >= 0 {
		ecfg.MinTermLength = f.minTermLength
	}

	var strategies []embedder.Strategy
	for _, name := range types.ParseKeywordList(f.embedders) {
		s, err := embedder.ParseStrategy(name)
		if err != nil {
			return err
		}
		strategies = append(strategies, s)
	}
	if len(strategies) == 0 {
		return fmt.Errorf("no embedders selected")
	}

	opts := a.loadOptions()
	opts.Limit = f.limitArticles
	records, err := a.loadRecords(ctx, opts)
	if err != nil {
		return err
	}
	a.log.Info("loaded articles",
		zap.Int("count", len(records)),
		zap.String("embedders", joinStrategies(strategies)))

	var queries []types.SearchQuery
	if f.queriesPath != "" {
		if queries, err = evaluation.LoadQueries(f.queriesPath); err != nil {
			return err
		}
	} else {
		queries = evaluation.DefaultQueries(evaluation.GenerateOptions{
			Dates:               recentDates(records, 7),
			IncludeCrossSection: true,
			MinKeywordScore:     f.minKeywordScore,
			KeywordAverages:     evaluation.AverageKeywordScores(records, minKeywordArticles),
		})
		path := filepath.Join(ecfg.OutputDir, "test_queries.json")
		if err := evaluation.SaveQueries(path, queries); err != nil {
			return err
		}
		a.log.Info("generated test set", zap.String("path", path), zap.Int("queries", len(queries)))
	}
	if len(queries) == 0 {
		return fmt.Errorf("test set is empty")
	}

	summary := evaluation.QueryCategories(queries)
	a.log.Info("query distribution",
		zap.Int("semantic_only", summary.SemanticOnly),
		zap.Int("keyword_only", summary.KeywordOnly),
		zap.Int("combined", summary.Combined))

	judgments := evaluation.GenerateJudgments(records, queries, evaluation.JudgmentOptions{
		KeywordThreshold: ecfg.KeywordThreshold,
		MinTermLength:    ecfg.MinTermLength,
	})

	s, err := a.newSearcher(ctx, opts, records)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ev := evaluation.NewEvaluator(s, evaluation.Config{
		K:                ecfg.K,
		KeywordThreshold: ecfg.KeywordThreshold,
		Logger:           a.log.Named("evaluation"),
	})

	reports := make([]*evaluation.Report, 0, len(strategies))
	for _, strategy := range strategies {
		a.log.Info("evaluating", zap.String("strategy", string(strategy)))
		report, err := ev.Evaluate(ctx, strategy, queries, judgments)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", strategy, err)
		}
		path, err := evaluation.WriteReport(ecfg.OutputDir, report)
		if err != nil {
			return err
		}
		a.log.Info("report written", zap.String("path", path))
		reports = append(reports, report)
	}

	if err := evaluation.WriteComparisonCSV(filepath.Join(ecfg.OutputDir, "comparison.csv"), reports); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), evaluation.ComparisonTable(reports))
	return nil
}

// recentDates returns up to n most recent distinct publication days.
func recentDates(records []types.Record, n int) []string {
	seen := make(map[string]struct{})
	var dates []string
	for i := range records {
		d := records[i].DateString()
		if d == nil {
			continue
		}
		if _, ok := seen[*d]; ok {
			continue
		}
		seen[*d] = struct{}{}
		dates = append(dates, *d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > n {
		dates = dates[:n]
	}
	return dates
}

func joinStrategies(ss []embedder.Strategy) string {
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
