package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ReportFileName returns the file name a report is written under.
func ReportFileName(r *Report) string {
	return fmt.Sprintf("evaluation_%s_%s.json", r.EmbedderType, r.Timestamp.UTC().Format("20060102_150405"))
}

// WriteReport writes r as indented JSON into dir and returns the file path.
func WriteReport(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	path := filepath.Join(dir, ReportFileName(r))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}

func comparisonHeader(k int) []string {
	return []string{
		"Embedder",
		fmt.Sprintf("Precision@%d", k),
		fmt.Sprintf("Recall@%d", k),
		"NDCG",
		"Keyword Precision",
		"Keyword Recall",
		"Keyword F1",
		"Queries/Second",
	}
}

func comparisonRow(r *Report) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	m := r.Metrics
	return []string{
		string(r.EmbedderType),
		f(m.PrecisionAtK),
		f(m.RecallAtK),
		f(m.NDCG),
		f(m.KeywordPrecision),
		f(m.KeywordRecall),
		f(m.KeywordF1),
		strconv.FormatFloat(m.QueriesPerSecond, 'f', 2, 64),
	}
}

func reportsK(reports []*Report) int {
	if len(reports) > 0 {
		return reports[0].K
	}
	return DefaultK
}

// ComparisonTable renders the reports' metrics as an aligned text table,
// one row per strategy.
func ComparisonTable(reports []*Report) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(comparisonHeader(reportsK(reports)), "\t"))
	for _, r := range reports {
		fmt.Fprintln(tw, strings.Join(comparisonRow(r), "\t"))
	}
	_ = tw.Flush()
	return b.String()
}

// WriteComparisonCSV writes the comparison table as CSV.
func WriteComparisonCSV(path string, reports []*Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create comparison file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(comparisonHeader(reportsK(reports))); err != nil {
		return err
	}
	for _, r := range reports {
		if err := w.Write(comparisonRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
