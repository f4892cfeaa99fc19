package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown. Identical reports render to
// identical bytes.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Training Report\n\nGenerated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Generation: `%s` | Trained: %s\n\n", r.Generation, r.TrainedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Seed: %d | Folds: %d | Scaler fit: %s\n\n", r.Seed, r.Folds, r.ScalerFit)

	ds := r.DataSummary
	section(&sb, "Data Summary")
	table(&sb, []string{"Metric", "Value"}, [][]string{
		{"Total Games", strconv.Itoa(ds.TotalGames)},
		{"Scored Games", strconv.Itoa(ds.ScoredGames)},
		{"Teams", strconv.Itoa(ds.Teams)},
		{"Feature Rows", strconv.Itoa(ds.FeatureRows)},
		{"Date Range Start", formatDate(ds.DateRangeStart)},
		{"Date Range End", formatDate(ds.DateRangeEnd)},
	})

	section(&sb, "Data Quality")
	writeQuality(&sb, r.DataQuality)

	section(&sb, "Chronological Split")
	table(&sb, []string{"Partition", "Rows", "Start", "End"}, [][]string{
		{"train", strconv.Itoa(r.Split.TrainRows), formatDate(r.Split.TrainStart), formatDate(r.Split.TrainEnd)},
		{"test", strconv.Itoa(r.Split.TestRows), formatDate(r.Split.TestStart), formatDate(r.Split.TestEnd)},
	})

	section(&sb, "Held-out Metrics")
	if len(r.Metrics) == 0 {
		sb.WriteString("No metrics available.\n\n")
	} else {
		rows := make([][]string, len(r.Metrics))
		for i, m := range r.Metrics {
			rows[i] = []string{m.Name, strconv.FormatFloat(m.Value, 'f', 4, 64)}
		}
		table(&sb, []string{"Metric", "Value"}, rows)
	}

	section(&sb, "Predictions")
	if len(r.Predictions) == 0 {
		sb.WriteString("No predictions available.\n\n")
	} else {
		rows := make([][]string, len(r.Predictions))
		for i, p := range r.Predictions {
			rows[i] = []string{
				p.HomeTeam, p.AwayTeam, p.PredictedWinner,
				strconv.FormatFloat(p.HomeWinProbability, 'f', 2, 64),
				strconv.FormatFloat(p.Confidence, 'f', 1, 64),
			}
		}
		table(&sb, []string{"Home", "Away", "Winner", "Home Win %", "Confidence"}, rows)
	}

	return sb.String()
}

func writeQuality(sb *strings.Builder, q DataQualitySection) {
	if len(q.SufficiencyChecks) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
		return
	}

	rows := make([][]string, len(q.SufficiencyChecks))
	for i, c := range q.SufficiencyChecks {
		verdict := "FAIL"
		if c.Pass {
			verdict = "PASS"
		}
		rows[i] = []string{c.Name, c.Threshold, c.Actual, verdict}
	}
	table(sb, []string{"Check", "Threshold", "Actual", "Status"}, rows)

	if q.AllChecksPassed {
		sb.WriteString("**All checks passed.**\n\n")
	} else {
		sb.WriteString("**Some checks failed.** Metrics below are not reliable.\n\n")
	}
}

func section(sb *strings.Builder, title string) {
	sb.WriteString("## " + title + "\n\n")
}

// table writes a pipe table followed by a blank line.
func table(sb *strings.Builder, header []string, rows [][]string) {
	row := func(cells []string) {
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	row(header)
	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len(h))
	}
	row(rule)
	for _, r := range rows {
		row(r)
	}
	sb.WriteString("\n")
}
