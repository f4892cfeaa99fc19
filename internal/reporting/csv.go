package reporting

import (
	"fmt"
	"strings"
)

// RenderMetricsCSV renders the generation's evaluation as a single-row CSV string.
func RenderMetricsCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("generation,trained_at,seed,folds,scaler_fit,train_rows,test_rows")
	for _, m := range r.Metrics {
		sb.WriteString("," + m.Name)
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%s,%d,%d",
		r.Generation,
		r.TrainedAt.Format("2006-01-02T15:04:05Z07:00"),
		r.Seed,
		r.Folds,
		r.ScalerFit,
		r.Split.TrainRows,
		r.Split.TestRows,
	))
	for _, m := range r.Metrics {
		sb.WriteString(fmt.Sprintf(",%.6f", m.Value))
	}
	sb.WriteString("\n")

	return sb.String()
}
