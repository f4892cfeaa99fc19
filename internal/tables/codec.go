// Package tables reads and writes the pipeline's CSV tables: the raw game
// table, the feature table, the prediction table and upcoming matchups.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"matchup-forecast/internal/domain"
)

// DateLayout is the date format written to every table.
const DateLayout = "2006-01-02"

// Accepted input date layouts, tried in order.
var dateLayouts = []string{
	DateLayout,
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseDate parses a date cell in any accepted layout, as UTC.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseScore returns nil for blank, non-numeric or non-finite cells.
func parseScore(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "1.0":
		return true, nil
	case "0", "false", "0.0":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// table is a header-indexed CSV reader.
type table struct {
	r     *csv.Reader
	index map[string]int
	line  int
}

func openTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidInput, name)
		}
	}
	return &table{r: cr, index: index, line: 1}, nil
}

// next returns the next record, or io.EOF.
func (t *table) next() (map[string]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("line %d: %w", t.line+1, err)
	}
	t.line++
	out := make(map[string]string, len(t.index))
	for name, i := range t.index {
		if i < len(rec) {
			out[name] = rec[i]
		}
	}
	return out, nil
}

func (t *table) fail(err error) error {
	return fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, t.line, err)
}

func writeAll(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}
