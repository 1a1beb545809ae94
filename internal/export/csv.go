// Package export flattens collection results into the spreadsheet
// deliverable: a UTF-8 CSV with a BOM so desktop tools detect the
// encoding, one row per unit per day.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"autolav/internal/backend"
	"autolav/internal/collect"
)

// header matches the original report layout: Unidade, Data, Kg,
// Total Unidade, Erro.
var header = []string{"Unit", "Date", "Kg", "Unit Total", "Error"}

// utf8BOM makes Excel and friends open the file as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Render produces the full CSV byte stream for a result sequence.
// Per unit: one row per daily record, or exactly one row with empty
// date/kg when the unit has no rows (failed or empty units still
// appear, carrying their total and error text). Quoting is RFC 4180,
// so embedded delimiters, quotes, and newlines survive a round trip.
func Render(results []backend.UnitResult) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range results {
		total := r.Total.StringFixed(2)
		if len(r.Rows) == 0 {
			if err := w.Write([]string{r.UnitID, "", "", total, r.Error}); err != nil {
				return nil, fmt.Errorf("failed to write row for unit %s: %w", r.UnitID, err)
			}
			continue
		}
		for _, row := range r.Rows {
			record := []string{r.UnitID, row.Date, row.Kg.StringFixed(2), total, r.Error}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write row for unit %s: %w", r.UnitID, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds the deterministic export name: fixed prefix, the
// run's date range, and a generation timestamp so repeated exports of
// the same range never collide.
func Filename(dateRange collect.DateRange, now time.Time) string {
	return fmt.Sprintf("autolav_%s_%s_%s.csv",
		dateRange.Start, dateRange.End, now.Format("20060102_150405"))
}
