package collect

import (
	"github.com/shopspring/decimal"

	"autolav/internal/backend"
)

// Summary is derived from a result sequence and never stored; callers
// recompute it after every delivery so it cannot drift from the data.
type Summary struct {
	Units      int
	Succeeded  int
	Failed     int
	GrandTotal decimal.Decimal
}

// Summarize folds a result sequence into its Summary. Errored entries
// still contribute their stored total, which the backend sets to zero
// unless it captured a partial value before failing.
func Summarize(results []backend.UnitResult) Summary {
	s := Summary{Units: len(results), GrandTotal: decimal.Zero}
	for _, r := range results {
		if r.Failed() {
			s.Failed++
		} else {
			s.Succeeded++
		}
		s.GrandTotal = s.GrandTotal.Add(r.Total)
	}
	return s
}
