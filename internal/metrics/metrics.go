// Package metrics derives IV Rank and IV Percentile for a current
// implied-volatility reading against a historical window.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics holds the two derived readings. A nil field means the statistic
// is unavailable, which is distinct from zero: rank is nil when the
// history is empty or flat, percentile only when the history is empty.
type Metrics struct {
	Rank       *float64 `json:"iv_rank,omitempty"`
	Percentile *float64 `json:"iv_percentile,omitempty"`
}

// Compute returns the rank and percentile of current against history.
//
//	Rank       = (current - min) / (max - min), only when max > min
//	Percentile = fraction of historical observations <= current
//
// Rank is deliberately unclamped: a current value outside the observed
// range lands outside [0, 1], which is information the caller may want.
// The current value is compared against history but is not part of it.
func Compute(history []float64, current float64) Metrics {
	var m Metrics
	if len(history) == 0 {
		return m
	}

	lo := floats.Min(history)
	hi := floats.Max(history)
	if hi > lo {
		rank := (current - lo) / (hi - lo)
		m.Rank = &rank
	}

	// Empirical CDF needs ascending values; history arrives ordered by
	// date, not by value.
	sorted := append([]float64(nil), history...)
	sort.Float64s(sorted)
	pct := stat.CDF(current, stat.Empirical, sorted, nil)
	m.Percentile = &pct

	return m
}
