package metrics

import (
	"math"
	"slices"
	"strings"
)

// Round1 rounds to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Summary holds the aggregate of one numeric sample set. All fields are nil
// when the set is empty: zero samples is absent evidence, not zero.
type Summary struct {
	Avg    *float64 `json:"avg"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// Summarize computes average, median, min and max of values, each rounded
// to one decimal place. Every aggregate in this package relies on its
// empty-input contract.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Summary{
		Avg:    ptr(Round1(mean(sorted))),
		Median: ptr(Round1(median)),
		Min:    ptr(Round1(sorted[0])),
		Max:    ptr(Round1(sorted[n-1])),
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func ptr(v float64) *float64 { return &v }

// matchesAny reports whether name contains any of the patterns,
// case-insensitively.
func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
