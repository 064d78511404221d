// Package stats holds the small set of order statistics the segmentation
// rules are written against.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of x, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// Quantile returns the q-th quantile (0 <= q <= 1) of x using linear
// interpolation between order statistics: rank = q*(n-1).
// NaN inputs are ignored. ok is false when no finite values remain.
func Quantile(x []float64, q float64) (float64, bool) {
	cp := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			cp = append(cp, v)
		}
	}
	n := len(cp)
	if n == 0 {
		return 0, false
	}
	sort.Float64s(cp)
	if q <= 0 {
		return cp[0], true
	}
	if q >= 1 {
		return cp[n-1], true
	}
	rank := q * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower], true
	}
	return cp[lower]*(1-weight) + cp[upper]*weight, true
}

// Median is Quantile(x, 0.5).
func Median(x []float64) (float64, bool) {
	return Quantile(x, 0.5)
}
