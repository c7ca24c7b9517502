package common

import (
	"math"
)

// IsFinite reports whether x is neither NaN nor infinite
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FirstNonFinite returns the index of the first NaN or Inf in v, or -1
func FirstNonFinite(v []float64) int {
	for i, x := range v {
		if !IsFinite(x) {
			return i
		}
	}
	return -1
}
