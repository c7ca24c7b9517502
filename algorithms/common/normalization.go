package common

import (
	"gonum.org/v1/gonum/floats"
)

// MinMaxNormalize maps v onto [0, 1] with (x - min) / (max - min).
//
// When max == min (including single-element vectors) the result is x - min,
// which is all zeros. Empty input yields an empty, non-nil slice.
func MinMaxNormalize(v []float64) []float64 {
	normalized := make([]float64, len(v))
	if len(v) == 0 {
		return normalized
	}

	lo := floats.Min(v)
	hi := floats.Max(v)
	span := hi - lo

	for i, x := range v {
		normalized[i] = x - lo
		if span != 0 {
			normalized[i] /= span
		}
	}

	return normalized
}
