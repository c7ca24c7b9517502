package windowing

import "math"

// hannCoefficients returns a Hann window. The periodic form (symmetric=false)
// divides by size and is the one used for spectral analysis.
func hannCoefficients(size int, symmetric bool) []float64 {
	coeffs := make([]float64, size)
	if size == 1 {
		coeffs[0] = 1
		return coeffs
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}

	for i := range size {
		coeffs[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
	return coeffs
}
