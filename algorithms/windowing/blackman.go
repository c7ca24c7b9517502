package windowing

import "math"

// blackmanCoefficients uses the classic a0=0.42, a1=0.5, a2=0.08 weights
func blackmanCoefficients(size int, symmetric bool) []float64 {
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
		x := 2 * math.Pi * float64(i) / denominator
		coeffs[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return coeffs
}
