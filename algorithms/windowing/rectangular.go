package windowing

func rectangularCoefficients(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	return coeffs
}
