package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b, clamped
// to [-1, 1] against rounding. A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := floats.Dot(a, b) / (normA * normB)
	return max(-1, min(1, sim)), nil
}

// CosineDistance returns 1 - CosineSimilarity, the metric pgvector's <=>
// operator reports.
func CosineDistance(a, b []float64) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1.0 - sim, nil
}

// EuclideanDistance returns the L2 distance between a and b
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	return floats.Distance(a, b, 2), nil
}
