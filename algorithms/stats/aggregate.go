// Package stats reduces per-frame feature matrices to summary statistics and
// compares the resulting vectors.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyMatrix is returned when a feature matrix has no rows
	ErrEmptyMatrix = errors.New("feature matrix has no frames")

	// ErrRaggedMatrix is returned when rows of a feature matrix differ in length
	ErrRaggedMatrix = errors.New("feature matrix rows differ in length")
)

// AggregatedStats holds column-wise statistics of a feature matrix
type AggregatedStats struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"` // population standard deviation, always >= 0
}

// Len returns the feature dimension
func (a *AggregatedStats) Len() int {
	return len(a.Mean)
}

// Aggregate computes the column mean and population standard deviation
// (divide by N) of a frames x features matrix.
func Aggregate(matrix [][]float64) (*AggregatedStats, error) {
	if len(matrix) == 0 {
		return nil, ErrEmptyMatrix
	}

	cols := len(matrix[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: frame 0 is empty", ErrRaggedMatrix)
	}

	data := make([]float64, 0, len(matrix)*cols)
	for i, row := range matrix {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: frame %d has %d values, expected %d", ErrRaggedMatrix, i, len(row), cols)
		}
		data = append(data, row...)
	}

	dense := mat.NewDense(len(matrix), cols, data)

	result := &AggregatedStats{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}

	column := make([]float64, len(matrix))
	for j := range cols {
		mat.Col(column, j, dense)
		mean, variance := stat.PopMeanVariance(column, nil)
		result.Mean[j] = mean
		result.Std[j] = math.Sqrt(math.Max(variance, 0))
	}

	return result, nil
}
