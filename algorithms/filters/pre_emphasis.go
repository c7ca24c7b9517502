// Package filters holds the time-domain filters that may run on a signal
// before it is framed.
package filters

import (
	"fmt"
)

// PreEmphasis implements a first-order pre-emphasis filter.
//
// The filter implements the transfer function:
// H(z) = 1 - α*z^-1
//
// With the difference equation:
// y[n] = x[n] - α*x[n-1]
//
// References:
//   - L.R. Rabiner, R.W. Schafer, "Digital Processing of Speech Signals",
//     Prentice-Hall, 1978, Chapter 4
type PreEmphasis struct {
	coefficient float64 // Pre-emphasis coefficient α
	lastSample  float64 // Previous input sample x[n-1]
}

// DefaultPreEmphasis is the coefficient used when pre-emphasis is enabled
// without an explicit value
const DefaultPreEmphasis = 0.97

// NewPreEmphasis creates a pre-emphasis filter. coefficient must be in [0, 1).
func NewPreEmphasis(coefficient float64) (*PreEmphasis, error) {
	if err := ValidatePreEmphasis(coefficient); err != nil {
		return nil, err
	}
	return &PreEmphasis{coefficient: coefficient}, nil
}

// ValidatePreEmphasis checks a pre-emphasis coefficient
func ValidatePreEmphasis(coefficient float64) error {
	if coefficient < 0 || coefficient >= 1 {
		return fmt.Errorf("pre-emphasis coefficient must be in [0, 1), got %g", coefficient)
	}
	return nil
}

// Process filters one sample
func (pe *PreEmphasis) Process(input float64) float64 {
	output := input - pe.coefficient*pe.lastSample
	pe.lastSample = input
	return output
}

// ProcessBuffer filters a buffer and returns a new slice. State carries over
// between calls, so consecutive buffers of one stream filter seamlessly.
func (pe *PreEmphasis) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, x := range input {
		output[i] = pe.Process(x)
	}
	return output
}

// Reset clears the filter memory
func (pe *PreEmphasis) Reset() {
	pe.lastSample = 0
}

// Coefficient returns α
func (pe *PreEmphasis) Coefficient() float64 {
	return pe.coefficient
}
