package filters

import (
	"fmt"
	"math"
)

// DCRemoval is a one-pole DC blocking filter:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// The pole R sets the cutoff; R = 0.995 at 44.1 kHz is roughly 35 Hz.
type DCRemoval struct {
	pole       float64
	lastInput  float64
	lastOutput float64
}

// DefaultDCCutoff is the cutoff used by NewDCRemovalWithCutoff callers that
// have no preference
const DefaultDCCutoff = 20.0

// NewDCRemovalWithCutoff creates a DC blocker with a -3 dB point near cutoffHz
func NewDCRemovalWithCutoff(sampleRate int, cutoffHz float64) (*DCRemoval, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if cutoffHz <= 0 || cutoffHz >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("dc cutoff must be in (0, %d), got %g", sampleRate/2, cutoffHz)
	}
	return &DCRemoval{pole: math.Exp(-2 * math.Pi * cutoffHz / float64(sampleRate))}, nil
}

// Process filters one sample
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.lastInput + dc.pole*dc.lastOutput
	dc.lastInput = input
	dc.lastOutput = output
	return output
}

// ProcessBuffer filters a buffer and returns a new slice
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, x := range input {
		output[i] = dc.Process(x)
	}
	return output
}

// Reset clears the filter memory
func (dc *DCRemoval) Reset() {
	dc.lastInput = 0
	dc.lastOutput = 0
}

// Pole returns the pole location R
func (dc *DCRemoval) Pole() float64 {
	return dc.pole
}
