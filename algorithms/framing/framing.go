// Package framing slices a mono sample sequence into fixed-size overlapping
// frames for short-time spectral analysis.
//
// The trailing partial frame is always dropped, never zero-padded, so the
// frame count for N samples is floor((N-frameSize)/hopSize)+1 when
// N >= frameSize and 0 otherwise.
package framing

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidFraming is returned when frame and hop sizes are inconsistent
var ErrInvalidFraming = errors.New("invalid framing parameters")

// Validate checks that frameSize and hopSize describe a usable framing
func Validate(frameSize, hopSize int) error {
	if frameSize <= 0 {
		return fmt.Errorf("%w: frame size must be positive, got %d", ErrInvalidFraming, frameSize)
	}
	if hopSize <= 0 {
		return fmt.Errorf("%w: hop size must be positive, got %d", ErrInvalidFraming, hopSize)
	}
	if hopSize > frameSize {
		return fmt.Errorf("%w: hop size (%d) exceeds frame size (%d)", ErrInvalidFraming, hopSize, frameSize)
	}
	return nil
}

// Count returns the number of full frames available in n samples
func Count(n, frameSize, hopSize int) int {
	if frameSize <= 0 || hopSize <= 0 || n < frameSize {
		return 0
	}
	return (n-frameSize)/hopSize + 1
}

// Frame returns the idx-th frame of samples as a view. The caller must not
// modify it. It returns nil when idx is out of range.
func Frame(samples []float64, idx, frameSize, hopSize int) []float64 {
	if idx < 0 || idx >= Count(len(samples), frameSize, hopSize) {
		return nil
	}
	start := idx * hopSize
	return samples[start : start+frameSize : start+frameSize]
}

// Frames yields (index, frame) pairs in temporal order. Each frame is a
// capacity-limited view into samples; consumers that modify samples must copy
// first. The sequence can be iterated any number of times.
func Frames(samples []float64, frameSize, hopSize int) iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		n := Count(len(samples), frameSize, hopSize)
		for i := range n {
			start := i * hopSize
			if !yield(i, samples[start:start+frameSize:start+frameSize]) {
				return
			}
		}
	}
}
