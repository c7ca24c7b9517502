// Package windowing provides analysis window functions applied to frames
// before spectral transforms.
package windowing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLengthMismatch is returned when a frame does not match the window size
var ErrLengthMismatch = errors.New("window length mismatch")

// Type identifies a window function
type Type string

const (
	TypeHann        Type = "hann"
	TypeHamming     Type = "hamming"
	TypeBlackman    Type = "blackman"
	TypeRectangular Type = "rectangular"
)

// ParseType converts a configuration string to a Type. The empty string maps
// to Hann.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeHann, nil
	case TypeHann, TypeHamming, TypeBlackman, TypeRectangular:
		return t, nil
	default:
		return "", fmt.Errorf("unknown window type %q", s)
	}
}

// Window holds precomputed coefficients for one window type and size.
// A Window is read-only after New and safe for concurrent use.
type Window struct {
	windowType   Type
	size         int
	coefficients []float64
}

// New creates a periodic window of the given type and size
func New(windowType Type, size int) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	var coeffs []float64
	switch windowType {
	case TypeHann, "":
		windowType = TypeHann
		coeffs = hannCoefficients(size, false)
	case TypeHamming:
		coeffs = hammingCoefficients(size, false)
	case TypeBlackman:
		coeffs = blackmanCoefficients(size, false)
	case TypeRectangular:
		coeffs = rectangularCoefficients(size)
	default:
		return nil, fmt.Errorf("unknown window type %q", windowType)
	}

	return &Window{
		windowType:   windowType,
		size:         size,
		coefficients: coeffs,
	}, nil
}

// Apply multiplies frame by the window and returns a new slice
func (w *Window) Apply(frame []float64) ([]float64, error) {
	if len(frame) != w.size {
		return nil, fmt.Errorf("%w: frame length %d, window size %d", ErrLengthMismatch, len(frame), w.size)
	}

	windowed := make([]float64, w.size)
	for i, c := range w.coefficients {
		windowed[i] = frame[i] * c
	}
	return windowed, nil
}

// ApplyInPlace multiplies buf by the window in place
func (w *Window) ApplyInPlace(buf []float64) error {
	if len(buf) != w.size {
		return fmt.Errorf("%w: frame length %d, window size %d", ErrLengthMismatch, len(buf), w.size)
	}

	for i, c := range w.coefficients {
		buf[i] *= c
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.windowType
}
