package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT computes real-input discrete Fourier transforms.
// It holds no state and is safe for concurrent use.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the full complex spectrum of x using mjibson/go-dsp.
// go-dsp handles non-power-of-2 sizes (Bluestein), so any frame size works.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// NumBins returns the number of non-redundant bins for a real frame
func NumBins(frameSize int) int {
	if frameSize <= 0 {
		return 0
	}
	return frameSize/2 + 1
}

// MagnitudeSpectrum returns |X[k]| for k = 0..N/2. Negative-frequency bins
// mirror the positive ones for real input and are dropped.
func (f *FFT) MagnitudeSpectrum(frame []float64) []float64 {
	if len(frame) == 0 {
		return []float64{}
	}

	spectrum := f.Compute(frame)
	numBins := NumBins(len(frame))

	magnitude := make([]float64, numBins)
	for i := range numBins {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return magnitude
}

// PowerSpectrum squares a magnitude spectrum into a new slice
func PowerSpectrum(magnitude []float64) []float64 {
	power := make([]float64, len(magnitude))
	for i, m := range magnitude {
		power[i] = m * m
	}
	return power
}
