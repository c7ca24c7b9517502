package spectral

import (
	"fmt"
	"math"
)

// HzToMel converts frequency in Hz to the HTK mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts HTK mel back to Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterBank is a set of triangular filters over the bins of a real FFT.
// Each row has frameSize/2+1 weights.
type MelFilterBank struct {
	filters [][]float64
	// first/last non-zero bin per filter, so projection skips the zeros
	spans [][2]int
}

// NewMelFilterBank builds numFilters triangular filters equally spaced on the
// mel scale between lowFreq and highFreq. Weights are evaluated at each bin's
// center frequency, so narrow low-frequency filters are not collapsed onto a
// single integer bin.
func NewMelFilterBank(numFilters, frameSize, sampleRate int, lowFreq, highFreq float64) (*MelFilterBank, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("number of mel filters must be positive, got %d", numFilters)
	}
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	nyquist := float64(sampleRate) / 2.0
	if lowFreq < 0 || highFreq <= lowFreq || highFreq > nyquist {
		return nil, fmt.Errorf("invalid mel frequency range [%.1f, %.1f] for nyquist %.1f", lowFreq, highFreq, nyquist)
	}

	numBins := NumBins(frameSize)
	binHz := float64(sampleRate) / float64(frameSize)

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)
	melStep := (highMel - lowMel) / float64(numFilters+1)

	hzPoints := make([]float64, numFilters+2)
	for i := range hzPoints {
		hzPoints[i] = MelToHz(lowMel + float64(i)*melStep)
	}

	fb := &MelFilterBank{
		filters: make([][]float64, numFilters),
		spans:   make([][2]int, numFilters),
	}

	for m := range numFilters {
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		filter := make([]float64, numBins)
		first, last := -1, -1

		for k := range numBins {
			f := float64(k) * binHz
			var w float64
			switch {
			case f > left && f <= center:
				w = (f - left) / (center - left)
			case f > center && f < right:
				w = (right - f) / (right - center)
			}
			if w > 0 {
				filter[k] = w
				if first < 0 {
					first = k
				}
				last = k
			}
		}

		fb.filters[m] = filter
		if first < 0 {
			// Filter narrower than a bin: it contributes nothing and the
			// log floor takes over downstream.
			fb.spans[m] = [2]int{0, -1}
		} else {
			fb.spans[m] = [2]int{first, last}
		}
	}

	return fb, nil
}

// NumFilters returns the number of filters
func (fb *MelFilterBank) NumFilters() int {
	return len(fb.filters)
}

// Filters returns a copy of the filter weights (for inspection and plotting)
func (fb *MelFilterBank) Filters() [][]float64 {
	out := make([][]float64, len(fb.filters))
	for i, f := range fb.filters {
		out[i] = append([]float64(nil), f...)
	}
	return out
}

// Apply projects a power spectrum onto the filter bank
func (fb *MelFilterBank) Apply(powerSpectrum []float64) []float64 {
	melSpectrum := make([]float64, len(fb.filters))

	for i, filter := range fb.filters {
		span := fb.spans[i]
		sum := 0.0
		for k := span[0]; k <= span[1] && k < len(powerSpectrum); k++ {
			sum += powerSpectrum[k] * filter[k]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}
