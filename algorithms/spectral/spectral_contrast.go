package spectral

import (
	"fmt"
	"math"
	"slices"
)

// SpectralContrastParams configures the contrast sub-bands
type SpectralContrastParams struct {
	NumBands       int     `json:"num_bands" yaml:"num_bands"`             // Number of sub-bands (default: 6)
	LowFreq        float64 `json:"low_freq" yaml:"low_freq"`               // Lower edge of the first band (default: 20)
	HighFreq       float64 `json:"high_freq" yaml:"high_freq"`             // Upper edge of the last band (default: 11000, clamped to nyquist)
	NeighbourRatio float64 `json:"neighbour_ratio" yaml:"neighbour_ratio"` // Fraction of a band averaged for peak and valley (default: 0.4)
	LogFloor       float64 `json:"log_floor" yaml:"log_floor"`             // Floor applied before log (default: 1e-10)
}

// DefaultSpectralContrastParams returns the parameters the embedding is versioned against
func DefaultSpectralContrastParams() SpectralContrastParams {
	return SpectralContrastParams{
		NumBands:       6,
		LowFreq:        20,
		HighFreq:       11000,
		NeighbourRatio: 0.4,
		LogFloor:       DefaultLogFloor,
	}
}

// SpectralContrast computes per-band peak/valley contrast.
// Measures the difference between peaks and valleys in spectrum; tonal
// content gives high contrast, noise gives low contrast.
//
// Band edges are fixed at construction; the value is safe for concurrent use.
type SpectralContrast struct {
	params     SpectralContrastParams
	frameSize  int
	sampleRate int
	// bandEdges[b] is the first bin of band b; bandEdges[NumBands] is one past
	// the last bin of the last band.
	bandEdges []int
}

// ContrastResult holds the per-band values for one spectrum
type ContrastResult struct {
	Contrast []float64 `json:"contrast"` // log(peak) - log(valley)
	Valley   []float64 `json:"valley"`   // log(valley)
}

// NewSpectralContrast creates a contrast extractor for frames of frameSize
// samples at sampleRate. Zero-valued params fall back to the defaults.
func NewSpectralContrast(frameSize, sampleRate int, params SpectralContrastParams) (*SpectralContrast, error) {
	defaults := DefaultSpectralContrastParams()
	if params.NumBands == 0 {
		params.NumBands = defaults.NumBands
	}
	if params.LowFreq == 0 {
		params.LowFreq = defaults.LowFreq
	}
	if params.HighFreq == 0 {
		params.HighFreq = defaults.HighFreq
	}
	if params.NeighbourRatio == 0 {
		params.NeighbourRatio = defaults.NeighbourRatio
	}
	if params.LogFloor == 0 {
		params.LogFloor = defaults.LogFloor
	}

	if frameSize <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("frame size and sample rate must be positive, got %d and %d", frameSize, sampleRate)
	}
	nyquist := float64(sampleRate) / 2.0
	params.HighFreq = math.Min(params.HighFreq, nyquist)

	if params.NumBands < 1 {
		return nil, fmt.Errorf("number of contrast bands must be positive, got %d", params.NumBands)
	}
	if params.LowFreq <= 0 || params.HighFreq <= params.LowFreq {
		return nil, fmt.Errorf("invalid contrast frequency range [%.1f, %.1f]", params.LowFreq, params.HighFreq)
	}
	if params.NeighbourRatio <= 0 || params.NeighbourRatio > 0.5 {
		return nil, fmt.Errorf("neighbour ratio must be in (0, 0.5], got %g", params.NeighbourRatio)
	}
	if params.LogFloor < 0 {
		return nil, fmt.Errorf("log floor must be positive, got %g", params.LogFloor)
	}

	edges, err := logBandEdges(params.NumBands, frameSize, sampleRate, params.LowFreq, params.HighFreq)
	if err != nil {
		return nil, err
	}

	return &SpectralContrast{
		params:     params,
		frameSize:  frameSize,
		sampleRate: sampleRate,
		bandEdges:  edges,
	}, nil
}

// logBandEdges converts logarithmically spaced frequencies to bin indices and
// forces every band to hold at least one bin.
func logBandEdges(numBands, frameSize, sampleRate int, lowFreq, highFreq float64) ([]int, error) {
	numBins := NumBins(frameSize)
	binHz := float64(sampleRate) / float64(frameSize)

	logLow := math.Log(lowFreq)
	logStep := (math.Log(highFreq) - logLow) / float64(numBands)

	edges := make([]int, numBands+1)
	for i := range edges {
		freq := math.Exp(logLow + float64(i)*logStep)
		edges[i] = int(math.Round(freq / binHz))
	}
	// Last band includes the bin nearest to highFreq
	edges[numBands]++

	for i := 1; i <= numBands; i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
		}
	}

	// Pushing edges up may run past the last bin; pull them back down
	edges[numBands] = min(edges[numBands], numBins)
	for i := numBands - 1; i >= 0; i-- {
		if edges[i] >= edges[i+1] {
			edges[i] = edges[i+1] - 1
		}
	}
	if edges[0] < 0 {
		return nil, fmt.Errorf("%d contrast bands do not fit in %d frequency bins", numBands, numBins)
	}

	return edges, nil
}

// Compute calculates contrast and valley values for one magnitude spectrum
// of length frameSize/2+1.
func (sc *SpectralContrast) Compute(magnitudeSpectrum []float64) (*ContrastResult, error) {
	if want := NumBins(sc.frameSize); len(magnitudeSpectrum) != want {
		return nil, fmt.Errorf("magnitude spectrum has %d bins, expected %d", len(magnitudeSpectrum), want)
	}

	result := &ContrastResult{
		Contrast: make([]float64, sc.params.NumBands),
		Valley:   make([]float64, sc.params.NumBands),
	}

	for band := range sc.params.NumBands {
		start, end := sc.bandEdges[band], sc.bandEdges[band+1]
		peak, valley := sc.peakValley(magnitudeSpectrum[start:end])

		logPeak := math.Log(math.Max(peak, sc.params.LogFloor))
		logValley := math.Log(math.Max(valley, sc.params.LogFloor))

		result.Contrast[band] = logPeak - logValley
		result.Valley[band] = logValley
	}

	return result, nil
}

// peakValley returns the mean of the top and bottom NeighbourRatio of band
func (sc *SpectralContrast) peakValley(band []float64) (peak, valley float64) {
	if len(band) == 0 {
		return 0, 0
	}

	sorted := slices.Clone(band)
	slices.Sort(sorted)

	count := int(math.Ceil(sc.params.NeighbourRatio * float64(len(sorted))))
	count = max(1, min(count, len(sorted)))

	for i := range count {
		valley += sorted[i]
		peak += sorted[len(sorted)-1-i]
	}

	return peak / float64(count), valley / float64(count)
}

// Params returns the effective parameters after defaults and clamping
func (sc *SpectralContrast) Params() SpectralContrastParams {
	return sc.params
}

// BandEdges returns the bin boundaries of each band (length NumBands+1)
func (sc *SpectralContrast) BandEdges() []int {
	return slices.Clone(sc.bandEdges)
}

// BandFrequencies returns the band boundaries in Hz
func (sc *SpectralContrast) BandFrequencies() []float64 {
	binHz := float64(sc.sampleRate) / float64(sc.frameSize)
	freqs := make([]float64, len(sc.bandEdges))
	for i, bin := range sc.bandEdges {
		freqs[i] = float64(bin) * binHz
	}
	return freqs
}
