package spectral

import (
	"fmt"
	"math"
)

// DefaultLogFloor is the value substituted for non-positive energies before
// taking a logarithm.
const DefaultLogFloor = 1e-10

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients" yaml:"num_coefficients"` // Coefficients kept, c0 included (default: 13)
	NumMelFilters   int     `json:"num_mel_filters" yaml:"num_mel_filters"`   // Mel filter bank size (default: 40)
	LowFreq         float64 `json:"low_freq" yaml:"low_freq"`                 // Lower edge of the first filter (default: 0)
	HighFreq        float64 `json:"high_freq" yaml:"high_freq"`               // Upper edge of the last filter (default: 11000, clamped to nyquist)
	LogFloor        float64 `json:"log_floor" yaml:"log_floor"`               // Floor applied before log (default: 1e-10)
	UseLiftering    bool    `json:"use_liftering" yaml:"use_liftering"`       // Sinusoidal liftering (default: false)
	LifterCoeff     float64 `json:"lifter_coeff" yaml:"lifter_coeff"`         // Liftering coefficient (default: 22)
}

// DefaultMFCCParams returns the parameters the embedding is versioned against
func DefaultMFCCParams() MFCCParams {
	return MFCCParams{
		NumCoefficients: 13,
		NumMelFilters:   40,
		LowFreq:         0,
		HighFreq:        11000,
		LogFloor:        DefaultLogFloor,
		UseLiftering:    false,
		LifterCoeff:     22,
	}
}

// MFCC computes Mel-Frequency Cepstral Coefficients from magnitude spectra.
//
// Pipeline: |X|^2 -> mel filter bank -> ln(max(e, floor)) -> orthonormal
// DCT-II -> first NumCoefficients values (c0 kept) -> optional liftering.
//
// The filter bank and DCT matrix are built by NewMFCC and never mutated, so
// one MFCC may be shared by concurrent extractions.
type MFCC struct {
	params     MFCCParams
	frameSize  int
	sampleRate int
	filterBank *MelFilterBank
	dctMatrix  [][]float64
	lifter     []float64
}

// MFCCResult contains MFCC computation results
type MFCCResult struct {
	MFCC        []float64 `json:"mfcc"`         // MFCC coefficients
	MelSpectrum []float64 `json:"mel_spectrum"` // Mel band energies before the log
	LogEnergy   float64   `json:"log_energy"`   // c0 before liftering
}

// NewMFCC creates an MFCC computer for frames of frameSize samples at
// sampleRate. Zero-valued params fall back to DefaultMFCCParams; HighFreq is
// clamped to the nyquist frequency.
func NewMFCC(frameSize, sampleRate int, params MFCCParams) (*MFCC, error) {
	defaults := DefaultMFCCParams()
	if params.NumCoefficients == 0 {
		params.NumCoefficients = defaults.NumCoefficients
	}
	if params.NumMelFilters == 0 {
		params.NumMelFilters = defaults.NumMelFilters
	}
	if params.HighFreq == 0 {
		params.HighFreq = defaults.HighFreq
	}
	if params.LogFloor == 0 {
		params.LogFloor = defaults.LogFloor
	}
	if params.LifterCoeff == 0 {
		params.LifterCoeff = defaults.LifterCoeff
	}
	if sampleRate > 0 {
		params.HighFreq = math.Min(params.HighFreq, float64(sampleRate)/2.0)
	}

	if params.NumCoefficients < 0 {
		return nil, fmt.Errorf("number of MFCC coefficients must be positive, got %d", params.NumCoefficients)
	}
	if params.NumCoefficients > params.NumMelFilters {
		return nil, fmt.Errorf("number of MFCC coefficients (%d) exceeds number of mel filters (%d)",
			params.NumCoefficients, params.NumMelFilters)
	}
	if params.LogFloor < 0 {
		return nil, fmt.Errorf("log floor must be positive, got %g", params.LogFloor)
	}

	filterBank, err := NewMelFilterBank(params.NumMelFilters, frameSize, sampleRate, params.LowFreq, params.HighFreq)
	if err != nil {
		return nil, fmt.Errorf("failed to create mel filter bank: %w", err)
	}

	m := &MFCC{
		params:     params,
		frameSize:  frameSize,
		sampleRate: sampleRate,
		filterBank: filterBank,
		dctMatrix:  dctMatrix(params.NumCoefficients, params.NumMelFilters),
	}
	if params.UseLiftering {
		m.lifter = lifterWeights(params.NumCoefficients, params.LifterCoeff)
	}

	return m, nil
}

// Compute calculates MFCC coefficients from a magnitude spectrum of length
// frameSize/2+1.
func (m *MFCC) Compute(magnitudeSpectrum []float64) (*MFCCResult, error) {
	if want := NumBins(m.frameSize); len(magnitudeSpectrum) != want {
		return nil, fmt.Errorf("magnitude spectrum has %d bins, expected %d", len(magnitudeSpectrum), want)
	}

	melSpectrum := m.filterBank.Apply(PowerSpectrum(magnitudeSpectrum))

	logMel := make([]float64, len(melSpectrum))
	for i, e := range melSpectrum {
		logMel[i] = math.Log(math.Max(e, m.params.LogFloor))
	}

	coeffs := make([]float64, m.params.NumCoefficients)
	for k, row := range m.dctMatrix {
		sum := 0.0
		for n, v := range logMel {
			sum += v * row[n]
		}
		coeffs[k] = sum
	}

	logEnergy := coeffs[0]
	if m.lifter != nil {
		for i := range coeffs {
			coeffs[i] *= m.lifter[i]
		}
	}

	return &MFCCResult{
		MFCC:        coeffs,
		MelSpectrum: melSpectrum,
		LogEnergy:   logEnergy,
	}, nil
}

// Params returns the effective parameters after defaults and clamping
func (m *MFCC) Params() MFCCParams {
	return m.params
}

// FilterBank returns the mel filter bank (for debugging/visualization)
func (m *MFCC) FilterBank() *MelFilterBank {
	return m.filterBank
}

// dctMatrix builds an orthonormal DCT-II matrix of numCoeffs x numFilters
func dctMatrix(numCoeffs, numFilters int) [][]float64 {
	matrix := make([][]float64, numCoeffs)
	n := float64(numFilters)

	for k := range numCoeffs {
		matrix[k] = make([]float64, numFilters)
		scale := math.Sqrt(2.0 / n)
		if k == 0 {
			scale = math.Sqrt(1.0 / n)
		}
		for j := range numFilters {
			matrix[k][j] = scale * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/n)
		}
	}

	return matrix
}

// lifterWeights returns sinusoidal lifter weights; c0 is left untouched
func lifterWeights(numCoeffs int, l float64) []float64 {
	w := make([]float64, numCoeffs)
	for i := range w {
		if i == 0 {
			w[i] = 1
			continue
		}
		w[i] = 1.0 + (l/2.0)*math.Sin(math.Pi*float64(i)/l)
	}
	return w
}
