package embedding

import (
	"fmt"

	"github.com/RyanBlaney/sonido-embed/algorithms/filters"
	"github.com/RyanBlaney/sonido-embed/algorithms/framing"
	"github.com/RyanBlaney/sonido-embed/algorithms/spectral"
	"github.com/RyanBlaney/sonido-embed/algorithms/windowing"
)

// Config holds the feature parameters. Every field changes the embedding, so
// vectors computed with different configs are not comparable; Version
// captures the ones that matter.
type Config struct {
	FrameSize  int    `json:"frame_size" yaml:"frame_size"`   // Samples per frame (default: 2048)
	HopSize    int    `json:"hop_size" yaml:"hop_size"`       // Samples between frame starts (default: 1024)
	SampleRate int    `json:"sample_rate" yaml:"sample_rate"` // Analysis rate; signals are resampled to it (default: 44100)
	Window     string `json:"window" yaml:"window"`           // Window function (default: hann)

	// Optional time-domain preprocessing, both off by default
	PreEmphasis float64 `json:"pre_emphasis" yaml:"pre_emphasis"` // First-order pre-emphasis coefficient, 0 disables
	RemoveDC    bool    `json:"remove_dc" yaml:"remove_dc"`       // One-pole DC blocker before framing

	MFCC     spectral.MFCCParams             `json:"mfcc" yaml:"mfcc"`
	Contrast spectral.SpectralContrastParams `json:"contrast" yaml:"contrast"`

	// FrameWorkers caps the goroutines used per extraction, 0 picks a value
	// from the CPU count and frame count
	FrameWorkers int `json:"frame_workers" yaml:"frame_workers"`
}

// DefaultConfig returns the configuration the stored embeddings are built with
func DefaultConfig() Config {
	return Config{
		FrameSize:  2048,
		HopSize:    1024,
		SampleRate: 44100,
		Window:     string(windowing.TypeHann),
		MFCC:       spectral.DefaultMFCCParams(),
		Contrast:   spectral.DefaultSpectralContrastParams(),
	}
}

// Validate checks the parameters that can be checked without building the
// filter banks. NewExtractor performs the remaining checks.
func (c Config) Validate() error {
	if err := framing.Validate(c.FrameSize, c.HopSize); err != nil {
		return newError(KindConfiguration, "config", err)
	}
	if c.SampleRate <= 0 {
		return newError(KindConfiguration, "config", fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if _, err := windowing.ParseType(c.Window); err != nil {
		return newError(KindConfiguration, "config", err)
	}
	if err := filters.ValidatePreEmphasis(c.PreEmphasis); err != nil {
		return newError(KindConfiguration, "config", err)
	}
	if c.MFCC.NumCoefficients < 0 || c.MFCC.NumMelFilters < 0 {
		return newError(KindConfiguration, "config", fmt.Errorf("mfcc sizes must not be negative"))
	}
	if c.Contrast.NumBands < 0 {
		return newError(KindConfiguration, "config", fmt.Errorf("contrast band count must not be negative"))
	}
	if c.FrameWorkers < 0 {
		return newError(KindConfiguration, "config", fmt.Errorf("frame workers must not be negative, got %d", c.FrameWorkers))
	}
	return nil
}

// withDefaults fills zero-valued feature sizes the same way the spectral
// constructors do, so Dimension agrees with what Extract returns
func (c Config) withDefaults() Config {
	if c.Window == "" {
		c.Window = string(windowing.TypeHann)
	}
	if c.MFCC.NumCoefficients == 0 {
		c.MFCC.NumCoefficients = spectral.DefaultMFCCParams().NumCoefficients
	}
	if c.MFCC.NumMelFilters == 0 {
		c.MFCC.NumMelFilters = spectral.DefaultMFCCParams().NumMelFilters
	}
	if c.Contrast.NumBands == 0 {
		c.Contrast.NumBands = spectral.DefaultSpectralContrastParams().NumBands
	}
	return c
}

// Dimension returns the embedding length, 2*C + 2*B
func (c Config) Dimension() int {
	c = c.withDefaults()
	return 2*c.MFCC.NumCoefficients + 2*c.Contrast.NumBands
}

// Version identifies the feature convention, e.g.
// "mfcc13-mel40-contrast6-hann-f2048-h1024-sr44100"
func (c Config) Version() string {
	c = c.withDefaults()
	v := fmt.Sprintf("mfcc%d-mel%d-contrast%d-%s-f%d-h%d-sr%d",
		c.MFCC.NumCoefficients, c.MFCC.NumMelFilters, c.Contrast.NumBands,
		c.Window, c.FrameSize, c.HopSize, c.SampleRate)
	mfcc, contrast := c.featureParams()
	mfccDefault, contrastDefault := Config{SampleRate: c.SampleRate}.featureParams()

	if mfcc.LowFreq != mfccDefault.LowFreq || mfcc.HighFreq != mfccDefault.HighFreq {
		v += fmt.Sprintf("-melhz%g-%g", mfcc.LowFreq, mfcc.HighFreq)
	}
	if mfcc.LogFloor != mfccDefault.LogFloor {
		v += fmt.Sprintf("-mfloor%g", mfcc.LogFloor)
	}
	if mfcc.UseLiftering {
		v += "-lifter"
		if mfcc.LifterCoeff != mfccDefault.LifterCoeff {
			v += fmt.Sprintf("%g", mfcc.LifterCoeff)
		}
	}
	if contrast.LowFreq != contrastDefault.LowFreq || contrast.HighFreq != contrastDefault.HighFreq {
		v += fmt.Sprintf("-contrasthz%g-%g", contrast.LowFreq, contrast.HighFreq)
	}
	if contrast.NeighbourRatio != contrastDefault.NeighbourRatio {
		v += fmt.Sprintf("-q%g", contrast.NeighbourRatio)
	}
	if contrast.LogFloor != contrastDefault.LogFloor {
		v += fmt.Sprintf("-cfloor%g", contrast.LogFloor)
	}
	if c.RemoveDC {
		v += "-dc"
	}
	if c.PreEmphasis > 0 {
		v += fmt.Sprintf("-pre%g", c.PreEmphasis)
	}
	return v
}

// featureParams fills zero-valued spectral parameters with their defaults and
// clamps the upper frequencies to nyquist, matching what the spectral
// constructors end up using
func (c Config) featureParams() (spectral.MFCCParams, spectral.SpectralContrastParams) {
	mfcc, contrast := c.MFCC, c.Contrast
	mfccDefaults := spectral.DefaultMFCCParams()
	contrastDefaults := spectral.DefaultSpectralContrastParams()

	if mfcc.HighFreq == 0 {
		mfcc.HighFreq = mfccDefaults.HighFreq
	}
	if mfcc.LogFloor == 0 {
		mfcc.LogFloor = mfccDefaults.LogFloor
	}
	if mfcc.LifterCoeff == 0 {
		mfcc.LifterCoeff = mfccDefaults.LifterCoeff
	}
	if contrast.LowFreq == 0 {
		contrast.LowFreq = contrastDefaults.LowFreq
	}
	if contrast.HighFreq == 0 {
		contrast.HighFreq = contrastDefaults.HighFreq
	}
	if contrast.NeighbourRatio == 0 {
		contrast.NeighbourRatio = contrastDefaults.NeighbourRatio
	}
	if contrast.LogFloor == 0 {
		contrast.LogFloor = contrastDefaults.LogFloor
	}

	if c.SampleRate > 0 {
		nyquist := float64(c.SampleRate) / 2
		mfcc.HighFreq = min(mfcc.HighFreq, nyquist)
		contrast.HighFreq = min(contrast.HighFreq, nyquist)
	}
	return mfcc, contrast
}

// Layout returns the position of each sub-vector in the embedding
func (c Config) Layout() Layout {
	c = c.withDefaults()
	mfcc, contrast := c.MFCC.NumCoefficients, c.Contrast.NumBands
	return Layout{
		MFCCMean:     Segment{Offset: 0, Length: mfcc},
		MFCCStd:      Segment{Offset: mfcc, Length: mfcc},
		ContrastMean: Segment{Offset: 2 * mfcc, Length: contrast},
		ContrastStd:  Segment{Offset: 2*mfcc + contrast, Length: contrast},
		Dimension:    c.Dimension(),
		Version:      c.Version(),
	}
}
