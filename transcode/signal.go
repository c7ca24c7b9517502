package transcode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrDecode is returned when the input bytes cannot be turned into samples:
	// empty input, an unrecognized container, or a stream with no audio.
	ErrDecode = errors.New("audio decode failed")

	// ErrDecoderUnavailable is returned when the external decoder cannot be
	// run at all (binary missing, pipe setup failure).
	ErrDecoderUnavailable = errors.New("audio decoder unavailable")
)

// AudioSignal is mono PCM at a known sample rate. It is not modified after
// decoding, so pipeline stages may take views into Samples.
type AudioSignal struct {
	Samples    []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source,omitempty"` // decoder that produced the signal
}

// NewAudioSignal wraps samples and derives the duration
func NewAudioSignal(samples []float64, sampleRate int, source string) *AudioSignal {
	s := &AudioSignal{
		Samples:    samples,
		SampleRate: sampleRate,
		Source:     source,
	}
	if sampleRate > 0 {
		s.Duration = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	return s
}

// Len returns the number of samples
func (s *AudioSignal) Len() int {
	return len(s.Samples)
}

// Validate checks that the signal is usable by the feature pipeline
func (s *AudioSignal) Validate() error {
	if s == nil || len(s.Samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrDecode)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: invalid sample rate %d", ErrDecode, s.SampleRate)
	}
	for i, v := range s.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sample at index %d", ErrDecode, i)
		}
	}
	return nil
}

// Decoder turns encoded audio bytes into a mono AudioSignal.
// contentTypeHint is advisory; implementations detect the format themselves.
// Implementations must be safe for concurrent use.
type Decoder interface {
	Decode(ctx context.Context, data []byte, contentTypeHint string) (*AudioSignal, error)
}
