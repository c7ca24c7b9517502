package transcode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-embed/logging"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder reads integer PCM RIFF/WAVE data in process. Multi-channel input
// is averaged to mono and resampled to the target rate when needed.
type WAVDecoder struct {
	targetSampleRate int
}

// NewWAVDecoder creates a WAV decoder producing signals at targetSampleRate
func NewWAVDecoder(targetSampleRate int) *WAVDecoder {
	return &WAVDecoder{targetSampleRate: targetSampleRate}
}

// Accepts reports whether data carries a RIFF/WAVE header
func (d *WAVDecoder) Accepts(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// Decode implements Decoder
func (d *WAVDecoder) Decode(ctx context.Context, data []byte, contentTypeHint string) (*AudioSignal, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component":    "wav_decoder",
		"function":     "Decode",
		"data_size":    len(data),
		"content_type": contentTypeHint,
	})

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio data", ErrDecode)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: unsupported WAV audio format %d", ErrDecode, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PCM data: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: no audio samples decoded", ErrDecode)
	}

	channels := buf.Format.NumChannels
	sampleRate := buf.Format.SampleRate
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid WAV format (%d channels, %d Hz)", ErrDecode, channels, sampleRate)
	}
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, bitDepth)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := Downmix(intToFloat(buf.Data, bitDepth), channels)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no audio samples decoded", ErrDecode)
	}

	if sampleRate != d.targetSampleRate {
		logger.Debug("Resampling WAV input", logging.Fields{
			"from": sampleRate,
			"to":   d.targetSampleRate,
		})
		samples, err = Resample(samples, sampleRate, d.targetSampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	signal := NewAudioSignal(samples, d.targetSampleRate, "wav")

	logger.Debug("WAV decode completed", logging.Fields{
		"input_sample_rate": sampleRate,
		"input_channels":    channels,
		"bit_depth":         bitDepth,
		"output_samples":    len(samples),
		"output_duration":   signal.Duration.Seconds(),
	})

	return signal, nil
}

// intToFloat scales integer PCM to [-1, 1). 8-bit WAV is unsigned.
func intToFloat(data []int, bitDepth int) []float64 {
	out := make([]float64, len(data))
	if bitDepth == 8 {
		for i, v := range data {
			out[i] = float64(v-128) / 128.0
		}
		return out
	}

	scale := float64(int64(1) << (bitDepth - 1))
	for i, v := range data {
		out[i] = float64(v) / scale
	}
	return out
}
