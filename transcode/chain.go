package transcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-embed/logging"
)

// Sniffer is implemented by decoders that can cheaply tell whether they
// understand the input before decoding it.
type Sniffer interface {
	Accepts(data []byte) bool
}

// ChainDecoder tries decoders in order. A decoder that rejects the input
// (Sniffer) is skipped; one that fails with ErrDecode hands over to the next.
// Any other failure stops the chain.
type ChainDecoder struct {
	decoders []Decoder
}

// NewChainDecoder creates a decoder chain
func NewChainDecoder(decoders ...Decoder) *ChainDecoder {
	return &ChainDecoder{decoders: decoders}
}

// NewDefaultDecoder returns the standard chain: in-process WAV first, ffmpeg
// for everything else.
func NewDefaultDecoder(config *DecoderConfig) *ChainDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return NewChainDecoder(
		NewWAVDecoder(config.TargetSampleRate),
		NewFFmpegDecoder(config),
	)
}

// Decode implements Decoder
func (c *ChainDecoder) Decode(ctx context.Context, data []byte, contentTypeHint string) (*AudioSignal, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio data", ErrDecode)
	}

	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component":    "decoder_chain",
		"function":     "Decode",
		"content_type": contentTypeHint,
	})

	var lastErr error
	for i, dec := range c.decoders {
		if s, ok := dec.(Sniffer); ok && !s.Accepts(data) {
			continue
		}

		signal, err := dec.Decode(ctx, data, contentTypeHint)
		if err == nil {
			return signal, nil
		}
		if !errors.Is(err, ErrDecode) {
			return nil, err
		}

		logger.Debug("Decoder rejected input, trying next", logging.Fields{
			"decoder_index": i,
			"error":         err.Error(),
		})
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: unrecognized audio format", ErrDecode)
	}
	return nil, lastErr
}
