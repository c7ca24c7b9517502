package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-embed/logging"
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" yaml:"target_sample_rate"`
	MaxDuration      time.Duration `json:"max_duration" yaml:"max_duration"`
	ResampleQuality  string        `json:"resample_quality" yaml:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`           // Path to ffmpeg binary
	FFprobePath      string        `json:"ffprobe_path" yaml:"ffprobe_path"`         // Path to ffprobe binary
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`                   // Timeout for each ffmpeg invocation
	// SpoolToDisk hands ffmpeg a seekable file instead of stdin. Some
	// containers (mp4 with the moov atom at the end) cannot be read from a pipe.
	SpoolToDisk bool   `json:"spool_to_disk" yaml:"spool_to_disk"`
	TempDir     string `json:"temp_dir" yaml:"temp_dir"` // Parent of spool directories, "" for os.TempDir
	// Normalization options
	EnableNormalization bool    `json:"enable_normalization" yaml:"enable_normalization"`
	NormalizationMethod string  `json:"normalization_method" yaml:"normalization_method"` // "loudnorm", "dynaudnorm"
	TargetLUFS          float64 `json:"target_lufs" yaml:"target_lufs"`                   // -23.0 for broadcast
	TargetPeak          float64 `json:"target_peak" yaml:"target_peak"`                   // -2.0
	LoudnessRange       float64 `json:"loudness_range" yaml:"loudness_range"`             // 7.0 typical
}

// DefaultDecoderConfig returns default decoder configuration.
// Loudness normalization is off: the embedding is computed from the signal as
// uploaded.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate:    44100,
		MaxDuration:         0, // No limit
		ResampleQuality:     "high",
		FFmpegPath:          "ffmpeg",  // Assume in PATH
		FFprobePath:         "ffprobe", // Assume in PATH
		Timeout:             30 * time.Second,
		EnableNormalization: false,
		NormalizationMethod: "loudnorm",
		TargetLUFS:          -23.0, // EBU R128 standard
		TargetPeak:          -2.0,
		LoudnessRange:       7.0,
	}
}

// Validate validates the decoder configuration without touching the filesystem
func (c *DecoderConfig) Validate() error {
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", c.TargetSampleRate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", c.Timeout)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max duration must not be negative: %v", c.MaxDuration)
	}
	switch c.ResampleQuality {
	case "", "fast", "medium", "high":
	default:
		return fmt.Errorf("unknown resample quality %q", c.ResampleQuality)
	}
	if c.EnableNormalization {
		switch c.NormalizationMethod {
		case "loudnorm", "dynaudnorm":
		default:
			return fmt.Errorf("unknown normalization method %q", c.NormalizationMethod)
		}
	}
	return nil
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// FFmpegDecoder decodes any container ffmpeg understands into mono float64
// PCM at the configured rate. It keeps no state between calls.
type FFmpegDecoder struct {
	config *DecoderConfig
}

// NewFFmpegDecoder creates a new ffmpeg backed decoder
func NewFFmpegDecoder(config *DecoderConfig) *FFmpegDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &FFmpegDecoder{config: config}
}

// Decode probes and decodes data. Bytes go to ffmpeg over stdin unless
// SpoolToDisk is set, in which case they are written to a request-scoped file
// that is removed before Decode returns.
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte, contentTypeHint string) (*AudioSignal, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component":    "audio_decoder",
		"function":     "Decode",
		"data_size":    len(data),
		"content_type": contentTypeHint,
		"spool":        d.config.SpoolToDisk,
	})

	logger.Debug("Starting audio bytes decode")

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio data", ErrDecode)
	}

	input := "pipe:0"
	stdin := data

	if d.config.SpoolToDisk {
		path, cleanup, err := d.spool(data)
		if err != nil {
			logger.Error(err, "Failed to spool audio to disk")
			return nil, err
		}
		defer cleanup()

		input = path
		stdin = nil
	}

	metadata, err := d.probe(ctx, input, stdin)
	if err != nil {
		logger.Error(err, "Failed to probe audio metadata")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
		"input_format":      metadata.Format,
	})

	return d.decode(ctx, input, stdin, metadata, logger)
}

// spool writes data to a uniquely named file inside a private directory.
// The returned cleanup removes the directory and must always be called.
func (d *FFmpegDecoder) spool(data []byte) (string, func(), error) {
	dir, err := os.MkdirTemp(d.config.TempDir, "sonido-decode-")
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to create spool directory: %v", ErrDecoderUnavailable, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("Failed to remove spool directory", logging.Fields{
				"component": "audio_decoder",
				"dir":       dir,
				"error":     err.Error(),
			})
		}
	}

	path := filepath.Join(dir, uuid.NewString())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: failed to write spool file: %v", ErrDecoderUnavailable, err)
	}

	return path, cleanup, nil
}

// probe uses ffprobe to get input audio information
func (d *FFmpegDecoder) probe(ctx context.Context, input string, stdin []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		input,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// decode performs the actual audio decoding
func (d *FFmpegDecoder) decode(ctx context.Context, input string, stdin []byte, metadata *AudioMetadata, logger logging.Logger) (*AudioSignal, error) {
	args := append([]string{"-i", input}, d.buildFFmpegArgs(metadata)...)
	args = append(args, "pipe:1") // Output to stdout

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	startTime := time.Now()
	output, err := d.run(ctx, d.config.FFmpegPath, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no audio samples decoded", ErrDecode)
	}

	signal := NewAudioSignal(samples, d.config.TargetSampleRate, "ffmpeg")

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"input_sample_rate":  metadata.SampleRate,
		"input_channels":     metadata.Channels,
		"output_samples":     len(samples),
		"output_sample_rate": d.config.TargetSampleRate,
		"output_duration":    signal.Duration.Seconds(),
		"decode_time":        time.Since(startTime).Seconds(),
	})

	return signal, nil
}

// run executes a subprocess with the configured timeout and classifies
// failures: a missing binary is ErrDecoderUnavailable, a non-zero exit is
// ErrDecode since ffmpeg exits non-zero on data it cannot parse.
func (d *FFmpegDecoder) run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	output, err := cmd.Output()
	if err == nil {
		return output, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return nil, fmt.Errorf("%w: %s exited with %v, stderr: %s",
			ErrDecode, filepath.Base(binary), err, strings.TrimSpace(string(exitError.Stderr)))
	}

	return nil, fmt.Errorf("%w: %v", ErrDecoderUnavailable, err)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output: %v", ErrDecode, err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("%w: no audio streams found", ErrDecode)
	}

	stream := probe.Streams[0]

	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("%w: stream is not audio type: %s", ErrDecode, stream.CodecType)
	}

	// Missing numeric fields are common for piped input; leave them zero
	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("%w: invalid channel count: %d", ErrDecode, stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs builds the ffmpeg output arguments. Output is always mono
// f64le at the target rate.
func (d *FFmpegDecoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-vn",
		"-map", "0:a:0",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
	}

	var filters []string
	if metadata.SampleRate != d.config.TargetSampleRate {
		switch d.config.ResampleQuality {
		case "fast":
			filters = append(filters, "aresample=resampler=soxr:precision=16")
		case "medium":
			filters = append(filters, "aresample=resampler=soxr:precision=20")
		case "high":
			filters = append(filters, "aresample=resampler=soxr:precision=28")
		}
	}
	if d.config.EnableNormalization {
		if f := d.buildNormalizationFilter(); f != "" {
			filters = append(filters, f)
		}
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	return append(args, "-v", "error")
}

// buildNormalizationFilter builds the loudness filter for the configured method
func (d *FFmpegDecoder) buildNormalizationFilter() string {
	switch d.config.NormalizationMethod {
	case "loudnorm":
		// EBU R128 loudness normalization
		return fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f",
			d.config.TargetLUFS,
			d.config.TargetPeak,
			d.config.LoudnessRange)
	case "dynaudnorm":
		return "dynaudnorm=p=0.95:m=10:s=12"
	default:
		return ""
	}
}

// bytesToFloat64 converts raw float64 little-endian bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	// Trim to multiple of 8 bytes
	data = data[:len(data)-(len(data)%8)]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
	}
	return samples
}

// Available reports whether the ffmpeg and ffprobe binaries can be found
func (d *FFmpegDecoder) Available() error {
	for _, bin := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s not found: %v", ErrDecoderUnavailable, bin, err)
		}
	}
	return nil
}

// Config returns a copy of the decoder configuration
func (d *FFmpegDecoder) Config() DecoderConfig {
	return *d.config
}
