// Package config loads the service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-embed/embedding"
	"github.com/RyanBlaney/sonido-embed/logging"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

const (
	DefaultListenAddr     = ":8000"
	DefaultLogLevel       = "info"
	DefaultMaxUploadBytes = 100 << 20
	DefaultRequestTimeout = 2 * time.Minute
	DefaultDotEnvPath     = ".env"
)

// Config holds the service configuration
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	LogLevel       string        `yaml:"log_level"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Workers        int           `yaml:"workers"` // concurrent extractions, 0 = NumCPU
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Embedding embedding.Config        `yaml:"embedding"`
	Decoder   transcode.DecoderConfig `yaml:"decoder"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ListenAddr:     DefaultListenAddr,
		LogLevel:       DefaultLogLevel,
		MaxUploadBytes: DefaultMaxUploadBytes,
		RequestTimeout: DefaultRequestTimeout,
		Embedding:      embedding.DefaultConfig(),
		Decoder:        *transcode.DefaultDecoderConfig(),
	}
}

// Validate performs basic sanity checks on the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("config: listen address required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config: request timeout must not be negative")
	}
	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("config: embedding: %w", err)
	}
	if err := c.Decoder.Validate(); err != nil {
		return fmt.Errorf("config: decoder: %w", err)
	}
	if c.Decoder.TargetSampleRate != c.Embedding.SampleRate {
		return fmt.Errorf("config: decoder sample rate %d differs from embedding sample rate %d",
			c.Decoder.TargetSampleRate, c.Embedding.SampleRate)
	}
	return nil
}

// Level returns the parsed log level
func (c Config) Level() logging.Level {
	// unknown levels were rejected by Validate; ParseLevel falls back to info
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
