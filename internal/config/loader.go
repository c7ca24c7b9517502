package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader builds a Config from, in increasing precedence: built-in defaults,
// a YAML file named by SONIDO_CONFIG, and SONIDO_* variables (plus PORT).
// Variables are looked up in the process environment first and then in a
// .env file, so .env only supplies variables the environment leaves unset,
// including SONIDO_CONFIG itself. Settings with no SONIDO_* variable come
// from YAML or the defaults only. Tests can override Lookup and ReadFile to
// inject deterministic inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
	// DotEnvPath is read unless SONIDO_ENV is "production". A missing file is
	// not an error. Defaults to ".env"; set to "-" to disable.
	DotEnvPath string
}

// Load retrieves the service configuration.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}
	if l.DotEnvPath == "" {
		l.DotEnvPath = DefaultDotEnvPath
	}

	lookup := l.Lookup
	if env, _ := lookup("SONIDO_ENV"); strings.TrimSpace(env) != "production" && l.DotEnvPath != "-" {
		dotenv, err := godotenv.Read(l.DotEnvPath)
		switch {
		case err == nil:
			lookup = withFallback(l.Lookup, dotenv)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.DotEnvPath, err)
		}
	}

	cfg := Default()

	if path, ok := lookup("SONIDO_CONFIG"); ok && strings.TrimSpace(path) != "" {
		if err := l.applyYAML(strings.TrimSpace(path), &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(lookup, &cfg); err != nil {
		return Config{}, err
	}

	// The decoder always produces audio at the analysis rate
	cfg.Decoder.TargetSampleRate = cfg.Embedding.SampleRate

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l Loader) applyYAML(path string, cfg *Config) error {
	raw, err := l.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// withFallback consults primary first so real environment variables win over
// the .env file
func withFallback(primary func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func applyEnv(lookup func(string) (string, bool), cfg *Config) error {
	overrideString(lookup, "SONIDO_LISTEN_ADDR", &cfg.ListenAddr)
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		if _, set := lookup("SONIDO_LISTEN_ADDR"); !set {
			cfg.ListenAddr = ":" + strings.TrimSpace(port)
		}
	}
	overrideString(lookup, "SONIDO_LOG_LEVEL", &cfg.LogLevel)
	overrideString(lookup, "SONIDO_WINDOW", &cfg.Embedding.Window)
	overrideString(lookup, "SONIDO_FFMPEG_PATH", &cfg.Decoder.FFmpegPath)
	overrideString(lookup, "SONIDO_FFPROBE_PATH", &cfg.Decoder.FFprobePath)
	overrideString(lookup, "SONIDO_TEMP_DIR", &cfg.Decoder.TempDir)

	ints := []struct {
		key    string
		target *int
	}{
		{"SONIDO_WORKERS", &cfg.Workers},
		{"SONIDO_FRAME_SIZE", &cfg.Embedding.FrameSize},
		{"SONIDO_HOP_SIZE", &cfg.Embedding.HopSize},
		{"SONIDO_SAMPLE_RATE", &cfg.Embedding.SampleRate},
		{"SONIDO_FRAME_WORKERS", &cfg.Embedding.FrameWorkers},
		{"SONIDO_MFCC_COEFFICIENTS", &cfg.Embedding.MFCC.NumCoefficients},
		{"SONIDO_MEL_FILTERS", &cfg.Embedding.MFCC.NumMelFilters},
		{"SONIDO_CONTRAST_BANDS", &cfg.Embedding.Contrast.NumBands},
	}
	for _, o := range ints {
		if err := overrideInt(lookup, o.key, o.target); err != nil {
			return err
		}
	}

	if err := overrideInt64(lookup, "SONIDO_MAX_UPLOAD_BYTES", &cfg.MaxUploadBytes); err != nil {
		return err
	}
	if err := overrideDuration(lookup, "SONIDO_REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := overrideDuration(lookup, "SONIDO_DECODE_TIMEOUT", &cfg.Decoder.Timeout); err != nil {
		return err
	}
	if err := overrideFloat(lookup, "SONIDO_PRE_EMPHASIS", &cfg.Embedding.PreEmphasis); err != nil {
		return err
	}
	if err := overrideBool(lookup, "SONIDO_REMOVE_DC", &cfg.Embedding.RemoveDC); err != nil {
		return err
	}
	return overrideBool(lookup, "SONIDO_SPOOL_TO_DISK", &cfg.Decoder.SpoolToDisk)
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt64(lookup func(string) (string, bool), key string, target *int64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideDuration(lookup func(string) (string, bool), key string, target *time.Duration) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}
