package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-embed/embedding"
	"github.com/RyanBlaney/sonido-embed/internal/config"
	"github.com/RyanBlaney/sonido-embed/logging"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

// rootOptions holds the global flags
type rootOptions struct {
	configPath string
	logLevel   string
	lookup     func(string) (string, bool)
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.LookupEnv)
}

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	opts := &rootOptions{lookup: lookup}

	root := &cobra.Command{
		Use:   "sonido-embed",
		Short: "Timbral audio embeddings",
		Long: `sonido-embed - computes fixed-length timbral embeddings of audio.

Each embedding holds the min/max normalized mean and standard deviation of
per-frame MFCC and spectral contrast features (38 values by default).

Examples:
  # Run the HTTP service
  sonido-embed serve --addr :8000

  # Print the embedding of a file
  sonido-embed extract song.mp3 --json

  # Compare two files
  sonido-embed compare a.wav b.flac`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides SONIDO_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newExtractCmd(opts),
		newCompareCmd(opts),
		newInfoCmd(opts),
	)

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig applies the global flags on top of the environment
func (o *rootOptions) loadConfig() (config.Config, error) {
	lookup := o.lookup
	if o.configPath != "" || o.logLevel != "" {
		base := o.lookup
		lookup = func(key string) (string, bool) {
			switch {
			case key == "SONIDO_CONFIG" && o.configPath != "":
				return o.configPath, true
			case key == "SONIDO_LOG_LEVEL" && o.logLevel != "":
				return o.logLevel, true
			}
			return base(key)
		}
	}

	cfg, err := config.Loader{Lookup: lookup}.Load()
	if err != nil {
		return config.Config{}, err
	}
	logging.SetLevel(cfg.Level())
	return cfg, nil
}

// setupCLILogging keeps stdout for command output
func setupCLILogging(cmd *cobra.Command) {
	logging.SetGlobalLogger(logging.NewDefaultLoggerTo(cmd.ErrOrStderr()))
}

// newExtractor builds the decoder chain and extractor from cfg
func newExtractor(cfg config.Config) (*embedding.Extractor, error) {
	decoderConfig := cfg.Decoder
	extractor, err := embedding.NewExtractor(cfg.Embedding, transcode.NewDefaultDecoder(&decoderConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return extractor, nil
}
