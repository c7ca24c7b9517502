package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-embed/internal/server"
	"github.com/RyanBlaney/sonido-embed/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP embedding service",
		Long: `Run the HTTP embedding service.

Endpoints:
  GET  /                 service message, embedding dimension and version
  GET  /healthz          liveness probe
  POST /process-audio/   multipart upload (field "file") -> {"embedding": [...]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			extractor, err := newExtractor(cfg)
			if err != nil {
				return err
			}

			decoder := cfg.Decoder
			if err := checkFFmpeg(&decoder); err != nil {
				logging.Warn("Compressed formats will be rejected", logging.Fields{
					"component": "cli",
					"error":     err.Error(),
				})
			}

			srv := server.New(extractor, server.Options{
				MaxUploadBytes: cfg.MaxUploadBytes,
				RequestTimeout: cfg.RequestTimeout,
				Workers:        cfg.Workers,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx, cfg.ListenAddr, shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SONIDO_LISTEN_ADDR)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests")

	return cmd
}

// contextOrBackground guards against commands executed without a context
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
