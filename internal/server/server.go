// Package server exposes the embedding extractor over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RyanBlaney/sonido-embed/embedding"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// RootMessage is returned by GET /
const RootMessage = "Audio processing service is running"

// Embedder is the part of embedding.Extractor the server depends on
type Embedder interface {
	Extract(ctx context.Context, data []byte, contentTypeHint string) (embedding.Vector, error)
	Dimension() int
	Version() string
}

// Options configures a Server
type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration // 0 disables the per-request deadline
	Workers        int           // concurrent extractions, 0 = NumCPU
}

// Server routes HTTP requests to an Embedder through a bounded pool
type Server struct {
	embedder Embedder
	pool     *embedding.Pool
	opts     Options
	router   chi.Router
}

// New creates a server and registers its routes
func New(embedder Embedder, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}

	s := &Server{
		embedder: embedder,
		pool:     embedding.NewPool(opts.Workers),
		opts:     opts,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Post("/process-audio/", s.handleProcessAudio)
	// Clients that drop the trailing slash get the same handler
	r.Post("/process-audio", s.handleProcessAudio)

	s.router = r
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	logger := logging.WithFields(logging.Fields{
		"component": "http_server",
		"addr":      addr,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logging.Fields{
			"embedding_dimension": s.embedder.Dimension(),
			"embedding_version":   s.embedder.Version(),
			"workers":             s.pool.Size(),
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
