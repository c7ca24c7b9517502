// Package embedding turns audio into fixed-length timbral embeddings.
//
// An Extractor frames the signal, computes MFCC and spectral contrast per
// frame, reduces each feature family to its per-coefficient mean and
// population standard deviation, and concatenates the min/max normalized
// statistics into a Vector of Config.Dimension() values.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-embed/algorithms/common"
	"github.com/RyanBlaney/sonido-embed/algorithms/filters"
	"github.com/RyanBlaney/sonido-embed/algorithms/framing"
	"github.com/RyanBlaney/sonido-embed/algorithms/spectral"
	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/algorithms/windowing"
	"github.com/RyanBlaney/sonido-embed/logging"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

// Extractor computes embeddings. All engines are built once by NewExtractor
// and only read afterwards, so an Extractor is safe for concurrent use.
type Extractor struct {
	config   Config
	decoder  transcode.Decoder
	window   *windowing.Window
	fft      *spectral.FFT
	mfcc     *spectral.MFCC
	contrast *spectral.SpectralContrast
	logger   logging.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for extraction events
func WithLogger(logger logging.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Analysis is the full result of one extraction
type Analysis struct {
	Frames    int                    `json:"frames"`
	Duration  time.Duration          `json:"duration"`
	MFCC      *stats.AggregatedStats `json:"mfcc"`
	Contrast  *stats.AggregatedStats `json:"contrast"`
	Embedding Vector                 `json:"embedding"`
}

// NewExtractor validates cfg and builds the window, mel filter bank, DCT and
// contrast band tables. decoder may be nil if only ExtractSignal is used.
func NewExtractor(cfg Config, decoder transcode.Decoder, opts ...Option) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	windowType, err := windowing.ParseType(cfg.Window)
	if err != nil {
		return nil, newError(KindConfiguration, "config", err)
	}
	window, err := windowing.New(windowType, cfg.FrameSize)
	if err != nil {
		return nil, newError(KindConfiguration, "config", err)
	}

	mfcc, err := spectral.NewMFCC(cfg.FrameSize, cfg.SampleRate, cfg.MFCC)
	if err != nil {
		return nil, newError(KindConfiguration, "config", fmt.Errorf("mfcc: %w", err))
	}

	contrast, err := spectral.NewSpectralContrast(cfg.FrameSize, cfg.SampleRate, cfg.Contrast)
	if err != nil {
		return nil, newError(KindConfiguration, "config", fmt.Errorf("spectral contrast: %w", err))
	}

	// Store the effective parameters so Version reflects clamping
	cfg.MFCC = mfcc.Params()
	cfg.Contrast = contrast.Params()

	e := &Extractor{
		config:   cfg,
		decoder:  decoder,
		window:   window,
		fft:      spectral.NewFFT(),
		mfcc:     mfcc,
		contrast: contrast,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// log returns the configured logger, falling back to the global one so
// SetGlobalLogger after construction still takes effect
func (e *Extractor) log() logging.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logging.WithFields(logging.Fields{
		"component": "embedding_extractor",
	})
}

// Config returns the effective configuration
func (e *Extractor) Config() Config {
	return e.config
}

// Dimension returns the length of the vectors this extractor produces
func (e *Extractor) Dimension() int {
	return e.config.Dimension()
}

// Version returns the feature convention identifier
func (e *Extractor) Version() string {
	return e.config.Version()
}

// Extract decodes data and returns its embedding
func (e *Extractor) Extract(ctx context.Context, data []byte, contentTypeHint string) (Vector, error) {
	analysis, err := e.Analyze(ctx, data, contentTypeHint)
	if err != nil {
		return nil, err
	}
	return analysis.Embedding, nil
}

// Analyze decodes data and returns the embedding with its intermediate statistics
func (e *Extractor) Analyze(ctx context.Context, data []byte, contentTypeHint string) (*Analysis, error) {
	if e.decoder == nil {
		return nil, newError(KindInternal, "decode", errors.New("no decoder configured"))
	}

	signal, err := e.decoder.Decode(ctx, data, contentTypeHint)
	if err != nil {
		return nil, wrap("decode", err)
	}

	return e.AnalyzeSignal(ctx, signal)
}

// ExtractSignal returns the embedding of an already decoded signal
func (e *Extractor) ExtractSignal(ctx context.Context, signal *transcode.AudioSignal) (Vector, error) {
	analysis, err := e.AnalyzeSignal(ctx, signal)
	if err != nil {
		return nil, err
	}
	return analysis.Embedding, nil
}

// AnalyzeSignal runs the feature pipeline on a decoded signal
func (e *Extractor) AnalyzeSignal(ctx context.Context, signal *transcode.AudioSignal) (*Analysis, error) {
	logger := e.log().WithContext(ctx).WithFields(logging.Fields{
		"function": "AnalyzeSignal",
	})

	if err := signal.Validate(); err != nil {
		return nil, wrap("validate", err)
	}

	samples := signal.Samples
	if signal.SampleRate != e.config.SampleRate {
		logger.Debug("Resampling signal to analysis rate", logging.Fields{
			"from": signal.SampleRate,
			"to":   e.config.SampleRate,
		})
		resampled, err := transcode.Resample(samples, signal.SampleRate, e.config.SampleRate)
		if err != nil {
			return nil, newError(KindInternal, "resample", err)
		}
		samples = resampled
	}

	samples, err := e.preprocess(samples)
	if err != nil {
		return nil, newError(KindInternal, "preprocess", err)
	}

	if len(samples) < e.config.FrameSize {
		return nil, newError(KindValidation, "frame", fmt.Errorf("%w: got %d samples, need at least %d",
			ErrInsufficientAudio, len(samples), e.config.FrameSize))
	}

	startTime := time.Now()

	mfccRows, contrastRows, err := e.computeFrames(ctx, samples)
	if err != nil {
		return nil, wrap("features", err)
	}

	mfccStats, err := stats.Aggregate(mfccRows)
	if err != nil {
		return nil, wrap("aggregate", err)
	}
	contrastStats, err := stats.Aggregate(contrastRows)
	if err != nil {
		return nil, wrap("aggregate", err)
	}

	for _, part := range []struct {
		name   string
		values []float64
	}{
		{"mfcc mean", mfccStats.Mean},
		{"mfcc std", mfccStats.Std},
		{"contrast mean", contrastStats.Mean},
		{"contrast std", contrastStats.Std},
	} {
		if i := common.FirstNonFinite(part.values); i >= 0 {
			return nil, newError(KindComputation, "aggregate", fmt.Errorf("%w: %s[%d]", ErrNonFinite, part.name, i))
		}
	}

	vector, err := Build(mfccStats, contrastStats)
	if err != nil {
		return nil, newError(KindInternal, "build", err)
	}
	if i := common.FirstNonFinite(vector); i >= 0 {
		return nil, newError(KindComputation, "build", fmt.Errorf("%w: embedding[%d]", ErrNonFinite, i))
	}

	logger.Debug("Embedding computed", logging.Fields{
		"frames":       len(mfccRows),
		"samples":      len(samples),
		"dimension":    len(vector),
		"compute_time": time.Since(startTime).Seconds(),
	})

	return &Analysis{
		Frames:    len(mfccRows),
		Duration:  time.Duration(len(samples)) * time.Second / time.Duration(e.config.SampleRate),
		MFCC:      mfccStats,
		Contrast:  contrastStats,
		Embedding: vector,
	}, nil
}

// preprocess applies the optional DC blocker and pre-emphasis. Filters keep
// state, so each call gets fresh ones.
func (e *Extractor) preprocess(samples []float64) ([]float64, error) {
	if e.config.RemoveDC {
		dc, err := filters.NewDCRemovalWithCutoff(e.config.SampleRate, filters.DefaultDCCutoff)
		if err != nil {
			return nil, err
		}
		samples = dc.ProcessBuffer(samples)
	}
	if e.config.PreEmphasis > 0 {
		pe, err := filters.NewPreEmphasis(e.config.PreEmphasis)
		if err != nil {
			return nil, err
		}
		samples = pe.ProcessBuffer(samples)
	}
	return samples, nil
}

type frameJob struct {
	index int
	frame []float64
}

// computeFrames fills one MFCC row and one contrast row per frame. Frames are
// spread over a fixed set of goroutines; each result is stored at its frame
// index, so the matrices do not depend on scheduling.
func (e *Extractor) computeFrames(ctx context.Context, samples []float64) ([][]float64, [][]float64, error) {
	numFrames := framing.Count(len(samples), e.config.FrameSize, e.config.HopSize)
	mfccRows := make([][]float64, numFrames)
	contrastRows := make([][]float64, numFrames)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		firstErr error
		errOnce  sync.Once
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	jobs := make(chan frameJob)
	var wg sync.WaitGroup

	for range e.workerCount(numFrames) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			buf := make([]float64, e.config.FrameSize)

			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}

				copy(buf, job.frame)
				if err := e.window.ApplyInPlace(buf); err != nil {
					fail(newError(KindInternal, "window", err))
					continue
				}

				magnitude := e.fft.MagnitudeSpectrum(buf)

				mfcc, err := e.mfcc.Compute(magnitude)
				if err != nil {
					fail(newError(KindInternal, "mfcc", err))
					continue
				}
				contrast, err := e.contrast.Compute(magnitude)
				if err != nil {
					fail(newError(KindInternal, "spectral_contrast", err))
					continue
				}

				mfccRows[job.index] = mfcc.MFCC
				contrastRows[job.index] = contrast.Contrast
			}
		}()
	}

	// Send jobs to workers, stopping early on cancellation
	for idx, frame := range framing.Frames(samples, e.config.FrameSize, e.config.HopSize) {
		select {
		case jobs <- frameJob{index: idx, frame: frame}:
			continue
		case <-ctx.Done():
		}
		break
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return mfccRows, contrastRows, nil
}

// workerCount picks the number of frame workers for the workload
func (e *Extractor) workerCount(numFrames int) int {
	if e.config.FrameWorkers > 0 {
		return max(1, min(e.config.FrameWorkers, numFrames))
	}

	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}
	if numFrames < 1000 {
		return min(numCPU, 8)
	}
	return numCPU
}
