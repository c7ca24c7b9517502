package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-embed/algorithms/spectral"
	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

func TestConfigDimensionAndVersion(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 38, cfg.Dimension())
	assert.Equal(t, "mfcc13-mel40-contrast6-hann-f2048-h1024-sr44100", cfg.Version())
	assert.NoError(t, cfg.Validate())

	// zero sizes follow the spectral defaults
	assert.Equal(t, 38, Config{FrameSize: 2048, HopSize: 1024, SampleRate: 44100}.Dimension())

	cfg.MFCC.UseLiftering = true
	assert.Contains(t, cfg.Version(), "-lifter")
}

func TestConfigVersionTracksFeatureParams(t *testing.T) {
	base := DefaultConfig().Version()

	// zero values and nyquist clamping do not change the convention
	zeroed := DefaultConfig()
	zeroed.MFCC.LogFloor = 0
	zeroed.Contrast = spectral.SpectralContrastParams{}
	assert.Equal(t, base, zeroed.Version())

	low := DefaultConfig()
	low.SampleRate = 16000
	clamped := low
	clamped.MFCC.HighFreq = 8000
	clamped.Contrast.HighFreq = 8000
	assert.Equal(t, low.Version(), clamped.Version())
	assert.NotContains(t, low.Version(), "hz")

	tests := []struct {
		name   string
		modify func(*Config)
		suffix string
	}{
		{"mfcc low freq", func(c *Config) { c.MFCC.LowFreq = 50 }, "-melhz50-11000"},
		{"mfcc high freq", func(c *Config) { c.MFCC.HighFreq = 8000 }, "-melhz0-8000"},
		{"mfcc log floor", func(c *Config) { c.MFCC.LogFloor = 1e-6 }, "-mfloor1e-06"},
		{"lifter coefficient", func(c *Config) { c.MFCC.UseLiftering, c.MFCC.LifterCoeff = true, 30 }, "-lifter30"},
		{"contrast range", func(c *Config) { c.Contrast.LowFreq, c.Contrast.HighFreq = 100, 8000 }, "-contrasthz100-8000"},
		{"neighbour ratio", func(c *Config) { c.Contrast.NeighbourRatio = 0.2 }, "-q0.2"},
		{"contrast log floor", func(c *Config) { c.Contrast.LogFloor = 1e-8 }, "-cfloor1e-08"},
	}

	seen := map[string]string{base: "default"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			v := cfg.Version()
			assert.Equal(t, base+tt.suffix, v)
			_, dup := seen[v]
			assert.False(t, dup, "version %q already used", v)
			seen[v] = tt.name
		})
	}
}

func TestConfigLayout(t *testing.T) {
	layout := DefaultConfig().Layout()
	assert.Equal(t, Segment{0, 13}, layout.MFCCMean)
	assert.Equal(t, Segment{13, 13}, layout.MFCCStd)
	assert.Equal(t, Segment{26, 6}, layout.ContrastMean)
	assert.Equal(t, Segment{32, 6}, layout.ContrastStd)
	assert.Equal(t, 38, layout.Dimension)
}

func TestBuild(t *testing.T) {
	mfcc := &stats.AggregatedStats{Mean: []float64{-2, 0, 2}, Std: []float64{1, 1, 1}}
	contrast := &stats.AggregatedStats{Mean: []float64{5, 10}, Std: []float64{0, 3}}

	v, err := Build(mfcc, contrast)
	require.NoError(t, err)
	assert.Equal(t, Vector{0, 0.5, 1, 0, 0, 0, 0, 1, 0, 1}, v)

	_, err = Build(nil, contrast)
	assert.Error(t, err)

	_, err = Build(&stats.AggregatedStats{Mean: []float64{1}, Std: nil}, contrast)
	assert.Error(t, err)

	assert.Equal(t, []float32{0, 0.5, 1}, Vector{0, 0.5, 1}.Float32())
}

func TestSimilarity(t *testing.T) {
	a := Vector{0.1, 0.5, 0.9}

	sim, err := Similarity(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-12)

	d, err := Distance(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-12)

	sim, err = Similarity(Vector{1, 0}, Vector{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-12)

	_, err = Similarity(a, Vector{1})
	assert.Error(t, err)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, "ValidationError", KindValidation.String())
	assert.Equal(t, "ConfigurationError", KindConfiguration.String())
	assert.Equal(t, "ComputationError", KindComputation.String())
	assert.Equal(t, "InternalError", KindInternal.String())

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("wrapped: %w", transcode.ErrDecode)))
	assert.Equal(t, KindValidation, KindOf(stats.ErrEmptyMatrix))
	assert.Equal(t, KindComputation, KindOf(ErrNonFinite))
	assert.False(t, IsValidation(nil))

	inner := errors.New("the reason")
	err := fmt.Errorf("outer: %w", &Error{Kind: KindComputation, Op: "mfcc", Err: inner})
	assert.Equal(t, KindComputation, KindOf(err))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "outer: the reason", err.Error())

	// already classified errors keep their kind
	classified := &Error{Kind: KindConfiguration, Err: transcode.ErrDecode}
	assert.Same(t, classified, wrap("decode", classified))
	assert.Nil(t, wrap("decode", nil))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	assert.Equal(t, 2, pool.Size())

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Submit(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 0, pool.InFlight())
}

func TestPoolSubmitHonoursContext(t *testing.T) {
	pool := NewPool(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Submit(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := pool.Submit(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	close(release)

	boom := errors.New("boom")
	assert.Eventually(t, func() bool {
		return errors.Is(pool.Submit(context.Background(), func(context.Context) error { return boom }), boom)
	}, time.Second, 5*time.Millisecond)

	assert.Positive(t, NewPool(0).Size())
}
