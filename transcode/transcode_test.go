package transcode

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeWAV writes interleaved 16-bit samples through the go-audio encoder
// and returns the file bytes.
func encodeWAV(t *testing.T, samples []int, sampleRate, channels int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, wavFormatPCM)
	err = enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func toneSamples(n, sampleRate int, freq float64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(16000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestAudioSignalValidate(t *testing.T) {
	s := NewAudioSignal([]float64{0, 0.5, -0.5, 0}, 4, "test")
	assert.NoError(t, s.Validate())
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, "1s", s.Duration.String())

	assert.ErrorIs(t, NewAudioSignal(nil, 44100, "").Validate(), ErrDecode)
	assert.ErrorIs(t, NewAudioSignal([]float64{1}, 0, "").Validate(), ErrDecode)
	assert.ErrorIs(t, NewAudioSignal([]float64{0, math.NaN()}, 8000, "").Validate(), ErrDecode)
	assert.ErrorIs(t, NewAudioSignal([]float64{math.Inf(1)}, 8000, "").Validate(), ErrDecode)

	var nilSignal *AudioSignal
	assert.ErrorIs(t, nilSignal.Validate(), ErrDecode)
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, Downmix([]float64{1, 2}, 1))
	assert.Equal(t, []float64{0.5, 2}, Downmix([]float64{0, 1, 1, 3}, 2))
	// trailing partial frame ignored
	assert.Equal(t, []float64{0.5}, Downmix([]float64{0, 1, 7}, 2))
}

func TestResample(t *testing.T) {
	in := make([]float64, 8000)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 8000)
	}

	same, err := Resample(in, 8000, 8000)
	require.NoError(t, err)
	assert.Equal(t, in, same)

	out, err := Resample(in, 8000, 16000)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
	}

	_, err = Resample(in, 0, 16000)
	assert.Error(t, err)
}

func TestResampleKeepsDuration(t *testing.T) {
	tests := []struct {
		n, from, to int
	}{
		{48000, 48000, 44100},
		{4800, 48000, 44100},
		{2200, 48000, 44100},
		{8000, 8000, 16000},
		{22050, 22050, 44100},
	}

	for _, tt := range tests {
		in := make([]float64, tt.n)
		for i := range in {
			in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(tt.from))
		}

		out, err := Resample(in, tt.from, tt.to)
		require.NoError(t, err)

		want := float64(tt.n) * float64(tt.to) / float64(tt.from)
		assert.InDelta(t, want, float64(len(out)), math.Max(16, want/200),
			"%d samples %d -> %d Hz", tt.n, tt.from, tt.to)
	}
}

func TestWAVDecoderMono(t *testing.T) {
	data := encodeWAV(t, toneSamples(4410, 44100, 440), 44100, 1)

	dec := NewWAVDecoder(44100)
	require.True(t, dec.Accepts(data))

	signal, err := dec.Decode(context.Background(), data, "audio/wav")
	require.NoError(t, err)
	require.NoError(t, signal.Validate())
	assert.Equal(t, 44100, signal.SampleRate)
	assert.Equal(t, 4410, signal.Len())
	assert.Equal(t, "wav", signal.Source)

	for _, v := range signal.Samples {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
	assert.InDelta(t, 16000.0/32768.0*math.Sin(2*math.Pi*440*10/44100), signal.Samples[10], 1e-4)
}

func TestWAVDecoderStereoDownmix(t *testing.T) {
	// left = +8000, right = -8000 cancels to silence
	interleaved := make([]int, 2000)
	for i := range interleaved {
		if i%2 == 0 {
			interleaved[i] = 8000
		} else {
			interleaved[i] = -8000
		}
	}
	data := encodeWAV(t, interleaved, 22050, 2)

	signal, err := NewWAVDecoder(22050).Decode(context.Background(), data, "")
	require.NoError(t, err)
	assert.Equal(t, 1000, signal.Len())
	for _, v := range signal.Samples {
		assert.Zero(t, v)
	}
}

func TestWAVDecoderResamples(t *testing.T) {
	data := encodeWAV(t, toneSamples(8000, 8000, 440), 8000, 1)

	signal, err := NewWAVDecoder(16000).Decode(context.Background(), data, "")
	require.NoError(t, err)
	assert.Equal(t, 16000, signal.SampleRate)
	assert.NotEmpty(t, signal.Samples)
}

func TestWAVDecoderRejectsGarbage(t *testing.T) {
	dec := NewWAVDecoder(44100)

	_, err := dec.Decode(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrDecode)

	garbage := []byte("this is definitely not audio")
	assert.False(t, dec.Accepts(garbage))
	_, err = dec.Decode(context.Background(), garbage, "text/plain")
	assert.ErrorIs(t, err, ErrDecode)
}

type stubDecoder struct {
	accepts bool
	signal  *AudioSignal
	err     error
	calls   int
}

func (s *stubDecoder) Accepts([]byte) bool { return s.accepts }

func (s *stubDecoder) Decode(context.Context, []byte, string) (*AudioSignal, error) {
	s.calls++
	return s.signal, s.err
}

func TestChainDecoder(t *testing.T) {
	ok := NewAudioSignal([]float64{1, 2, 3}, 8000, "stub")

	t.Run("skips decoders that do not accept", func(t *testing.T) {
		first := &stubDecoder{accepts: false}
		second := &stubDecoder{accepts: true, signal: ok}
		got, err := NewChainDecoder(first, second).Decode(context.Background(), []byte{1}, "")
		require.NoError(t, err)
		assert.Same(t, ok, got)
		assert.Zero(t, first.calls)
	})

	t.Run("falls through on decode errors", func(t *testing.T) {
		first := &stubDecoder{accepts: true, err: ErrDecode}
		second := &stubDecoder{accepts: true, signal: ok}
		got, err := NewChainDecoder(first, second).Decode(context.Background(), []byte{1}, "")
		require.NoError(t, err)
		assert.Same(t, ok, got)
		assert.Equal(t, 1, first.calls)
	})

	t.Run("stops on other errors", func(t *testing.T) {
		boom := errors.New("boom")
		first := &stubDecoder{accepts: true, err: boom}
		second := &stubDecoder{accepts: true, signal: ok}
		_, err := NewChainDecoder(first, second).Decode(context.Background(), []byte{1}, "")
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, second.calls)
	})

	t.Run("nothing accepts", func(t *testing.T) {
		_, err := NewChainDecoder(&stubDecoder{}).Decode(context.Background(), []byte{1}, "")
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewChainDecoder().Decode(context.Background(), nil, "")
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestParseFFprobeOutput(t *testing.T) {
	meta, err := parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2,"duration":"3.5","bit_rate":"128000"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, "mp3", meta.Codec)
	assert.InDelta(t, 3.5, meta.Duration, 1e-9)
	assert.Equal(t, 128000, meta.Bitrate)

	for _, bad := range []string{
		`not json`,
		`{"streams":[]}`,
		`{"streams":[{"codec_type":"video","channels":1}]}`,
		`{"streams":[{"codec_type":"audio","channels":0}]}`,
	} {
		_, err := parseFFprobeOutput([]byte(bad))
		assert.ErrorIs(t, err, ErrDecode, bad)
	}
}

func TestBytesToFloat64(t *testing.T) {
	assert.Nil(t, bytesToFloat64([]byte{1, 2, 3}))

	buf := make([]byte, 17) // two samples plus a stray byte
	bits := math.Float64bits(0.25)
	for i := range 8 {
		buf[i] = byte(bits >> (8 * i))
	}
	got := bytesToFloat64(buf)
	assert.Equal(t, []float64{0.25, 0}, got)
}

func TestDecoderConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultDecoderConfig().Validate())

	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultDecoderConfig()
	cfg.ResampleQuality = "ultra"
	assert.Error(t, cfg.Validate())

	cfg = DefaultDecoderConfig()
	cfg.EnableNormalization = true
	cfg.NormalizationMethod = "magic"
	assert.Error(t, cfg.Validate())
}

func TestFFmpegDecoderMissingBinary(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.FFprobePath = filepath.Join(t.TempDir(), "no-such-ffprobe")
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")

	dec := NewFFmpegDecoder(cfg)
	assert.ErrorIs(t, dec.Available(), ErrDecoderUnavailable)

	_, err := dec.Decode(context.Background(), []byte("abc"), "")
	assert.ErrorIs(t, err, ErrDecoderUnavailable)
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}
}

func TestFFmpegDecoderWAV(t *testing.T) {
	requireFFmpeg(t)
	data := encodeWAV(t, toneSamples(22050, 22050, 440), 22050, 1)

	for _, spool := range []bool{false, true} {
		cfg := DefaultDecoderConfig()
		cfg.SpoolToDisk = spool
		cfg.TempDir = t.TempDir()

		signal, err := NewFFmpegDecoder(cfg).Decode(context.Background(), data, "audio/wav")
		require.NoError(t, err)
		assert.Equal(t, 44100, signal.SampleRate)
		assert.InDelta(t, 44100, signal.Len(), 200)
		assert.NoError(t, signal.Validate())

		if spool {
			entries, err := os.ReadDir(cfg.TempDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "spool directory left behind")
		}
	}
}

func TestFFmpegDecoderGarbage(t *testing.T) {
	requireFFmpeg(t)

	_, err := NewFFmpegDecoder(nil).Decode(context.Background(), []byte("plain text, not audio"), "text/plain")
	assert.ErrorIs(t, err, ErrDecode)
}
