package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestPreEmphasis(t *testing.T) {
	pe, err := NewPreEmphasis(0.5)
	require.NoError(t, err)

	out := pe.ProcessBuffer([]float64{1, 1, 1, 2})
	assert.Equal(t, []float64{1, 0.5, 0.5, 1.5}, out)

	// State carries across buffers
	assert.Equal(t, []float64{1}, pe.ProcessBuffer([]float64{2}))

	pe.Reset()
	assert.Equal(t, []float64{2}, pe.ProcessBuffer([]float64{2}))
}

func TestPreEmphasisCoefficient(t *testing.T) {
	for _, c := range []float64{-0.1, 1, 1.5} {
		_, err := NewPreEmphasis(c)
		assert.Error(t, err, "coefficient %g", c)
	}

	pe, err := NewPreEmphasis(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, -1, 4}, pe.ProcessBuffer([]float64{3, -1, 4}))
	assert.Equal(t, 0.0, pe.Coefficient())
}

func TestDCRemovalRemovesOffset(t *testing.T) {
	dc, err := NewDCRemovalWithCutoff(44100, DefaultDCCutoff)
	require.NoError(t, err)
	assert.Greater(t, dc.Pole(), 0.99)
	assert.Less(t, dc.Pole(), 1.0)

	input := make([]float64, 44100)
	for i := range input {
		input[i] = 0.5
	}
	out := dc.ProcessBuffer(input)

	// The step decays; after a second only a negligible residue is left
	tail := out[len(out)-1000:]
	assert.Less(t, floats.Max(tail), 1e-6)
	assert.Equal(t, 0.5, out[0])
}

func TestDCRemovalRejectsBadCutoff(t *testing.T) {
	_, err := NewDCRemovalWithCutoff(0, 20)
	assert.Error(t, err)
	_, err = NewDCRemovalWithCutoff(16000, 0)
	assert.Error(t, err)
	_, err = NewDCRemovalWithCutoff(16000, 8000)
	assert.Error(t, err)

	dc, err := NewDCRemovalWithCutoff(16000, 20)
	require.NoError(t, err)
	dc.ProcessBuffer([]float64{1, 2, 3})
	dc.Reset()
	assert.Equal(t, []float64{1}, dc.ProcessBuffer([]float64{1}))
}
