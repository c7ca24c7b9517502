package windowing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	got, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeHann, got)

	got, err = ParseType(" Hamming ")
	require.NoError(t, err)
	assert.Equal(t, TypeHamming, got)

	_, err = ParseType("kaiser")
	assert.Error(t, err)
}

func TestHannPeriodic(t *testing.T) {
	w, err := New(TypeHann, 8)
	require.NoError(t, err)

	coeffs := w.Coefficients()
	require.Len(t, coeffs, 8)
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 1.0, coeffs[4], 1e-12)
	// Periodic Hann is symmetric around size/2
	assert.InDelta(t, coeffs[1], coeffs[7], 1e-12)
	assert.InDelta(t, coeffs[3], coeffs[5], 1e-12)
}

func TestHannSymmetricEndpoints(t *testing.T) {
	coeffs := hannCoefficients(9, true)
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 0.0, coeffs[8], 1e-12)
	assert.InDelta(t, 1.0, coeffs[4], 1e-12)
}

func TestWindowTypes(t *testing.T) {
	for _, wt := range []Type{TypeHann, TypeHamming, TypeBlackman, TypeRectangular} {
		t.Run(string(wt), func(t *testing.T) {
			w, err := New(wt, 64)
			require.NoError(t, err)
			assert.Equal(t, wt, w.Type())
			assert.Equal(t, 64, w.Size())
			for i, c := range w.Coefficients() {
				assert.False(t, math.IsNaN(c), "coefficient %d is NaN", i)
				assert.GreaterOrEqual(t, c, -1e-12)
				assert.LessOrEqual(t, c, 1.0+1e-12)
			}
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(TypeHann, 0)
	assert.Error(t, err)

	_, err = New(Type("triangle"), 16)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	w, err := New(TypeRectangular, 4)
	require.NoError(t, err)

	frame := []float64{1, 2, 3, 4}
	out, err := w.Apply(frame)
	require.NoError(t, err)
	assert.Equal(t, frame, out)

	out[0] = 100
	assert.Equal(t, 1.0, frame[0], "Apply must not alias its input")
}

func TestApplyLengthMismatch(t *testing.T) {
	w, err := New(TypeHann, 4)
	require.NoError(t, err)

	_, err = w.Apply([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	err = w.ApplyInPlace(make([]float64, 5))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestApplyInPlace(t *testing.T) {
	w, err := New(TypeHann, 4)
	require.NoError(t, err)

	buf := []float64{1, 1, 1, 1}
	require.NoError(t, w.ApplyInPlace(buf))
	assert.Equal(t, w.Coefficients(), buf)
}
