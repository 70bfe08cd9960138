package cvutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestPlaneRoundTrip(t *testing.T) {
	plane := ramp(4 * 5)

	m, err := PlaneToMat(plane, 4, 5)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 4, m.Rows())
	assert.Equal(t, 5, m.Cols())
	assert.Equal(t, 7.0, m.GetDoubleAt(1, 2))

	back, err := MatToPlane(m)
	require.NoError(t, err)
	assert.Equal(t, plane, back)
}

func TestPlaneToMat_LengthMismatch(t *testing.T) {
	_, err := PlaneToMat(ramp(10), 4, 5)
	assert.Error(t, err)

	_, err = PlaneToMat(nil, 0, 5)
	assert.Error(t, err)
}

func TestStackSplitRoundTrip(t *testing.T) {
	img := ramp(3 * 6 * 6)

	m, err := StackChannels(img, 3, 6, 6)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 3, m.Channels())

	back, err := SplitChannels(m)
	require.NoError(t, err)
	assert.Equal(t, img, back)
}

func TestGrayToMat8U(t *testing.T) {
	m, err := GrayToMat8U([]float64{0, 0.5, 1, 1}, 2, 2)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, uint8(0), m.GetUCharAt(0, 0))
	assert.Equal(t, uint8(128), m.GetUCharAt(0, 1))
	assert.Equal(t, uint8(255), m.GetUCharAt(1, 0))

	clipped, err := GrayToMat8U([]float64{-3, 12, 300, 254.6}, 2, 2)
	require.NoError(t, err)
	defer clipped.Close()

	assert.Equal(t, uint8(0), clipped.GetUCharAt(0, 0))
	assert.Equal(t, uint8(12), clipped.GetUCharAt(0, 1))
	assert.Equal(t, uint8(255), clipped.GetUCharAt(1, 0))
	assert.Equal(t, uint8(255), clipped.GetUCharAt(1, 1))
}

func TestGaussianSmooth(t *testing.T) {
	constant := make([]float64, 16*16)
	for i := range constant {
		constant[i] = 2.5
	}

	out, err := GaussianSmooth(constant, 16, 16, 2)
	require.NoError(t, err)
	require.Len(t, out, len(constant))
	for _, v := range out {
		assert.InDelta(t, 2.5, v, 1e-9)
	}

	impulse := make([]float64, 9*9)
	impulse[4*9+4] = 1
	blurred, err := GaussianSmooth(impulse, 9, 9, 1)
	require.NoError(t, err)
	assert.Less(t, blurred[4*9+4], 1.0)
	assert.InDelta(t, blurred[4*9+3], blurred[4*9+5], 1e-12)

	same, err := GaussianSmooth(impulse, 9, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, impulse, same)
}
