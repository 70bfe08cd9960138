package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

func solidImage(r, g, b float64) []float64 {
	img := make([]float64, ImageLen)
	for p := 0; p < PlaneLen; p++ {
		img[p] = r
		img[PlaneLen+p] = g
		img[2*PlaneLen+p] = b
	}
	return img
}

func batch(images ...[]float64) *mat.Dense {
	data := make([]float64, 0, len(images)*ImageLen)
	for _, img := range images {
		data = append(data, img...)
	}
	return mat.NewDense(len(images), ImageLen, data)
}

func TestGrayscale(t *testing.T) {
	images := batch(
		solidImage(-1, 0, 1),
		solidImage(3, 3, 3),
	)

	gray, err := Grayscale(images)
	require.NoError(t, err)

	rows, cols := gray.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, PlaneLen, cols)

	// global range [-1, 3]: first image -> (0 + .25 + .5)/3, second -> 1
	assert.InDelta(t, 0.25, gray.At(0, 0), 1e-12)
	assert.InDelta(t, 0.25, gray.At(0, PlaneLen-1), 1e-12)
	assert.InDelta(t, 1.0, gray.At(1, 17), 1e-12)
}

func TestGrayscale_DependsOnBatch(t *testing.T) {
	img := solidImage(1, 1, 1)

	alone, err := Grayscale(batch(img, solidImage(0, 0, 0)))
	require.NoError(t, err)
	withBrighter, err := Grayscale(batch(img, solidImage(0, 0, 0), solidImage(2, 2, 2)))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, alone.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, withBrighter.At(0, 0), 1e-12)
}

func TestGrayscale_ConstantBatch(t *testing.T) {
	gray, err := Grayscale(batch(solidImage(7, 7, 7), solidImage(7, 7, 7)))
	require.NoError(t, err)

	assert.Equal(t, 0.0, mat.Max(gray))
	assert.Equal(t, 0.0, mat.Min(gray))
}

func TestGrayscale_InvalidBatch(t *testing.T) {
	_, err := Grayscale(mat.NewDense(2, 10, nil))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = Grayscale(nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestGrayImage(t *testing.T) {
	gray := mat.NewDense(1, PlaneLen, nil)
	gray.Set(0, ImageSide+2, 0.75)

	img := GrayImage(gray, 0)
	r, c := img.Dims()
	assert.Equal(t, ImageSide, r)
	assert.Equal(t, ImageSide, c)
	assert.Equal(t, 0.75, img.At(1, 2))
}

func TestDataset_Validate(t *testing.T) {
	images := batch(solidImage(0, 0, 0), solidImage(1, 1, 1))

	_, err := New(images, []int{0})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	ds, err := New(images, []int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []int{1, 3}, ds.Classes())
}

func TestPlanes(t *testing.T) {
	planes := Planes(solidImage(1, 2, 3))
	assert.Len(t, planes[0], PlaneLen)
	assert.Equal(t, 1.0, planes[0][5])
	assert.Equal(t, 2.0, planes[1][5])
	assert.Equal(t, 3.0, planes[2][5])
}
