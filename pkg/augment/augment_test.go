package augment

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/logging"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

func newTestAugmenter(seed int64) *Augmenter {
	return New(WithSeed(seed), WithLogger(logging.Discard()))
}

func solidImage(r, g, b float64) []float64 {
	img := make([]float64, dataset.ImageLen)
	for p := 0; p < dataset.PlaneLen; p++ {
		img[p] = r
		img[dataset.PlaneLen+p] = g
		img[2*dataset.PlaneLen+p] = b
	}
	return img
}

// patternImage has a distinct value at every position and channel.
func patternImage() []float64 {
	img := make([]float64, dataset.ImageLen)
	for i := range img {
		img[i] = float64(i%97) / 97
	}
	return img
}

// labelledBatch builds solid images whose pixel value equals their label.
func labelledBatch(counts map[int]int) (*mat.Dense, []int) {
	var data []float64
	var labels []int
	for label := 0; label < 10; label++ {
		for i := 0; i < counts[label]; i++ {
			v := float64(label)
			data = append(data, solidImage(v, v, v)...)
			labels = append(labels, label)
		}
	}
	return mat.NewDense(len(labels), dataset.ImageLen, data), labels
}

func countLabels(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func TestFlip_SolidColorScenario(t *testing.T) {
	images := mat.NewDense(2, dataset.ImageLen, append(solidImage(10, 20, 30), solidImage(10, 20, 30)...))
	labels := []int{0, 1}

	out, outLabels, err := newTestAugmenter(1).Flip(images, labels, 1.0)
	require.NoError(t, err)

	rows, _ := out.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, map[int]int{0: 2, 1: 2}, countLabels(outLabels))

	first := out.RawRowView(0)
	for i := 1; i < rows; i++ {
		assert.Equal(t, first, out.RawRowView(i))
	}
}

func TestFlip_CountsPerLabel(t *testing.T) {
	images, labels := labelledBatch(map[int]int{0: 10, 1: 7, 2: 3, 3: 1})

	out, outLabels, err := newTestAugmenter(7).Flip(images, labels, 0.5)
	require.NoError(t, err)

	rows, _ := out.Dims()
	require.Equal(t, len(outLabels), rows)
	assert.Equal(t, map[int]int{0: 15, 1: 10, 2: 4, 3: 1}, countLabels(outLabels))

	// solid images carry their label as pixel value: alignment survives the shuffles
	for i, l := range outLabels {
		row := out.RawRowView(i)
		assert.Equal(t, float64(l), row[0])
		assert.Equal(t, float64(l), row[dataset.ImageLen-1])
	}
}

func TestFlip_Deterministic(t *testing.T) {
	images, labels := labelledBatch(map[int]int{0: 6, 1: 6})

	a, aLabels, err := newTestAugmenter(42).Flip(images, labels, 0.5)
	require.NoError(t, err)
	b, bLabels, err := newTestAugmenter(42).Flip(images, labels, 0.5)
	require.NoError(t, err)

	assert.Equal(t, aLabels, bLabels)
	assert.True(t, mat.Equal(a, b))
}

func TestFlip_DoesNotMutateInput(t *testing.T) {
	images := mat.NewDense(1, dataset.ImageLen, patternImage())
	before := mat.DenseCopyOf(images)

	_, _, err := newTestAugmenter(3).Flip(images, []int{0}, 1.0)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, images))
}

func TestFlipImage(t *testing.T) {
	img := patternImage()

	flipped, err := FlipImage(img)
	require.NoError(t, err)
	require.Len(t, flipped, dataset.ImageLen)

	side := dataset.ImageSide
	for c := 0; c < dataset.Channels; c++ {
		for r := 0; r < side; r++ {
			for col := 0; col < side; col++ {
				want := img[c*dataset.PlaneLen+r*side+(side-1-col)]
				require.Equal(t, want, flipped[c*dataset.PlaneLen+r*side+col])
			}
		}
	}

	twice, err := FlipImage(flipped)
	require.NoError(t, err)
	assert.Equal(t, img, twice)

	_, err = FlipImage(img[:10])
	assert.Error(t, err)
}

func TestRotate_CountsPerLabel(t *testing.T) {
	images, labels := labelledBatch(map[int]int{0: 10, 1: 5, 2: 2})
	opts := RotateOptions{Rotations: 3, Ratio: 0.4, MaxAngle: 15}

	out, outLabels, err := newTestAugmenter(11).Rotate(images, labels, opts)
	require.NoError(t, err)

	rows, _ := out.Dims()
	require.Equal(t, len(outLabels), rows)
	// floor(10*.4)=4, floor(5*.4)=2, floor(2*.4)=0, three passes each
	assert.Equal(t, map[int]int{0: 22, 1: 11, 2: 2}, countLabels(outLabels))

	for i, l := range outLabels {
		row := out.RawRowView(i)
		assert.InDelta(t, float64(l), row[0], 1e-6)
		assert.InDelta(t, float64(l), row[dataset.ImageLen/2], 1e-6)
	}
}

func TestRotateImage_ZeroAngleIsIdentity(t *testing.T) {
	img := patternImage()

	rotated, err := RotateImage(img, 0)
	require.NoError(t, err)
	require.Len(t, rotated, dataset.ImageLen)

	for i := range img {
		require.InDelta(t, img[i], rotated[i], 1e-6)
	}
}

func TestRotateImage_KeepsShapeAndRange(t *testing.T) {
	img := patternImage()

	rotated, err := RotateImage(img, 30)
	require.NoError(t, err)
	require.Len(t, rotated, dataset.ImageLen)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range img {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	for _, v := range rotated {
		assert.GreaterOrEqual(t, v, lo-1e-5)
		assert.LessOrEqual(t, v, hi+1e-5)
	}
	assert.NotEqual(t, img, rotated)
}

func TestRotateImage_QuarterTurn(t *testing.T) {
	side := dataset.ImageSide
	img := make([]float64, dataset.ImageLen)
	// top-left pixel of every channel
	for c := 0; c < dataset.Channels; c++ {
		img[c*dataset.PlaneLen] = 1
	}

	rotated, err := RotateImage(img, 90)
	require.NoError(t, err)

	// counter-clockwise: top-left moves to bottom-left
	for c := 0; c < dataset.Channels; c++ {
		assert.InDelta(t, 1.0, rotated[c*dataset.PlaneLen+(side-1)*side], 1e-6)
		assert.InDelta(t, 0.0, rotated[c*dataset.PlaneLen], 1e-6)
	}
}

func TestAugment_InvalidArguments(t *testing.T) {
	images, labels := labelledBatch(map[int]int{0: 4, 1: 4})
	a := newTestAugmenter(5)

	for _, ratio := range []float64{0, -0.2, 1.5, math.NaN()} {
		_, _, err := a.Flip(images, labels, ratio)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSampling), "ratio %v: %v", ratio, err)
	}

	_, _, err := a.Flip(images, labels[:3], 0.5)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, _, err = a.Rotate(images, labels, RotateOptions{Rotations: 0, Ratio: 0.5, MaxAngle: 5})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, _, err = a.Rotate(images, labels, RotateOptions{Rotations: 1, Ratio: 0.5, MaxAngle: 0})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, _, err = a.Rotate(images, labels, RotateOptions{Rotations: 1, Ratio: 2, MaxAngle: 5})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSampling))
}

func TestSample(t *testing.T) {
	a := New(WithRand(rand.New(rand.NewSource(9))), WithLogger(logging.Discard()))
	idx := []int{10, 11, 12, 13, 14}

	picked, err := a.sample(idx, 3)
	require.NoError(t, err)
	assert.Len(t, picked, 3)

	seen := make(map[int]bool)
	for _, p := range picked {
		assert.Contains(t, idx, p)
		assert.False(t, seen[p], "duplicate %d", p)
		seen[p] = true
	}
	assert.Equal(t, []int{10, 11, 12, 13, 14}, idx)

	none, err := a.sample(idx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = a.sample(idx, 6)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSampling))
}

func TestGroupByLabel(t *testing.T) {
	classes, groups := groupByLabel([]int{3, 1, 3, 0, 1})

	assert.Equal(t, []int{0, 1, 3}, classes)
	assert.Equal(t, []int{0, 2}, groups[3])
	assert.Equal(t, []int{1, 4}, groups[1])
	assert.Equal(t, []int{3}, groups[0])
}

func TestSampleSize(t *testing.T) {
	assert.Equal(t, 0, sampleSize(4, 0.2))
	assert.Equal(t, 2, sampleSize(10, 0.2))
	assert.Equal(t, 7, sampleSize(7, 1.0))
}
