package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobs(seed int64, perBlob int, centres [][]float64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	var X [][]float64
	for _, c := range centres {
		for i := 0; i < perBlob; i++ {
			x := make([]float64, len(c))
			for j := range c {
				x[j] = c[j] + rng.NormFloat64()*0.1
			}
			X = append(X, x)
		}
	}
	return X
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{K: 0, BatchSize: 10, MaxIter: 10},
		{K: 2, BatchSize: 0, MaxIter: 10},
		{K: 2, BatchSize: 10, MaxIter: 0},
	} {
		_, err := New(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestFitSeparatesBlobs(t *testing.T) {
	centres := [][]float64{{0, 0}, {10, 10}, {-10, 10}}
	X := blobs(1, 50, centres)

	m, err := New(Config{K: 3, BatchSize: 32, MaxIter: 20, Seed: 7})
	require.NoError(t, err)
	require.NoError(t, m.Fit(X))
	require.Len(t, m.Centroids, 3)

	labels, err := m.Predict(X)
	require.NoError(t, err)
	require.Len(t, labels, len(X))

	// every blob maps to a single cluster and blobs map to distinct clusters
	seen := map[int]bool{}
	for b := range centres {
		first := labels[b*50]
		for i := b * 50; i < (b+1)*50; i++ {
			assert.Equal(t, first, labels[i])
		}
		assert.False(t, seen[first])
		seen[first] = true
	}
	assert.Less(t, m.Inertia, 10.0)
	assert.Greater(t, m.Steps, 0)
}

func TestFitIsDeterministicWithSeed(t *testing.T) {
	X := blobs(2, 40, [][]float64{{0, 0, 0}, {5, 5, 5}})
	cfg := Config{K: 2, BatchSize: 16, MaxIter: 5, Seed: 42}

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Fit(X))
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Fit(X))

	assert.Equal(t, a.Centroids, b.Centroids)
}

func TestFitErrors(t *testing.T) {
	m, err := New(Config{K: 3, BatchSize: 4, MaxIter: 2, Seed: 1})
	require.NoError(t, err)

	assert.Error(t, m.Fit(nil))
	assert.Error(t, m.Fit([][]float64{{1}, {2}}))
	assert.Error(t, m.Fit([][]float64{{1, 2}, {2}, {3, 4}}))
}

func TestFitIdenticalPoints(t *testing.T) {
	X := make([][]float64, 10)
	for i := range X {
		X[i] = []float64{1, 1}
	}
	m, err := New(Config{K: 3, BatchSize: 4, MaxIter: 2, Seed: 1})
	require.NoError(t, err)
	require.NoError(t, m.Fit(X))
	assert.Equal(t, 0.0, m.Inertia)
}

func TestPredict(t *testing.T) {
	m, err := New(Config{K: 2, BatchSize: 4, MaxIter: 2})
	require.NoError(t, err)

	_, err = m.Predict([][]float64{{1, 2}})
	assert.Error(t, err, "unfitted")

	m.Centroids = [][]float64{{0, 0}, {10, 0}}
	labels, err := m.Predict([][]float64{{1, 0}, {9, 1}, {4, 0}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, labels)

	labels, err = m.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, labels)

	_, err = m.Predict([][]float64{{1, 2, 3}})
	assert.Error(t, err)

	k, d := m.Nearest([]float64{7, 0})
	assert.Equal(t, 1, k)
	assert.InDelta(t, 9.0, d, 1e-12)
}
