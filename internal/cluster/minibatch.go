// Package cluster implements mini-batch k-means over dense float vectors.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Config controls a mini-batch k-means run
type Config struct {
	K         int
	BatchSize int
	MaxIter   int
	// Seed 0 draws a fresh seed from the global source
	Seed int64
}

const (
	// steps without improvement of the smoothed inertia before stopping
	maxNoImprovement = 10
	initSizeFactor   = 3
)

// MiniBatchKMeans partitions points into K clusters with online centroid updates.
type MiniBatchKMeans struct {
	cfg       Config
	Centroids [][]float64
	// Inertia is the sum of squared distances of the training points to their centroid
	Inertia float64
	// Steps is the number of mini-batch updates performed
	Steps int
}

// New creates an unfitted model
func New(cfg Config) (*MiniBatchKMeans, error) {
	if cfg.K < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", cfg.K)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.MaxIter < 1 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", cfg.MaxIter)
	}
	return &MiniBatchKMeans{cfg: cfg}, nil
}

func (m *MiniBatchKMeans) rng() *rand.Rand {
	seed := m.cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}

// Fit learns the centroids from X
func (m *MiniBatchKMeans) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("input data cannot be empty")
	}
	n, p := len(X), len(X[0])
	if n < m.cfg.K {
		return fmt.Errorf("number of data points %d is less than k=%d", n, m.cfg.K)
	}
	for i, x := range X {
		if len(x) != p {
			return fmt.Errorf("point %d has %d dimensions, expected %d", i, len(x), p)
		}
	}

	rng := m.rng()
	m.initCenters(X, rng)

	batch := m.cfg.BatchSize
	if batch > n {
		batch = n
	}
	steps := m.cfg.MaxIter * n / batch
	if steps < 1 {
		steps = 1
	}

	counts := make([]float64, m.cfg.K)
	idx := make([]int, batch)
	labels := make([]int, batch)
	ewa := math.NaN()
	best := math.Inf(1)
	stall := 0

	m.Steps = 0
	for step := 0; step < steps; step++ {
		for i := range idx {
			idx[i] = rng.Intn(n)
		}

		batchInertia := 0.0
		for i, j := range idx {
			k, d := m.Nearest(X[j])
			labels[i] = k
			batchInertia += d
		}
		for i, j := range idx {
			k := labels[i]
			counts[k]++
			eta := 1 / counts[k]
			c := m.Centroids[k]
			for t := range c {
				c[t] += eta * (X[j][t] - c[t])
			}
		}
		m.Steps++

		batchInertia /= float64(batch)
		if math.IsNaN(ewa) {
			ewa = batchInertia
		} else {
			alpha := math.Min(1, 2*float64(batch)/float64(n+1))
			ewa = ewa*(1-alpha) + batchInertia*alpha
		}
		if ewa < best {
			best = ewa
			stall = 0
		} else {
			stall++
			if stall >= maxNoImprovement {
				break
			}
		}
	}

	m.Inertia = 0
	for _, x := range X {
		_, d := m.Nearest(x)
		m.Inertia += d
	}
	return nil
}

// initCenters seeds the centroids with k-means++ on a random subsample.
func (m *MiniBatchKMeans) initCenters(X [][]float64, rng *rand.Rand) {
	n := len(X)
	size := initSizeFactor * m.cfg.BatchSize
	if size < m.cfg.K {
		size = m.cfg.K
	}
	sample := X
	if size < n {
		sample = make([][]float64, size)
		for i, j := range rng.Perm(n)[:size] {
			sample[i] = X[j]
		}
	}

	m.Centroids = make([][]float64, m.cfg.K)
	m.Centroids[0] = append([]float64{}, sample[rng.Intn(len(sample))]...)

	distSq := make([]float64, len(sample))
	for i, x := range sample {
		distSq[i] = euclidSquared(x, m.Centroids[0])
	}

	for k := 1; k < m.cfg.K; k++ {
		total := floats.Sum(distSq)
		pick := rng.Intn(len(sample))
		if total > 0 {
			r := rng.Float64() * total
			cumulative := 0.0
			for i, d2 := range distSq {
				cumulative += d2
				if cumulative >= r {
					pick = i
					break
				}
			}
		}
		m.Centroids[k] = append([]float64{}, sample[pick]...)
		for i, x := range sample {
			if d2 := euclidSquared(x, m.Centroids[k]); d2 < distSq[i] {
				distSq[i] = d2
			}
		}
	}
}

// Nearest returns the closest centroid to x and the squared distance to it
func (m *MiniBatchKMeans) Nearest(x []float64) (int, float64) {
	best, bestSq := -1, math.MaxFloat64
	for k, c := range m.Centroids {
		if d := euclidSquared(x, c); d < bestSq {
			best, bestSq = k, d
		}
	}
	return best, bestSq
}

// Predict assigns each point to its nearest centroid.
func (m *MiniBatchKMeans) Predict(X [][]float64) ([]int, error) {
	if len(m.Centroids) == 0 {
		return nil, errors.New("model is not fitted")
	}
	if len(X) == 0 {
		return []int{}, nil
	}
	p := len(m.Centroids[0])
	for i, x := range X {
		if len(x) != p {
			return nil, fmt.Errorf("point %d has %d dimensions, model has %d", i, len(x), p)
		}
	}

	n := len(X)
	assignments := make([]int, n)
	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				assignments[i], _ = m.Nearest(X[i])
			}
		}(start, end)
	}
	wg.Wait()

	return assignments, nil
}

func euclidSquared(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
