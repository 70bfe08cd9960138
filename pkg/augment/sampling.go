package augment

import (
	"fmt"
	"sort"

	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// groupByLabel returns the distinct labels in ascending order and, for each,
// the indices carrying it in input order.
func groupByLabel(labels []int) ([]int, map[int][]int) {
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}

	classes := make([]int, 0, len(groups))
	for l := range groups {
		classes = append(classes, l)
	}
	sort.Ints(classes)
	return classes, groups
}

// sampleSize is floor(count × ratio).
func sampleSize(count int, ratio float64) int {
	return int(float64(count) * ratio)
}

// sample draws k distinct elements of idx uniformly at random.
func (a *Augmenter) sample(idx []int, k int) ([]int, error) {
	if k < 0 || k > len(idx) {
		return nil, apperrors.NewSamplingError(
			fmt.Sprintf("cannot sample %d of %d indices without replacement", k, len(idx)), nil)
	}

	pool := make([]int, len(idx))
	copy(pool, idx)
	for i := 0; i < k; i++ {
		j := i + a.intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}
