// Class-balanced dataset augmentation by flipping and rotating sampled images
package augment

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/logging"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/metrics"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// Augmenter produces expanded, shuffled datasets. It is not safe for
// concurrent use when built with WithRand or WithSeed.
type Augmenter struct {
	rng       *rand.Rand
	logger    *logrus.Logger
	evaluator *metrics.Evaluator
}

// Option configures an Augmenter
type Option func(*Augmenter)

// WithRand draws all random numbers from r instead of the process-wide source
func WithRand(r *rand.Rand) Option {
	return func(a *Augmenter) { a.rng = r }
}

// WithSeed makes the augmenter deterministic
func WithSeed(seed int64) Option {
	return func(a *Augmenter) { a.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Augmenter) { a.logger = logger }
}

// New creates an augmenter. Without WithRand or WithSeed it uses the
// process-wide math/rand source.
func New(opts ...Option) *Augmenter {
	a := &Augmenter{
		logger:    logging.Default(),
		evaluator: metrics.NewEvaluator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Augmenter) intn(n int) int {
	if a.rng != nil {
		return a.rng.Intn(n)
	}
	return rand.Intn(n)
}

func (a *Augmenter) perm(n int) []int {
	if a.rng != nil {
		return a.rng.Perm(n)
	}
	return rand.Perm(n)
}

// transform maps one flattened image to its augmented copy
type transform func(img []float64) ([]float64, error)

// augmented collects the augmented copies of one or more passes together with
// the source images they were derived from.
type augmented struct {
	images  [][]float64
	labels  []int
	sources [][]float64
}

func (a *Augmenter) pass(images *mat.Dense, labels []int, ratio float64, fn transform, out *augmented) error {
	classes, groups := groupByLabel(labels)

	for _, label := range classes {
		idx := groups[label]
		picked, err := a.sample(idx, sampleSize(len(idx), ratio))
		if err != nil {
			return fmt.Errorf("label %d: %w", label, err)
		}

		a.logger.WithFields(logrus.Fields{
			"label":   label,
			"count":   len(idx),
			"sampled": len(picked),
		}).Debug("Sampled images for augmentation")

		for _, i := range picked {
			src := images.RawRowView(i)
			img, err := fn(src)
			if err != nil {
				return apperrors.NewProcessingError(fmt.Sprintf("augmenting image %d", i), err)
			}
			out.images = append(out.images, img)
			out.labels = append(out.labels, label)
			out.sources = append(out.sources, src)
		}
	}
	return nil
}

// combine shuffles the augmented items, appends them to the originals and
// shuffles the result again.
func (a *Augmenter) combine(images *mat.Dense, labels []int, aug *augmented) (*mat.Dense, []int) {
	n := len(labels)
	total := n + len(aug.labels)

	rows := make([][]float64, 0, total)
	allLabels := make([]int, 0, total)
	for i := 0; i < n; i++ {
		rows = append(rows, images.RawRowView(i))
		allLabels = append(allLabels, labels[i])
	}
	for _, id := range a.perm(len(aug.labels)) {
		rows = append(rows, aug.images[id])
		allLabels = append(allLabels, aug.labels[id])
	}

	outImages := mat.NewDense(total, dataset.ImageLen, nil)
	outLabels := make([]int, total)
	for dst, src := range a.perm(total) {
		outImages.SetRow(dst, rows[src])
		outLabels[dst] = allLabels[src]
	}
	return outImages, outLabels
}

func (a *Augmenter) report(kind string, original int, aug *augmented) {
	fields := logrus.Fields{
		"augmentation": kind,
		"original":     original,
		"augmented":    len(aug.labels),
	}

	if a.logger.IsLevelEnabled(logrus.DebugLevel) && len(aug.images) > 0 {
		if means, err := a.evaluator.Mean(aug.sources, aug.images); err == nil {
			for name, v := range means {
				fields["mean_"+name] = v
			}
		}
	}

	a.logger.WithFields(fields).Info("Dataset augmented")
}

func validateInput(images *mat.Dense, labels []int, ratio float64) error {
	if _, err := dataset.New(images, labels); err != nil {
		return err
	}
	if !(ratio > 0 && ratio <= 1) {
		return apperrors.NewSamplingError(fmt.Sprintf("ratio %v outside (0, 1]", ratio), nil)
	}
	return nil
}
