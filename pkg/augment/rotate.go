package augment

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/cvutil"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// RotateOptions controls the rotation augmenter
type RotateOptions struct {
	// Rotations is the number of independent augmentation passes
	Rotations int `yaml:"rotations"`
	// Ratio of each label's images sampled per pass
	Ratio float64 `yaml:"ratio"`
	// MaxAngle bounds the random angle: degrees are drawn from [-MaxAngle, MaxAngle)
	MaxAngle int `yaml:"max_angle"`
}

// DefaultRotateOptions returns one pass over 20% of each label with ±1 degree
func DefaultRotateOptions() RotateOptions {
	return RotateOptions{
		Rotations: 1,
		Ratio:     0.2,
		MaxAngle:  1,
	}
}

// Validate checks the options
func (o RotateOptions) Validate() error {
	if o.Rotations < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("rotations must be >= 1 (got %d)", o.Rotations), nil)
	}
	if o.MaxAngle < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("max_angle must be >= 1 (got %d)", o.MaxAngle), nil)
	}
	return nil
}

// Rotate runs opts.Rotations passes. Each pass samples floor(count × ratio)
// images of every label afresh and rotates each one by a random integer angle.
// The originals plus all rotated copies are returned, shuffled.
func (a *Augmenter) Rotate(images *mat.Dense, labels []int, opts RotateOptions) (*mat.Dense, []int, error) {
	if err := validateInput(images, labels, opts.Ratio); err != nil {
		return nil, nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	randomRotation := func(img []float64) ([]float64, error) {
		angle := a.intn(2*opts.MaxAngle) - opts.MaxAngle
		return RotateImage(img, float64(angle))
	}

	aug := &augmented{}
	for pass := 0; pass < opts.Rotations; pass++ {
		before := len(aug.labels)
		if err := a.pass(images, labels, opts.Ratio, randomRotation, aug); err != nil {
			return nil, nil, err
		}
		a.logger.WithFields(logrus.Fields{
			"pass":    pass + 1,
			"rotated": len(aug.labels) - before,
		}).Debug("Rotation pass completed")
	}

	a.report("rotate", len(labels), aug)
	outImages, outLabels := a.combine(images, labels, aug)
	return outImages, outLabels, nil
}

// Rotate runs Augmenter.Rotate on the process-wide random source.
func Rotate(images *mat.Dense, labels []int, opts RotateOptions) (*mat.Dense, []int, error) {
	return New().Rotate(images, labels, opts)
}

// RotateImage rotates a channel-major RGB image counter-clockwise by angle
// degrees about its centre. The output keeps the 32×32 shape; pixels mapped
// from outside the image take the value of the nearest edge pixel.
func RotateImage(img []float64, angle float64) ([]float64, error) {
	if len(img) != dataset.ImageLen {
		return nil, fmt.Errorf("image has %d values, expected %d", len(img), dataset.ImageLen)
	}

	src, err := cvutil.StackChannels(img, dataset.Channels, dataset.ImageSide, dataset.ImageSide)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	m := rotationMatrix(dataset.ImageSide, dataset.ImageSide, angle)
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	size := image.Point{X: dataset.ImageSide, Y: dataset.ImageSide}
	if err := gocv.WarpAffineWithParams(src, &dst, m, size, gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{}); err != nil {
		return nil, err
	}

	return cvutil.SplitChannels(dst)
}

// rotationMatrix is the 2×3 affine rotation about the exact pixel centre
// ((cols-1)/2, (rows-1)/2). gocv.GetRotationMatrix2D only takes an integer centre.
func rotationMatrix(rows, cols int, angle float64) gocv.Mat {
	rad := angle * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(cols-1)/2, float64(rows-1)/2

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, alpha)
	m.SetDoubleAt(0, 1, beta)
	m.SetDoubleAt(0, 2, (1-alpha)*cx-beta*cy)
	m.SetDoubleAt(1, 0, -beta)
	m.SetDoubleAt(1, 1, alpha)
	m.SetDoubleAt(1, 2, beta*cx+(1-alpha)*cy)
	return m
}
