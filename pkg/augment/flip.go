package augment

import (
	"fmt"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/cvutil"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
)

// horizontal is the gocv flip code mirroring around the vertical axis
const horizontal = 1

// Flip mirrors floor(count × ratio) randomly chosen images of every label and
// returns the originals plus the mirrors, shuffled.
func (a *Augmenter) Flip(images *mat.Dense, labels []int, ratio float64) (*mat.Dense, []int, error) {
	if err := validateInput(images, labels, ratio); err != nil {
		return nil, nil, err
	}

	aug := &augmented{}
	if err := a.pass(images, labels, ratio, FlipImage, aug); err != nil {
		return nil, nil, err
	}

	a.report("flip", len(labels), aug)
	outImages, outLabels := a.combine(images, labels, aug)
	return outImages, outLabels, nil
}

// Flip runs Augmenter.Flip on the process-wide random source.
func Flip(images *mat.Dense, labels []int, ratio float64) (*mat.Dense, []int, error) {
	return New().Flip(images, labels, ratio)
}

// FlipImage mirrors a channel-major RGB image left to right.
func FlipImage(img []float64) ([]float64, error) {
	if len(img) != dataset.ImageLen {
		return nil, fmt.Errorf("image has %d values, expected %d", len(img), dataset.ImageLen)
	}

	src, err := cvutil.StackChannels(img, dataset.Channels, dataset.ImageSide, dataset.ImageSide)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	if err := gocv.Flip(src, &dst, horizontal); err != nil {
		return nil, err
	}

	return cvutil.SplitChannels(dst)
}
