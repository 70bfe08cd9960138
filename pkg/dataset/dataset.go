// Flattened image batches and their labels
package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// Image geometry. Images are channel-major: the R, G and B planes follow each
// other, each plane row-major.
const (
	ImageSide = 32
	Channels  = 3
	PlaneLen  = ImageSide * ImageSide
	ImageLen  = Channels * PlaneLen
)

// Dataset pairs a batch of images (one per row) with their class labels.
type Dataset struct {
	Images *mat.Dense
	Labels []int
}

// New builds a dataset after checking that images and labels line up.
func New(images *mat.Dense, labels []int) (*Dataset, error) {
	ds := &Dataset{Images: images, Labels: labels}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Validate checks image geometry and label alignment
func (d *Dataset) Validate() error {
	if err := ValidateImages(d.Images); err != nil {
		return err
	}
	rows, _ := d.Images.Dims()
	if rows != len(d.Labels) {
		return apperrors.NewValidationError(
			fmt.Sprintf("%d images but %d labels", rows, len(d.Labels)), nil)
	}
	return nil
}

// Classes returns the distinct labels in ascending order
func (d *Dataset) Classes() []int {
	return Classes(d.Labels)
}

// Classes returns the distinct values of labels in ascending order
func Classes(labels []int) []int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// ValidateImages checks that a batch is non-empty and holds full RGB images.
func ValidateImages(images *mat.Dense) error {
	return ValidateBatch(images, ImageLen)
}

// ValidateBatch checks that a batch is non-empty with rows of the given length.
func ValidateBatch(images *mat.Dense, rowLen int) error {
	if images == nil || images.IsEmpty() {
		return apperrors.NewValidationError("image batch is empty", nil)
	}
	_, cols := images.Dims()
	if cols != rowLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("images have %d values, expected %d", cols, rowLen), nil)
	}
	return nil
}

// Planes returns the three channel planes of a channel-major image without copying.
func Planes(img []float64) [Channels][]float64 {
	var planes [Channels][]float64
	for c := 0; c < Channels; c++ {
		planes[c] = img[c*PlaneLen : (c+1)*PlaneLen]
	}
	return planes
}
