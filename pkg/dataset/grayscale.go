package dataset

import (
	"gonum.org/v1/gonum/mat"
)

// Grayscale rescales the whole batch to [0,1] using its global minimum and
// maximum, then averages the three channels of every image. The result has one
// 32×32 row-major plane per row.
//
// The rescaling depends on every image in the batch, so the same image can map
// to different values in different batches. A constant batch maps to zeros.
func Grayscale(images *mat.Dense) (*mat.Dense, error) {
	if err := ValidateImages(images); err != nil {
		return nil, err
	}

	lo, hi := mat.Min(images), mat.Max(images)
	span := hi - lo

	n, _ := images.Dims()
	out := mat.NewDense(n, PlaneLen, nil)
	if span == 0 {
		return out, nil
	}

	for i := 0; i < n; i++ {
		planes := Planes(images.RawRowView(i))
		dst := out.RawRowView(i)
		for p := 0; p < PlaneLen; p++ {
			sum := 0.0
			for c := 0; c < Channels; c++ {
				sum += (planes[c][p] - lo) / span
			}
			dst[p] = sum / Channels
		}
	}
	return out, nil
}

// GrayImage returns row i of a grayscale batch as a 32×32 matrix.
func GrayImage(gray *mat.Dense, i int) *mat.Dense {
	row := make([]float64, PlaneLen)
	copy(row, gray.RawRowView(i))
	return mat.NewDense(ImageSide, ImageSide, row)
}
