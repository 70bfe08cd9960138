package cvutil

import (
	"image"

	"gocv.io/x/gocv"
)

// truncate is the kernel half-width in standard deviations.
const truncate = 4.0

// GaussianSmooth blurs a plane with a Gaussian of the given sigma using a
// reflecting border (d c b a | a b c d | d c b a). Kernels extend to 4 sigma.
func GaussianSmooth(plane []float64, rows, cols int, sigma float64) ([]float64, error) {
	if sigma <= 0 {
		out := make([]float64, len(plane))
		copy(out, plane)
		return out, nil
	}

	src, err := PlaneToMat(plane, rows, cols)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	radius := int(truncate*sigma + 0.5)
	ksize := 2*radius + 1

	dst := gocv.NewMat()
	defer dst.Close()
	if err := gocv.GaussianBlur(src, &dst, image.Point{X: ksize, Y: ksize}, sigma, sigma, gocv.BorderReflect); err != nil {
		return nil, err
	}

	return MatToPlane(dst)
}
