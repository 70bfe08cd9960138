// Conversions between flattened float planes and OpenCV matrices
package cvutil

import (
	"fmt"

	"gocv.io/x/gocv"
)

// PlaneToMat copies a row-major plane into a single-channel CV_64F Mat.
// The caller owns the returned Mat.
func PlaneToMat(plane []float64, rows, cols int) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid plane dimensions: %dx%d", rows, cols)
	}
	if len(plane) != rows*cols {
		return gocv.NewMat(), fmt.Errorf("plane length %d does not match %dx%d", len(plane), rows, cols)
	}

	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m.SetDoubleAt(y, x, plane[y*cols+x])
		}
	}
	return m, nil
}

// MatToPlane reads a single-channel Mat back into a row-major plane.
// Non CV_64F inputs are converted first.
func MatToPlane(m gocv.Mat) ([]float64, error) {
	if m.Empty() {
		return nil, fmt.Errorf("matrix is empty")
	}
	if m.Channels() != 1 {
		return nil, fmt.Errorf("expected single channel matrix, got %d channels", m.Channels())
	}

	src := m
	if m.Type() != gocv.MatTypeCV64F {
		converted := gocv.NewMat()
		defer converted.Close()
		m.ConvertTo(&converted, gocv.MatTypeCV64F)
		src = converted
	}

	rows, cols := src.Rows(), src.Cols()
	plane := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			plane[y*cols+x] = src.GetDoubleAt(y, x)
		}
	}
	return plane, nil
}

// StackChannels turns a channel-major image (C planes of rows×cols) into an
// interleaved C-channel CV_64F Mat.
func StackChannels(img []float64, channels, rows, cols int) (gocv.Mat, error) {
	planeLen := rows * cols
	if channels <= 0 || len(img) != channels*planeLen {
		return gocv.NewMat(), fmt.Errorf("image length %d does not match %dx%dx%d", len(img), channels, rows, cols)
	}

	planes := make([]gocv.Mat, 0, channels)
	defer func() {
		for _, p := range planes {
			p.Close()
		}
	}()

	for c := 0; c < channels; c++ {
		p, err := PlaneToMat(img[c*planeLen:(c+1)*planeLen], rows, cols)
		if err != nil {
			return gocv.NewMat(), err
		}
		planes = append(planes, p)
	}

	stacked := gocv.NewMat()
	if err := gocv.Merge(planes, &stacked); err != nil {
		stacked.Close()
		return gocv.NewMat(), err
	}
	return stacked, nil
}

// SplitChannels is the inverse of StackChannels: it returns the channel-major
// flattened form of a multi-channel Mat.
func SplitChannels(m gocv.Mat) ([]float64, error) {
	if m.Empty() {
		return nil, fmt.Errorf("matrix is empty")
	}

	planes := gocv.Split(m)
	defer func() {
		for _, p := range planes {
			p.Close()
		}
	}()

	out := make([]float64, 0, m.Rows()*m.Cols()*len(planes))
	for _, p := range planes {
		plane, err := MatToPlane(p)
		if err != nil {
			return nil, err
		}
		out = append(out, plane...)
	}
	return out, nil
}

// GrayToMat8U converts a grayscale plane to an 8-bit Mat. Planes whose values
// all lie in [0,1] are scaled by 255; anything else is clipped to [0,255].
func GrayToMat8U(plane []float64, rows, cols int) (gocv.Mat, error) {
	if len(plane) != rows*cols {
		return gocv.NewMat(), fmt.Errorf("plane length %d does not match %dx%d", len(plane), rows, cols)
	}

	scale := 1.0
	if isUnitRange(plane) {
		scale = 255.0
	}

	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := plane[y*cols+x] * scale
			switch {
			case v < 0:
				v = 0
			case v > 255:
				v = 255
			}
			m.SetUCharAt(y, x, uint8(v+0.5))
		}
	}
	return m, nil
}

func isUnitRange(plane []float64) bool {
	for _, v := range plane {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}
