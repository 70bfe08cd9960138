package features

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/cvutil"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// Fixed by the OpenCV SIFT implementation
const (
	SIFTOrientationBins = 36
	SIFTHistogramGrid   = 4
	SIFTDescriptorBins  = 8
	SIFTDescriptorLen   = SIFTHistogramGrid * SIFTHistogramGrid * SIFTDescriptorBins
)

// Descriptors holds the local descriptors found in one image, one per row.
// It is empty when no keypoint was detected.
type Descriptors [][]float64

// Len returns the number of descriptors
func (d Descriptors) Len() int {
	return len(d)
}

// SIFTConfig configures keypoint detection. Features 0 keeps every keypoint.
type SIFTConfig struct {
	Upsampling        int     `yaml:"upsampling"`
	Features          int     `yaml:"features"`
	OctaveLayers      int     `yaml:"octave_layers"`
	ContrastThreshold float64 `yaml:"contrast_threshold"`
	EdgeThreshold     float64 `yaml:"edge_threshold"`
	Sigma             float64 `yaml:"sigma"`
}

// DefaultSIFTConfig returns the detector defaults
func DefaultSIFTConfig() SIFTConfig {
	return SIFTConfig{
		Upsampling:        2,
		Features:          0,
		OctaveLayers:      3,
		ContrastThreshold: 0.04,
		EdgeThreshold:     10,
		Sigma:             1.6,
	}
}

// Validate checks the detector parameters
func (c SIFTConfig) Validate() error {
	switch {
	case c.Upsampling < 1:
		return apperrors.NewValidationError(fmt.Sprintf("upsampling must be at least 1, got %d", c.Upsampling), nil)
	case c.Features < 0:
		return apperrors.NewValidationError(fmt.Sprintf("features must be non-negative, got %d", c.Features), nil)
	case c.OctaveLayers < 1:
		return apperrors.NewValidationError(fmt.Sprintf("octave layers must be positive, got %d", c.OctaveLayers), nil)
	case c.ContrastThreshold < 0 || c.EdgeThreshold <= 0 || c.Sigma <= 0:
		return apperrors.NewValidationError(fmt.Sprintf("invalid sift thresholds: %+v", c), nil)
	}
	return nil
}

// SIFT detects and describes keypoints on grayscale images
type SIFT struct {
	cfg    SIFTConfig
	logger *logrus.Logger
}

// NewSIFT creates a SIFT descriptor extractor
func NewSIFT(cfg SIFTConfig, opts ...Option) (*SIFT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &SIFT{cfg: cfg, logger: o.logger}, nil
}

// Config returns the detector configuration
func (s *SIFT) Config() SIFTConfig {
	return s.cfg
}

// Descriptors returns the descriptor set of every image. Rows may be RGB
// images, averaged to gray over the whole batch, or grayscale planes.
func (s *SIFT) Descriptors(images *mat.Dense) ([]Descriptors, error) {
	if images == nil {
		return nil, apperrors.NewValidationError("images are nil", nil)
	}

	gray := images
	_, cols := images.Dims()
	switch cols {
	case dataset.ImageLen:
		var err error
		if gray, err = dataset.Grayscale(images); err != nil {
			return nil, err
		}
	case dataset.PlaneLen:
		if err := dataset.ValidateBatch(images, dataset.PlaneLen); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("expected %d or %d columns, got %d", dataset.ImageLen, dataset.PlaneLen, cols), nil)
	}

	nFeatures := s.cfg.Features
	nOctaveLayers := s.cfg.OctaveLayers
	contrast := s.cfg.ContrastThreshold
	edge := s.cfg.EdgeThreshold
	sigma := s.cfg.Sigma
	sift := gocv.NewSIFTWithParams(&nFeatures, &nOctaveLayers, &contrast, &edge, &sigma)
	defer sift.Close()

	n, _ := gray.Dims()
	out := make([]Descriptors, n)
	total := 0
	for i := 0; i < n; i++ {
		d, err := s.describe(&sift, gray.RawRowView(i))
		if err != nil {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("sift on image %d", i), err)
		}
		out[i] = d
		total += len(d)
	}

	s.logger.WithFields(logrus.Fields{
		"images":      n,
		"descriptors": total,
	}).Debug("SIFT descriptors extracted")

	return out, nil
}

func (s *SIFT) describe(sift *gocv.SIFT, plane []float64) (Descriptors, error) {
	img, err := cvutil.GrayToMat8U(plane, dataset.ImageSide, dataset.ImageSide)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	src := img
	if s.cfg.Upsampling > 1 {
		side := dataset.ImageSide * s.cfg.Upsampling
		up := gocv.NewMat()
		defer up.Close()
		if err := gocv.Resize(img, &up, image.Pt(side, side), 0, 0, gocv.InterpolationLinear); err != nil {
			return nil, fmt.Errorf("upsampling by %d: %w", s.cfg.Upsampling, err)
		}
		src = up
	}

	mask := gocv.NewMat()
	defer mask.Close()
	kps, desc := sift.DetectAndCompute(src, mask)
	defer desc.Close()

	if len(kps) == 0 || desc.Empty() {
		return Descriptors{}, nil
	}

	rows, cols := desc.Rows(), desc.Cols()
	out := make(Descriptors, rows)
	for r := 0; r < rows; r++ {
		v := make([]float64, cols)
		for c := 0; c < cols; c++ {
			v[c] = float64(desc.GetFloatAt(r, c))
		}
		out[r] = v
	}
	return out, nil
}
