package features

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// HOGName is the registry name of the HOG extractor
const HOGName = "hog"

const (
	hogEps  = 1e-5
	hogClip = 0.2
)

// HOGConfig holds the cell and block geometry of the HOG descriptor
type HOGConfig struct {
	Orientations  int    `yaml:"orientations"`
	PixelsPerCell [2]int `yaml:"pixels_per_cell"`
	CellsPerBlock [2]int `yaml:"cells_per_block"`
	// Ravel concatenates the channel descriptors into one row per image.
	// Otherwise each image contributes one row per channel.
	Ravel bool `yaml:"ravel"`
}

// DefaultHOGConfig returns 9 orientations, 8×8 pixel cells and 3×3 cell blocks
func DefaultHOGConfig() HOGConfig {
	return HOGConfig{
		Orientations:  9,
		PixelsPerCell: [2]int{8, 8},
		CellsPerBlock: [2]int{3, 3},
		Ravel:         true,
	}
}

// HOGConfigFromParams reads a registry parameter map over the defaults
func HOGConfigFromParams(params map[string]interface{}) (HOGConfig, error) {
	cfg := DefaultHOGConfig()
	var err error
	if cfg.Orientations, err = intParam(params, "orientations", cfg.Orientations); err != nil {
		return cfg, err
	}
	if cfg.PixelsPerCell, err = pairParam(params, "pixels_per_cell", cfg.PixelsPerCell); err != nil {
		return cfg, err
	}
	if cfg.CellsPerBlock, err = pairParam(params, "cells_per_block", cfg.CellsPerBlock); err != nil {
		return cfg, err
	}
	if cfg.Ravel, err = boolParam(params, "ravel", cfg.Ravel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Params returns the configuration as a registry parameter map
func (c HOGConfig) Params() map[string]interface{} {
	return map[string]interface{}{
		"orientations":    c.Orientations,
		"pixels_per_cell": c.PixelsPerCell,
		"cells_per_block": c.CellsPerBlock,
		"ravel":           c.Ravel,
	}
}

func hogParameterInfo() []ParameterInfo {
	d := DefaultHOGConfig()
	return []ParameterInfo{
		{Name: "orientations", Type: "int", Default: d.Orientations, Description: "Number of unsigned orientation bins over [0, 180)"},
		{Name: "pixels_per_cell", Type: "pair", Default: d.PixelsPerCell, Description: "Cell size in pixels (rows, cols)"},
		{Name: "cells_per_block", Type: "pair", Default: d.CellsPerBlock, Description: "Block size in cells (rows, cols)"},
		{Name: "ravel", Type: "bool", Default: d.Ravel, Description: "One row per image instead of one row per channel"},
	}
}

// Validate checks the geometry against a 32×32 image
func (c HOGConfig) Validate() error {
	if c.Orientations < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("orientations must be >= 1 (got %d)", c.Orientations), nil)
	}
	for i := 0; i < 2; i++ {
		if c.PixelsPerCell[i] < 1 || c.CellsPerBlock[i] < 1 {
			return apperrors.NewValidationError(
				fmt.Sprintf("pixels_per_cell %v and cells_per_block %v must be positive", c.PixelsPerCell, c.CellsPerBlock), nil)
		}
	}
	if br, bc := c.blocks(dataset.ImageSide, dataset.ImageSide); br < 1 || bc < 1 {
		return apperrors.NewValidationError(
			fmt.Sprintf("a %dx%d image holds no %v block of %v cells", dataset.ImageSide, dataset.ImageSide, c.CellsPerBlock, c.PixelsPerCell), nil)
	}
	return nil
}

func (c HOGConfig) cells(rows, cols int) (int, int) {
	return rows / c.PixelsPerCell[0], cols / c.PixelsPerCell[1]
}

func (c HOGConfig) blocks(rows, cols int) (int, int) {
	cr, cc := c.cells(rows, cols)
	return cr - c.CellsPerBlock[0] + 1, cc - c.CellsPerBlock[1] + 1
}

// ChannelDim is the descriptor length of one rows×cols channel
func (c HOGConfig) ChannelDim(rows, cols int) int {
	br, bc := c.blocks(rows, cols)
	return br * bc * c.CellsPerBlock[0] * c.CellsPerBlock[1] * c.Orientations
}

// HOG extracts histogram-of-oriented-gradient features independently per channel
type HOG struct {
	cfg    HOGConfig
	logger *logrus.Logger
}

// NewHOG creates a HOG extractor
func NewHOG(cfg HOGConfig, opts ...Option) (*HOG, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &HOG{cfg: cfg, logger: o.logger}, nil
}

func (h *HOG) Name() string {
	return HOGName
}

// Config returns the extractor configuration
func (h *HOG) Config() HOGConfig {
	return h.cfg
}

// Dim is the number of columns ExtractFeatures returns
func (h *HOG) Dim() int {
	d := h.cfg.ChannelDim(dataset.ImageSide, dataset.ImageSide)
	if h.cfg.Ravel {
		return dataset.Channels * d
	}
	return d
}

// Fit does nothing; HOG has no learned state.
func (h *HOG) Fit(images *mat.Dense) error {
	return nil
}

// FitExtract is Fit followed by ExtractFeatures
func (h *HOG) FitExtract(images *mat.Dense, labels []int) (*mat.Dense, error) {
	if err := h.Fit(images); err != nil {
		return nil, err
	}
	return h.ExtractFeatures(images)
}

// ExtractFeatures computes the descriptor of every channel of every image.
// With Ravel the result is N×(3·D); otherwise (3N)×D with rows 3i..3i+2
// holding image i's R, G and B descriptors.
func (h *HOG) ExtractFeatures(images *mat.Dense) (*mat.Dense, error) {
	if err := dataset.ValidateImages(images); err != nil {
		return nil, err
	}

	n, _ := images.Dims()
	channelDim := h.cfg.ChannelDim(dataset.ImageSide, dataset.ImageSide)

	var out *mat.Dense
	if h.cfg.Ravel {
		out = mat.NewDense(n, dataset.Channels*channelDim, nil)
	} else {
		out = mat.NewDense(dataset.Channels*n, channelDim, nil)
	}

	for i := 0; i < n; i++ {
		planes := dataset.Planes(images.RawRowView(i))
		for c, plane := range planes {
			desc := hogChannel(plane, dataset.ImageSide, dataset.ImageSide, h.cfg)
			if h.cfg.Ravel {
				copy(out.RawRowView(i)[c*channelDim:], desc)
			} else {
				out.SetRow(dataset.Channels*i+c, desc)
			}
		}
	}

	h.logger.WithFields(logrus.Fields{
		"extractor": HOGName,
		"images":    n,
		"dim":       h.Dim(),
	}).Debug("Features extracted")

	return out, nil
}

// hogChannel computes the block-normalised descriptor of one plane, ordered
// (block row, block col, cell row, cell col, orientation).
func hogChannel(plane []float64, rows, cols int, cfg HOGConfig) []float64 {
	magnitude, orientation := hogGradients(plane, rows, cols)

	cellRows, cellCols := cfg.cells(rows, cols)
	hist := cellHistograms(magnitude, orientation, cols, cellRows, cellCols, cfg)

	blockRows, blockCols := cfg.blocks(rows, cols)
	br, bc, nOri := cfg.CellsPerBlock[0], cfg.CellsPerBlock[1], cfg.Orientations
	blockLen := br * bc * nOri

	out := make([]float64, 0, blockRows*blockCols*blockLen)
	block := make([]float64, blockLen)
	for r := 0; r < blockRows; r++ {
		for c := 0; c < blockCols; c++ {
			k := 0
			for i := 0; i < br; i++ {
				for j := 0; j < bc; j++ {
					cell := hist[((r+i)*cellCols+(c+j))*nOri:]
					k += copy(block[k:], cell[:nOri])
				}
			}
			out = append(out, l2Hys(block)...)
		}
	}
	return out
}

// hogGradients uses central differences; the first and last row (column) get
// a zero row (column) gradient. Orientations are unsigned degrees in [0, 180).
func hogGradients(plane []float64, rows, cols int) ([]float64, []float64) {
	n := rows * cols
	magnitude := make([]float64, n)
	orientation := make([]float64, n)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var gRow, gCol float64
			if r > 0 && r < rows-1 {
				gRow = plane[(r+1)*cols+c] - plane[(r-1)*cols+c]
			}
			if c > 0 && c < cols-1 {
				gCol = plane[r*cols+c+1] - plane[r*cols+c-1]
			}
			p := r*cols + c
			magnitude[p] = math.Hypot(gRow, gCol)
			deg := math.Mod(math.Atan2(gRow, gCol)*180/math.Pi, 180)
			if deg < 0 {
				deg += 180
			}
			orientation[p] = deg
		}
	}
	return magnitude, orientation
}

// cellHistograms sums gradient magnitude per orientation bin over each cell,
// divided by the cell area. Pixels beyond the last full cell are ignored.
func cellHistograms(magnitude, orientation []float64, cols, cellRows, cellCols int, cfg HOGConfig) []float64 {
	ph, pw, nOri := cfg.PixelsPerCell[0], cfg.PixelsPerCell[1], cfg.Orientations
	binWidth := 180.0 / float64(nOri)
	area := float64(ph * pw)

	hist := make([]float64, cellRows*cellCols*nOri)
	for cr := 0; cr < cellRows; cr++ {
		for cc := 0; cc < cellCols; cc++ {
			cell := hist[(cr*cellCols+cc)*nOri:]
			for y := cr * ph; y < (cr+1)*ph; y++ {
				for x := cc * pw; x < (cc+1)*pw; x++ {
					p := y*cols + x
					bin := int(orientation[p] / binWidth)
					if bin >= nOri {
						continue
					}
					cell[bin] += magnitude[p]
				}
			}
			for b := 0; b < nOri; b++ {
				cell[b] /= area
			}
		}
	}
	return hist
}

// l2Hys is L2 normalisation, clipping at 0.2, then L2 normalisation again.
func l2Hys(block []float64) []float64 {
	out := make([]float64, len(block))

	sum := 0.0
	for _, v := range block {
		sum += v * v
	}
	norm := math.Sqrt(sum + hogEps*hogEps)
	for i, v := range block {
		out[i] = math.Min(v/norm, hogClip)
	}

	sum = 0
	for _, v := range out {
		sum += v * v
	}
	norm = math.Sqrt(sum + hogEps*hogEps)
	for i := range out {
		out[i] /= norm
	}
	return out
}
