package features

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/cvutil"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// DAISYName is the registry name of the DAISY extractor
const DAISYName = "daisy"

// Descriptor normalisations
const (
	NormalizationL1    = "l1"
	NormalizationL2    = "l2"
	NormalizationDaisy = "daisy"
	NormalizationOff   = "off"
)

const daisyEps = 1e-10

// DAISYConfig holds the sampling grid and descriptor layout
type DAISYConfig struct {
	Step          int    `yaml:"step"`
	Radius        int    `yaml:"radius"`
	Rings         int    `yaml:"rings"`
	Histograms    int    `yaml:"histograms"`
	Orientations  int    `yaml:"orientations"`
	Normalization string `yaml:"normalization"`
}

// DefaultDAISYConfig returns a 4×4 grid of 2-ring descriptors for 32×32 images
func DefaultDAISYConfig() DAISYConfig {
	return DAISYConfig{
		Step:          4,
		Radius:        8,
		Rings:         2,
		Histograms:    6,
		Orientations:  8,
		Normalization: NormalizationL1,
	}
}

// DAISYConfigFromParams reads a registry parameter map over the defaults
func DAISYConfigFromParams(params map[string]interface{}) (DAISYConfig, error) {
	cfg := DefaultDAISYConfig()
	var err error
	if cfg.Step, err = intParam(params, "step", cfg.Step); err != nil {
		return cfg, err
	}
	if cfg.Radius, err = intParam(params, "radius", cfg.Radius); err != nil {
		return cfg, err
	}
	if cfg.Rings, err = intParam(params, "rings", cfg.Rings); err != nil {
		return cfg, err
	}
	if cfg.Histograms, err = intParam(params, "histograms", cfg.Histograms); err != nil {
		return cfg, err
	}
	if cfg.Orientations, err = intParam(params, "orientations", cfg.Orientations); err != nil {
		return cfg, err
	}
	if cfg.Normalization, err = stringParam(params, "normalization", cfg.Normalization); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Params returns the configuration as a registry parameter map
func (c DAISYConfig) Params() map[string]interface{} {
	return map[string]interface{}{
		"step":          c.Step,
		"radius":        c.Radius,
		"rings":         c.Rings,
		"histograms":    c.Histograms,
		"orientations":  c.Orientations,
		"normalization": c.Normalization,
	}
}

func daisyParameterInfo() []ParameterInfo {
	d := DefaultDAISYConfig()
	return []ParameterInfo{
		{Name: "step", Type: "int", Default: d.Step, Description: "Distance between descriptor centres"},
		{Name: "radius", Type: "int", Default: d.Radius, Description: "Radius of the outermost ring"},
		{Name: "rings", Type: "int", Default: d.Rings, Description: "Number of rings"},
		{Name: "histograms", Type: "int", Default: d.Histograms, Description: "Histograms per ring"},
		{Name: "orientations", Type: "int", Default: d.Orientations, Description: "Orientation bins per histogram"},
		{Name: "normalization", Type: "string", Default: d.Normalization, Description: "Descriptor normalisation",
			Options: []string{NormalizationL1, NormalizationL2, NormalizationDaisy, NormalizationOff}},
	}
}

// Validate checks the configuration against a 32×32 image
func (c DAISYConfig) Validate() error {
	if c.Step < 1 || c.Radius < 1 || c.Rings < 1 || c.Histograms < 1 || c.Orientations < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("daisy parameters must be positive: %+v", c), nil)
	}
	if 2*c.Radius >= dataset.ImageSide {
		return apperrors.NewValidationError(
			fmt.Sprintf("radius %d leaves no descriptor position in a %dx%d image", c.Radius, dataset.ImageSide, dataset.ImageSide), nil)
	}
	switch c.Normalization {
	case NormalizationL1, NormalizationL2, NormalizationDaisy, NormalizationOff:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown normalization %q", c.Normalization), nil)
	}
	return nil
}

// DescriptorLen is the length of one descriptor
func (c DAISYConfig) DescriptorLen() int {
	return (c.Rings*c.Histograms + 1) * c.Orientations
}

// gridPositions is the number of descriptor centres along a side of length n
func (c DAISYConfig) gridPositions(n int) int {
	span := n - 2*c.Radius
	if span <= 0 {
		return 0
	}
	return (span + c.Step - 1) / c.Step
}

// ChannelDim is the descriptor length of one rows×cols channel
func (c DAISYConfig) ChannelDim(rows, cols int) int {
	return c.gridPositions(rows) * c.gridPositions(cols) * c.DescriptorLen()
}

// DAISY extracts dense DAISY descriptors independently per channel
type DAISY struct {
	cfg    DAISYConfig
	logger *logrus.Logger
}

// NewDAISY creates a DAISY extractor
func NewDAISY(cfg DAISYConfig, opts ...Option) (*DAISY, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &DAISY{cfg: cfg, logger: o.logger}, nil
}

func (d *DAISY) Name() string {
	return DAISYName
}

// Config returns the extractor configuration
func (d *DAISY) Config() DAISYConfig {
	return d.cfg
}

// Dim is the number of columns ExtractFeatures returns
func (d *DAISY) Dim() int {
	return dataset.Channels * d.cfg.ChannelDim(dataset.ImageSide, dataset.ImageSide)
}

// Fit does nothing; DAISY has no learned state.
func (d *DAISY) Fit(images *mat.Dense) error {
	return nil
}

// FitExtract is Fit followed by ExtractFeatures
func (d *DAISY) FitExtract(images *mat.Dense, labels []int) (*mat.Dense, error) {
	if err := d.Fit(images); err != nil {
		return nil, err
	}
	return d.ExtractFeatures(images)
}

// ExtractFeatures returns, per image, the descriptor grids of the R, G and B
// channels, each flattened position by position.
func (d *DAISY) ExtractFeatures(images *mat.Dense) (*mat.Dense, error) {
	if err := dataset.ValidateImages(images); err != nil {
		return nil, err
	}

	n, _ := images.Dims()
	channelDim := d.cfg.ChannelDim(dataset.ImageSide, dataset.ImageSide)
	out := mat.NewDense(n, dataset.Channels*channelDim, nil)

	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		for c, plane := range dataset.Planes(images.RawRowView(i)) {
			desc, err := daisyChannel(plane, dataset.ImageSide, dataset.ImageSide, d.cfg)
			if err != nil {
				return nil, apperrors.NewProcessingError(fmt.Sprintf("daisy on image %d channel %d", i, c), err)
			}
			copy(row[c*channelDim:], desc)
		}
	}

	d.logger.WithFields(logrus.Fields{
		"extractor": DAISYName,
		"images":    n,
		"dim":       d.Dim(),
	}).Debug("Features extracted")

	return out, nil
}

// daisyChannel computes the descriptor grid of one plane.
func daisyChannel(plane []float64, rows, cols int, cfg DAISYConfig) ([]float64, error) {
	maps := orientationMaps(plane, rows, cols, cfg.Orientations)

	// level 0 smooths the centre histogram, level i+1 ring i
	sigmas := make([]float64, cfg.Rings+1)
	for i := 0; i < cfg.Rings; i++ {
		sigmas[i+1] = float64(cfg.Radius) * float64(i+1) / float64(2*cfg.Rings)
	}
	sigmas[0] = sigmas[1]

	smoothed := make([][][]float64, cfg.Rings+1)
	for level := range smoothed {
		if level == 1 {
			smoothed[1] = smoothed[0]
			continue
		}
		smoothed[level] = make([][]float64, cfg.Orientations)
		for o, m := range maps {
			s, err := cvutil.GaussianSmooth(m, rows, cols, sigmas[level])
			if err != nil {
				return nil, err
			}
			smoothed[level][o] = s
		}
	}

	type offset struct{ dy, dx int }
	offsets := make([]offset, 0, cfg.Rings*cfg.Histograms)
	for i := 0; i < cfg.Rings; i++ {
		ringRadius := float64(cfg.Radius) * float64(i+1) / float64(cfg.Rings)
		for j := 0; j < cfg.Histograms; j++ {
			theta := 2 * math.Pi * float64(j) / float64(cfg.Histograms)
			offsets = append(offsets, offset{
				dy: int(math.RoundToEven(ringRadius * math.Sin(theta))),
				dx: int(math.RoundToEven(ringRadius * math.Cos(theta))),
			})
		}
	}

	descLen := cfg.DescriptorLen()
	out := make([]float64, 0, cfg.ChannelDim(rows, cols))
	desc := make([]float64, descLen)

	for y := cfg.Radius; y < rows-cfg.Radius; y += cfg.Step {
		for x := cfg.Radius; x < cols-cfg.Radius; x += cfg.Step {
			for o := 0; o < cfg.Orientations; o++ {
				desc[o] = smoothed[0][o][y*cols+x]
			}
			idx := cfg.Orientations
			for k, off := range offsets {
				ring := k/cfg.Histograms + 1
				p := (y+off.dy)*cols + (x + off.dx)
				for o := 0; o < cfg.Orientations; o++ {
					desc[idx+o] = smoothed[ring][o][p]
				}
				idx += cfg.Orientations
			}
			normalizeDaisy(desc, cfg)
			out = append(out, desc...)
		}
	}
	return out, nil
}

// orientationMaps weighs the forward-difference gradient magnitude by a
// circular normal (von Mises) response around each bin centre.
func orientationMaps(plane []float64, rows, cols, orientations int) [][]float64 {
	n := rows * cols
	magnitude := make([]float64, n)
	angle := make([]float64, n)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var dx, dy float64
			p := r*cols + c
			if c < cols-1 {
				dx = plane[p+1] - plane[p]
			}
			if r < rows-1 {
				dy = plane[p+cols] - plane[p]
			}
			magnitude[p] = math.Sqrt(dx*dx + dy*dy)
			angle[p] = math.Atan2(dy, dx)
		}
	}

	kappa := float64(orientations) / math.Pi
	maps := make([][]float64, orientations)
	for i := range maps {
		centre := 2*float64(i)*math.Pi/float64(orientations) - math.Pi
		m := make([]float64, n)
		for p := range m {
			m[p] = math.Exp(kappa*math.Cos(angle[p]-centre)) * magnitude[p]
		}
		maps[i] = m
	}
	return maps
}

func normalizeDaisy(desc []float64, cfg DAISYConfig) {
	if cfg.Normalization == NormalizationOff {
		return
	}
	for i := range desc {
		desc[i] += daisyEps
	}

	switch cfg.Normalization {
	case NormalizationL1:
		sum := 0.0
		for _, v := range desc {
			sum += v
		}
		for i := range desc {
			desc[i] /= sum
		}
	case NormalizationL2:
		scaleToUnit(desc)
	case NormalizationDaisy:
		for i := 0; i < len(desc); i += cfg.Orientations {
			scaleToUnit(desc[i : i+cfg.Orientations])
		}
	}
}

func scaleToUnit(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}
