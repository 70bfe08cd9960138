package features

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/cluster"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// BoVWName is the registry name of the SIFT bag-of-visual-words extractor
const BoVWName = "sift_bovw"

// BoVWConfig sizes the visual vocabulary and configures the descriptor detector
type BoVWConfig struct {
	Clusters  int        `yaml:"clusters"`
	BatchSize int        `yaml:"batch_size"`
	MaxIter   int        `yaml:"max_iter"`
	Seed      int64      `yaml:"seed"`
	SIFT      SIFTConfig `yaml:"sift"`
}

// DefaultBoVWConfig returns a 100-word vocabulary over default SIFT descriptors
func DefaultBoVWConfig() BoVWConfig {
	return BoVWConfig{
		Clusters:  100,
		BatchSize: 1024,
		MaxIter:   100,
		Seed:      0,
		SIFT:      DefaultSIFTConfig(),
	}
}

// BoVWConfigFromParams reads a registry parameter map over the defaults.
// SIFT parameters share the flat namespace.
func BoVWConfigFromParams(params map[string]interface{}) (BoVWConfig, error) {
	cfg := DefaultBoVWConfig()
	var err error
	if cfg.Clusters, err = intParam(params, "clusters", cfg.Clusters); err != nil {
		return cfg, err
	}
	if cfg.BatchSize, err = intParam(params, "batch_size", cfg.BatchSize); err != nil {
		return cfg, err
	}
	if cfg.MaxIter, err = intParam(params, "max_iter", cfg.MaxIter); err != nil {
		return cfg, err
	}
	if cfg.Seed, err = int64Param(params, "seed", cfg.Seed); err != nil {
		return cfg, err
	}

	s := &cfg.SIFT
	if s.Upsampling, err = intParam(params, "upsampling", s.Upsampling); err != nil {
		return cfg, err
	}
	if s.Features, err = intParam(params, "features", s.Features); err != nil {
		return cfg, err
	}
	if s.OctaveLayers, err = intParam(params, "octave_layers", s.OctaveLayers); err != nil {
		return cfg, err
	}
	if s.ContrastThreshold, err = floatParam(params, "contrast_threshold", s.ContrastThreshold); err != nil {
		return cfg, err
	}
	if s.EdgeThreshold, err = floatParam(params, "edge_threshold", s.EdgeThreshold); err != nil {
		return cfg, err
	}
	if s.Sigma, err = floatParam(params, "sigma", s.Sigma); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Params returns the configuration as a flat registry parameter map
func (c BoVWConfig) Params() map[string]interface{} {
	return map[string]interface{}{
		"clusters":           c.Clusters,
		"batch_size":         c.BatchSize,
		"max_iter":           c.MaxIter,
		"seed":               c.Seed,
		"upsampling":         c.SIFT.Upsampling,
		"features":           c.SIFT.Features,
		"octave_layers":      c.SIFT.OctaveLayers,
		"contrast_threshold": c.SIFT.ContrastThreshold,
		"edge_threshold":     c.SIFT.EdgeThreshold,
		"sigma":              c.SIFT.Sigma,
	}
}

func bovwParameterInfo() []ParameterInfo {
	d := DefaultBoVWConfig()
	return []ParameterInfo{
		{Name: "clusters", Type: "int", Default: d.Clusters, Description: "Vocabulary size"},
		{Name: "batch_size", Type: "int", Default: d.BatchSize, Description: "Mini-batch size of the k-means updates"},
		{Name: "max_iter", Type: "int", Default: d.MaxIter, Description: "Passes over the descriptor pool"},
		{Name: "seed", Type: "int", Default: d.Seed, Description: "Clustering seed, 0 for a random one"},
		{Name: "upsampling", Type: "int", Default: d.SIFT.Upsampling, Description: "Image upsampling factor before detection"},
		{Name: "features", Type: "int", Default: d.SIFT.Features, Description: "Maximum keypoints per image, 0 for all"},
		{Name: "octave_layers", Type: "int", Default: d.SIFT.OctaveLayers, Description: "Scales per octave"},
		{Name: "contrast_threshold", Type: "float", Default: d.SIFT.ContrastThreshold, Description: "Difference-of-Gaussians contrast threshold"},
		{Name: "edge_threshold", Type: "float", Default: d.SIFT.EdgeThreshold, Description: "Edge response threshold"},
		{Name: "sigma", Type: "float", Default: d.SIFT.Sigma, Description: "Blur of the base image"},
	}
}

// Validate checks the vocabulary and detector parameters
func (c BoVWConfig) Validate() error {
	if c.Clusters < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("clusters must be positive, got %d", c.Clusters), nil)
	}
	if c.BatchSize < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("batch size must be positive, got %d", c.BatchSize), nil)
	}
	if c.MaxIter < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("max iterations must be positive, got %d", c.MaxIter), nil)
	}
	return c.SIFT.Validate()
}

func (c BoVWConfig) clusterConfig() cluster.Config {
	return cluster.Config{K: c.Clusters, BatchSize: c.BatchSize, MaxIter: c.MaxIter, Seed: c.Seed}
}

// vocabularyState is either unfitted or fitted
type vocabularyState interface {
	isVocabularyState()
}

type unfitted struct{}

type fitted struct {
	model *cluster.MiniBatchKMeans
}

func (unfitted) isVocabularyState() {}
func (fitted) isVocabularyState()   {}

// BoVW encodes images as normalised histograms of SIFT descriptors over a
// learned visual vocabulary. A BoVW must not be used from several goroutines.
type BoVW struct {
	cfg    BoVWConfig
	sift   *SIFT
	state  vocabularyState
	logger *logrus.Logger
}

// NewBoVW creates an unfitted extractor
func NewBoVW(cfg BoVWConfig, opts ...Option) (*BoVW, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sift, err := NewSIFT(cfg.SIFT, opts...)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &BoVW{cfg: cfg, sift: sift, state: unfitted{}, logger: o.logger}, nil
}

func (b *BoVW) Name() string {
	return BoVWName
}

// Config returns the extractor configuration
func (b *BoVW) Config() BoVWConfig {
	return b.cfg
}

// Dim is the vocabulary size
func (b *BoVW) Dim() int {
	return b.cfg.Clusters
}

// Fitted reports whether a vocabulary has been learned
func (b *BoVW) Fitted() bool {
	_, ok := b.state.(fitted)
	return ok
}

// Vocabulary returns a copy of the prototypes, or a not-fitted error
func (b *BoVW) Vocabulary() (*mat.Dense, error) {
	f, ok := b.state.(fitted)
	if !ok {
		return nil, apperrors.NewNotFittedError("bag of visual words has no vocabulary; call Fit first")
	}
	centroids := f.model.Centroids
	v := mat.NewDense(len(centroids), len(centroids[0]), nil)
	for k, c := range centroids {
		v.SetRow(k, c)
	}
	return v, nil
}

// Descriptors returns the SIFT descriptor set of every image
func (b *BoVW) Descriptors(images *mat.Dense) ([]Descriptors, error) {
	return b.sift.Descriptors(images)
}

// Fit learns a new vocabulary from the descriptors of images, replacing any
// previous one.
func (b *BoVW) Fit(images *mat.Dense) error {
	descs, err := b.sift.Descriptors(images)
	if err != nil {
		return err
	}
	return b.FitDescriptors(descs)
}

// FitDescriptors learns the vocabulary from precomputed descriptor sets
func (b *BoVW) FitDescriptors(descs []Descriptors) error {
	var pool [][]float64
	for _, d := range descs {
		pool = append(pool, d...)
	}
	if len(pool) == 0 {
		return apperrors.NewProcessingError("no descriptors found in any image", nil)
	}
	if len(pool) < b.cfg.Clusters {
		return apperrors.NewProcessingError(
			fmt.Sprintf("descriptor pool of %d is smaller than %d clusters", len(pool), b.cfg.Clusters), nil)
	}

	model, err := cluster.New(b.cfg.clusterConfig())
	if err != nil {
		return apperrors.NewValidationError("invalid clustering configuration", err)
	}
	if err := model.Fit(pool); err != nil {
		return apperrors.NewProcessingError("vocabulary clustering failed", err)
	}
	b.state = fitted{model: model}

	b.logger.WithFields(logrus.Fields{
		"images":      len(descs),
		"descriptors": len(pool),
		"clusters":    b.cfg.Clusters,
		"steps":       model.Steps,
		"inertia":     model.Inertia,
	}).Info("Visual vocabulary fitted")

	return nil
}

// Predict returns one L2-normalised word histogram per image. Images without
// keypoints map to the zero vector.
func (b *BoVW) Predict(images *mat.Dense) (*mat.Dense, error) {
	if _, ok := b.state.(fitted); !ok {
		return nil, apperrors.NewNotFittedError("bag of visual words is not fitted; call Fit before Predict")
	}
	descs, err := b.sift.Descriptors(images)
	if err != nil {
		return nil, err
	}
	return b.Encode(descs)
}

// Encode maps precomputed descriptor sets to word histograms
func (b *BoVW) Encode(descs []Descriptors) (*mat.Dense, error) {
	f, ok := b.state.(fitted)
	if !ok {
		return nil, apperrors.NewNotFittedError("bag of visual words is not fitted; call Fit before Encode")
	}
	if len(descs) == 0 {
		return nil, apperrors.NewValidationError("no descriptor sets to encode", nil)
	}

	out := mat.NewDense(len(descs), b.cfg.Clusters, nil)
	empty := 0
	for i, d := range descs {
		if len(d) == 0 {
			empty++
			continue
		}
		words, err := f.model.Predict(d)
		if err != nil {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("assigning descriptors of image %d", i), err)
		}
		hist := out.RawRowView(i)
		for _, w := range words {
			hist[w]++
		}
		floats.Scale(1/floats.Norm(hist, 2), hist)
	}

	b.logger.WithFields(logrus.Fields{
		"extractor": BoVWName,
		"images":    len(descs),
		"empty":     empty,
	}).Debug("Features extracted")

	return out, nil
}

// ExtractFeatures is Predict
func (b *BoVW) ExtractFeatures(images *mat.Dense) (*mat.Dense, error) {
	return b.Predict(images)
}

// FitExtract fits the vocabulary on images and encodes them
func (b *BoVW) FitExtract(images *mat.Dense, labels []int) (*mat.Dense, error) {
	descs, err := b.sift.Descriptors(images)
	if err != nil {
		return nil, err
	}
	if err := b.FitDescriptors(descs); err != nil {
		return nil, err
	}
	return b.Encode(descs)
}
