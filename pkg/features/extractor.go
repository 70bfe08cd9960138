// Feature extractors mapping image batches to fixed-length feature vectors
package features

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/logging"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// Extractor maps a batch of images (one per row) to a batch of feature vectors
type Extractor interface {
	Name() string
	Fit(images *mat.Dense) error
	ExtractFeatures(images *mat.Dense) (*mat.Dense, error)
	FitExtract(images *mat.Dense, labels []int) (*mat.Dense, error)
}

// ParameterInfo describes a parameter of a registered extractor
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float", "bool", "string", "pair"
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
	Options     []string    `json:"options,omitempty"`
}

// Registration binds a name to an extractor factory
type Registration struct {
	Description string
	Defaults    func() map[string]interface{}
	Parameters  []ParameterInfo
	Factory     func(params map[string]interface{}, opts ...Option) (Extractor, error)
}

var registry = make(map[string]Registration)

// Register adds or replaces an extractor
func Register(name string, r Registration) {
	registry[name] = r
}

// New builds a registered extractor. Missing parameters take their defaults.
func New(name string, params map[string]interface{}, opts ...Option) (Extractor, error) {
	r, exists := registry[name]
	if !exists {
		return nil, apperrors.NewValidationError(fmt.Sprintf("extractor not found: %s", name), nil)
	}
	return r.Factory(params, opts...)
}

// Names returns the registered extractor names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultParams returns the default parameter map of an extractor
func DefaultParams(name string) (map[string]interface{}, bool) {
	r, exists := registry[name]
	if !exists {
		return nil, false
	}
	return r.Defaults(), true
}

// Parameters describes the parameters of an extractor
func Parameters(name string) ([]ParameterInfo, bool) {
	r, exists := registry[name]
	if !exists {
		return nil, false
	}
	return r.Parameters, true
}

// Option configures an extractor
type Option func(*options)

type options struct {
	logger *logrus.Logger
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func init() {
	Register(HOGName, Registration{
		Description: "Histogram of oriented gradients per RGB channel",
		Defaults:    func() map[string]interface{} { return DefaultHOGConfig().Params() },
		Parameters:  hogParameterInfo(),
		Factory: func(params map[string]interface{}, opts ...Option) (Extractor, error) {
			cfg, err := HOGConfigFromParams(params)
			if err != nil {
				return nil, err
			}
			return NewHOG(cfg, opts...)
		},
	})

	Register(DAISYName, Registration{
		Description: "Dense DAISY descriptors per RGB channel",
		Defaults:    func() map[string]interface{} { return DefaultDAISYConfig().Params() },
		Parameters:  daisyParameterInfo(),
		Factory: func(params map[string]interface{}, opts ...Option) (Extractor, error) {
			cfg, err := DAISYConfigFromParams(params)
			if err != nil {
				return nil, err
			}
			return NewDAISY(cfg, opts...)
		},
	})

	Register(BoVWName, Registration{
		Description: "SIFT descriptors encoded on a k-means visual vocabulary",
		Defaults:    func() map[string]interface{} { return DefaultBoVWConfig().Params() },
		Parameters:  bovwParameterInfo(),
		Factory: func(params map[string]interface{}, opts ...Option) (Extractor, error) {
			cfg, err := BoVWConfigFromParams(params)
			if err != nil {
				return nil, err
			}
			return NewBoVW(cfg, opts...)
		},
	})
}
