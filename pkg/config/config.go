// Package config loads the YAML configuration of the data preparation tools
// and builds the configured components.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/logging"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/augment"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/dataset"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
	"github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/features"
)

// Environment variables that override the file
const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvDataDir   = "DATA_DIR"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

type FlipConfig struct {
	Ratio float64 `yaml:"ratio"`
}

// AugmentConfig configures both augmenters. Seed 0 uses the process-wide source.
type AugmentConfig struct {
	Seed   int64                 `yaml:"seed"`
	Flip   FlipConfig            `yaml:"flip"`
	Rotate augment.RotateOptions `yaml:"rotate"`
}

// Config is the top-level configuration
type Config struct {
	Log     LogConfig            `yaml:"log"`
	Data    DataConfig           `yaml:"data"`
	Augment AugmentConfig        `yaml:"augment"`
	HOG     features.HOGConfig   `yaml:"hog"`
	DAISY   features.DAISYConfig `yaml:"daisy"`
	BoVW    features.BoVWConfig  `yaml:"bovw"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: logging.FormatText},
		Data: DataConfig{Dir: "./data"},
		Augment: AugmentConfig{
			Flip:   FlipConfig{Ratio: 0.2},
			Rotate: augment.DefaultRotateOptions(),
		},
		HOG:   features.DefaultHOGConfig(),
		DAISY: features.DefaultDAISYConfig(),
		BoVW:  features.DefaultBoVWConfig(),
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("reading config %s", path), err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping values the document does not set.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("parsing config", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnvOrDefault(EnvLogLevel, c.Log.Level)
	c.Log.Format = getEnvOrDefault(EnvLogFormat, c.Log.Format)
	c.Data.Dir = getEnvOrDefault(EnvDataDir, c.Data.Dir)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks every section
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown log format %q", c.Log.Format), nil)
	}
	if r := c.Augment.Flip.Ratio; r <= 0 || r > 1 {
		return apperrors.NewValidationError(fmt.Sprintf("augment.flip.ratio must be in (0, 1], got %v", r), nil)
	}
	if r := c.Augment.Rotate.Ratio; r <= 0 || r > 1 {
		return apperrors.NewValidationError(fmt.Sprintf("augment.rotate.ratio must be in (0, 1], got %v", r), nil)
	}
	if err := c.Augment.Rotate.Validate(); err != nil {
		return err
	}
	if err := c.HOG.Validate(); err != nil {
		return err
	}
	if err := c.DAISY.Validate(); err != nil {
		return err
	}
	return c.BoVW.Validate()
}

// NewLogger builds the configured logger
func (c *Config) NewLogger() *logrus.Logger {
	return logging.New(logging.Options{Level: c.Log.Level, Format: c.Log.Format})
}

// NewReader builds a CSV reader logging to logger
func (c *Config) NewReader(logger *logrus.Logger) *dataset.Reader {
	return dataset.NewReader(dataset.WithReaderLogger(logger))
}

// ReadData reads the tables of the configured data directory
func (c *Config) ReadData(logger *logrus.Logger) (*dataset.Tables, error) {
	return c.NewReader(logger).ReadDir(c.Data.Dir)
}

// NewAugmenter builds an augmenter, seeded when Augment.Seed is non-zero
func (c *Config) NewAugmenter(logger *logrus.Logger) *augment.Augmenter {
	opts := []augment.Option{augment.WithLogger(logger)}
	if c.Augment.Seed != 0 {
		opts = append(opts, augment.WithSeed(c.Augment.Seed))
	}
	return augment.New(opts...)
}

func (c *Config) NewHOG(logger *logrus.Logger) (*features.HOG, error) {
	return features.NewHOG(c.HOG, features.WithLogger(logger))
}

func (c *Config) NewDAISY(logger *logrus.Logger) (*features.DAISY, error) {
	return features.NewDAISY(c.DAISY, features.WithLogger(logger))
}

func (c *Config) NewBoVW(logger *logrus.Logger) (*features.BoVW, error) {
	return features.NewBoVW(c.BoVW, features.WithLogger(logger))
}

// NewExtractor builds an extractor by registry name from its configured section
func (c *Config) NewExtractor(name string, logger *logrus.Logger) (features.Extractor, error) {
	var (
		ext features.Extractor
		err error
	)
	switch name {
	case features.HOGName:
		ext, err = c.NewHOG(logger)
	case features.DAISYName:
		ext, err = c.NewDAISY(logger)
	case features.BoVWName:
		ext, err = c.NewBoVW(logger)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("extractor not found: %s", name), nil)
	}
	if err != nil {
		return nil, err
	}
	return ext, nil
}
