// Package config loads and validates overlay VFS configuration from YAML.
// The header section sets the field values stamped into lazily created
// headers; it does not affect detection of existing headers, which always
// trusts the on-disk bytes.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-dbvfs/pkg/header"
)

var (
	// validate is a singleton validator instance
	validate = validator.New()

	// MinKDFIterations is the floor accepted for configured KDF work factors.
	MinKDFIterations uint32 = 4000
)

// Config is the top-level configuration document.
type Config struct {
	Header  HeaderConfig  `yaml:"header"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HeaderConfig sets the metadata fields written into new headers.
type HeaderConfig struct {
	Version           uint32 `yaml:"version" validate:"required,min=1"`
	PageSize          uint32 `yaml:"page_size" validate:"required,min=512,max=65536"`
	KDFIterations     uint32 `yaml:"kdf_iterations" validate:"required"`
	FastKDFIterations uint32 `yaml:"fast_kdf_iterations" validate:"required,min=1"`
	HMAC              bool   `yaml:"hmac"`
}

// LoggingConfig controls the JSON logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Header: HeaderConfig{
			Version:           header.DefaultVersion,
			PageSize:          header.DefaultPageSize,
			KDFIterations:     header.DefaultKDFIterations,
			FastKDFIterations: header.DefaultFastKDFIterations,
			HMAC:              true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads and validates a YAML configuration file. Fields absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags plus the constraints tags can't express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if c.Header.PageSize&(c.Header.PageSize-1) != 0 {
		return fmt.Errorf("header.page_size: %d is not a power of two", c.Header.PageSize)
	}
	if c.Header.KDFIterations < MinKDFIterations {
		return fmt.Errorf("header.kdf_iterations: %d below minimum %d", c.Header.KDFIterations, MinKDFIterations)
	}
	return nil
}

// ToHeader converts the header section into a header template. ReserveSize is
// left zero; the overlay sizes it from the device sector at open time.
func (c *Config) ToHeader() header.Header {
	h := header.Header{
		Version:           c.Header.Version,
		PageSize:          c.Header.PageSize,
		KDFIterations:     c.Header.KDFIterations,
		FastKDFIterations: c.Header.FastKDFIterations,
	}
	if c.Header.HMAC {
		h.Flags |= header.FlagHMAC
	}
	return h
}

// formatValidationError rewrites validator errors into readable messages.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		return fmt.Errorf("%s: failed %s validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}
