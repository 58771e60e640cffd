package engine

import "github.com/rhuss/strom/pkg/api"

// DefaultTemperature is used when the request omits temperature.
const DefaultTemperature = 1.0

// Config holds configuration for the core engine.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// DefaultTemperature replaces an omitted temperature. Zero means
	// DefaultTemperature.
	DefaultTemperature float64

	// Validation bounds request size. The zero value means
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig
}

func (c Config) temperature() float64 {
	if c.DefaultTemperature <= 0 {
		return DefaultTemperature
	}
	return c.DefaultTemperature
}

func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
