// Package config provides environment-backed configuration for neuronav commands.
package config

import (
	"github.com/caarlos0/env/v11"
)

// Config holds process-level settings shared by the neuronav commands.
type Config struct {
	// OutputDir is where recording artifacts are written.
	OutputDir string `env:"NEURONAV_OUTPUT_DIR" envDefault:"recordings"`

	// PythonBin is the interpreter used for the DepthAI driver toolchain.
	PythonBin string `env:"NEURONAV_PYTHON" envDefault:"python3"`

	// APIKey is the neuronav cloud credential. Reserved for the upload
	// feature; recording works with any non-empty value.
	APIKey string `env:"NEURONAV_API_KEY" envDefault:"local"`

	// LogLevel controls the global logger ("debug", "info", "warn", "error").
	LogLevel string `env:"NEURONAV_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
