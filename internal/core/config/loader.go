package config

import (
	"os"

	coreerrors "apisurface/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML file, applies defaults and env overrides, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	return &cfg, nil
}

// Validate checks every section and returns the first problem found as a
// VALIDATION_ERROR.
func Validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateVersion,
		validateAPI,
		validateScan,
		validateOutput,
		validateHistory,
		validateWatch,
		validateObservability,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return coreerrors.Wrap(err, coreerrors.CodeValidationError, "invalid configuration")
		}
	}
	return nil
}
