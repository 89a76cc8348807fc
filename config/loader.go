package config

import (
	"errors"
	"os"
)

// Load resolves the jaem-server configuration from path. If the file does
// not exist, it writes the built-in defaults to path and returns them
// (matching the original jaem_config crate's behavior: "missing file,
// write defaults and continue"). Environment variable overrides are always
// applied last, regardless of which branch produced the base Config.
func Load(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
		if writeErr := SaveToFile(cfg, path); writeErr != nil {
			return nil, writeErr
		}
	}

	applyEnvironmentOverrides(cfg)
	return cfg, nil
}
