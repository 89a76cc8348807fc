// Package config loads the jaem-server TOML configuration shared by the
// message-delivery and user-discovery command-line entry points.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config mirrors testconfig.toml's two optional sub-tables.
type Config struct {
	MessageDelivery *MessageDeliveryConfig `toml:"message_delivery_config"`
	UserDiscovery   *UserDiscoveryConfig   `toml:"user_discovery_config"`
}

// MessageDeliveryConfig configures the MDE service.
type MessageDeliveryConfig struct {
	ShareDirectory string `toml:"share_directory"`
	StoragePath    string `toml:"storage_path"`
	Address        string `toml:"address"`
	Port           uint16 `toml:"port"`
}

// UserDiscoveryConfig configures the UDS service.
type UserDiscoveryConfig struct {
	Port        uint16 `toml:"port"`
	StoragePath string `toml:"storage_path"`
}

// DefaultMessageDeliveryConfig returns the built-in MDE defaults.
func DefaultMessageDeliveryConfig() *MessageDeliveryConfig {
	return &MessageDeliveryConfig{
		ShareDirectory: "./share",
		StoragePath:    "./messages",
		Address:        "127.0.0.1",
		Port:           8081,
	}
}

// DefaultUserDiscoveryConfig returns the built-in UDS defaults.
func DefaultUserDiscoveryConfig() *UserDiscoveryConfig {
	return &UserDiscoveryConfig{
		Port:        3000,
		StoragePath: "/var/lib/jaem-server/user-discovery/users.json",
	}
}

// Default returns a Config with both sub-tables populated with built-in
// defaults.
func Default() *Config {
	return &Config{
		MessageDelivery: DefaultMessageDeliveryConfig(),
		UserDiscovery:   DefaultUserDiscoveryConfig(),
	}
}

// setDefaults fills in any unset field on an already-parsed Config, so a
// testconfig.toml that only defines one sub-table (or omits individual
// fields) still produces a fully populated Config.
func setDefaults(cfg *Config) {
	if cfg.MessageDelivery == nil {
		cfg.MessageDelivery = DefaultMessageDeliveryConfig()
	} else {
		d := DefaultMessageDeliveryConfig()
		if cfg.MessageDelivery.ShareDirectory == "" {
			cfg.MessageDelivery.ShareDirectory = d.ShareDirectory
		}
		if cfg.MessageDelivery.StoragePath == "" {
			cfg.MessageDelivery.StoragePath = d.StoragePath
		}
		if cfg.MessageDelivery.Address == "" {
			cfg.MessageDelivery.Address = d.Address
		}
		if cfg.MessageDelivery.Port == 0 {
			cfg.MessageDelivery.Port = d.Port
		}
	}

	if cfg.UserDiscovery == nil {
		cfg.UserDiscovery = DefaultUserDiscoveryConfig()
	} else {
		d := DefaultUserDiscoveryConfig()
		if cfg.UserDiscovery.StoragePath == "" {
			cfg.UserDiscovery.StoragePath = d.StoragePath
		}
		if cfg.UserDiscovery.Port == 0 {
			cfg.UserDiscovery.Port = d.Port
		}
	}
}

// LoadFromFile parses a TOML document at path into a Config, applying
// defaults to any field the document leaves unset.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path as TOML, create-truncating the file.
func SaveToFile(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
