package config

import "os"

// applyEnvironmentOverrides layers JAEM_* environment variables on top of an
// already-defaulted Config, highest priority last.
func applyEnvironmentOverrides(cfg *Config) {
	if addr := os.Getenv("JAEM_MDE_ADDRESS"); addr != "" {
		cfg.MessageDelivery.Address = addr
	}
	if port := os.Getenv("JAEM_MDE_PORT"); port != "" {
		if v, ok := parseUint16(port); ok {
			cfg.MessageDelivery.Port = v
		}
	}
	if path := os.Getenv("JAEM_MDE_STORAGE_PATH"); path != "" {
		cfg.MessageDelivery.StoragePath = path
	}
	if dir := os.Getenv("JAEM_MDE_SHARE_DIRECTORY"); dir != "" {
		cfg.MessageDelivery.ShareDirectory = dir
	}

	if port := os.Getenv("JAEM_UDS_PORT"); port != "" {
		if v, ok := parseUint16(port); ok {
			cfg.UserDiscovery.Port = v
		}
	}
	if path := os.Getenv("JAEM_UDS_STORAGE_PATH"); path != "" {
		cfg.UserDiscovery.StoragePath = path
	}
}

func parseUint16(s string) (uint16, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + uint64(r-'0')
		if v > 0xFFFF {
			return 0, false
		}
	}
	return uint16(v), true
}
