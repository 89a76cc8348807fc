package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testconfig.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.MessageDelivery.Address)
	require.EqualValues(t, 8081, cfg.MessageDelivery.Port)
	require.EqualValues(t, 3000, cfg.UserDiscovery.Port)

	require.FileExists(t, path)

	reloaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg.MessageDelivery.Address, reloaded.MessageDelivery.Address)
}

func TestLoadFromFilePartialTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testconfig.toml")
	doc := `[message_delivery_config]
port = 9090
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.EqualValues(t, 9090, cfg.MessageDelivery.Port)
	require.Equal(t, "127.0.0.1", cfg.MessageDelivery.Address) // defaulted
	require.NotNil(t, cfg.UserDiscovery)                        // defaulted whole table
	require.EqualValues(t, 3000, cfg.UserDiscovery.Port)
}

func TestLoadFromFileMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testconfig.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml [["), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestEnvironmentOverridesTakePriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testconfig.toml")

	t.Setenv("JAEM_MDE_PORT", "9999")
	t.Setenv("JAEM_UDS_STORAGE_PATH", "/tmp/users.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 9999, cfg.MessageDelivery.Port)
	require.Equal(t, "/tmp/users.json", cfg.UserDiscovery.StoragePath)
}

func TestParseUint16(t *testing.T) {
	v, ok := parseUint16("8081")
	require.True(t, ok)
	require.EqualValues(t, 8081, v)

	_, ok = parseUint16("not-a-port")
	require.False(t, ok)

	_, ok = parseUint16("99999999")
	require.False(t, ok)
}
