package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8010"`
	Host     string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_HOST", "0.0.0.0")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_RequiredFieldPresent(t *testing.T) {
	t.Setenv("TEST_CFG_API_KEY", "secret-123")

	var cfg requiredConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, "secret-123", cfg.APIKey)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type overlay struct {
	Prefix string         `yaml:"prefix"`
	Shards int            `yaml:"shards"`
	Fields map[string]int `yaml:"fields"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML_OverlaysDefaults(t *testing.T) {
	path := writeFile(t, "shards: 3\nfields:\n  color_it: 2\n")

	cfg := overlay{Prefix: "products", Shards: 1, Fields: map[string]int{"name_de": 1}}
	require.NoError(t, LoadYAML(path, &cfg))

	assert.Equal(t, "products", cfg.Prefix)
	assert.Equal(t, 3, cfg.Shards)
	assert.Equal(t, map[string]int{"name_de": 1, "color_it": 2}, cfg.Fields)
}

func TestLoadYAML_EmptyFile(t *testing.T) {
	path := writeFile(t, "")

	cfg := overlay{Prefix: "products"}
	require.NoError(t, LoadYAML(path, &cfg))
	assert.Equal(t, "products", cfg.Prefix)
}

func TestLoadYAML_UnknownKey(t *testing.T) {
	path := writeFile(t, "shard_count: 3\n")

	var cfg overlay
	err := LoadYAML(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoadYAML_MissingFile(t *testing.T) {
	var cfg overlay
	err := LoadYAML(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
