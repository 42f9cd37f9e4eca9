package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "conductcli/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "display", cfg.Reports.Format)
	assert.Equal(t, 3, cfg.Schema.SlotCount)
	assert.Equal(t, []string{"College"}, cfg.Schema.GroupingColumns)
	assert.Equal(t, "CONDUCT_ANON_KEY", cfg.Anonymization.KeyEnv)
	assert.Equal(t, 32, cfg.Anonymization.TokenLength)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	content := `
logging:
  level: debug
  output: console
paths:
  input_file: /tmp/export.xlsx
reports:
  format: raw
  years: ["AY2223", "AY2324"]
  group_by: College
schema:
  slot_count: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "/tmp/export.xlsx", cfg.Paths.InputFile)
	assert.Equal(t, "raw", cfg.Reports.Format)
	assert.Equal(t, []string{"AY2223", "AY2324"}, cfg.Reports.Years)
	assert.Equal(t, 5, cfg.Schema.SlotCount)
	// Untouched values keep their defaults.
	assert.Equal(t, "data/reports", cfg.Paths.ExportDir)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	content := `
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("CONDUCT_LOGGING_LEVEL", "error")
	t.Setenv("CONDUCT_REPORTS_FORMAT", "raw")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "raw", cfg.Reports.Format)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_InvalidFormatRejected(t *testing.T) {
	t.Setenv("CONDUCT_REPORTS_FORMAT", "xml")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerrors.ErrConfigInvalid)
}

func TestAnonymizationConfig_Key(t *testing.T) {
	t.Run("environment variable wins", func(t *testing.T) {
		t.Setenv("TEST_ANON_KEY", "environment-secret-material")

		a := AnonymizationConfig{KeyEnv: "TEST_ANON_KEY", KeyFile: "/nonexistent"}
		key, err := a.Key()
		require.NoError(t, err)
		assert.Equal(t, []byte("environment-secret-material"), key)
	})

	t.Run("falls back to key file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key")
		require.NoError(t, os.WriteFile(path, []byte("file-secret-material\n"), 0600))

		a := AnonymizationConfig{KeyEnv: "TEST_ANON_KEY_UNSET", KeyFile: path}
		key, err := a.Key()
		require.NoError(t, err)
		assert.Equal(t, []byte("file-secret-material"), key)
	})

	t.Run("short key rejected", func(t *testing.T) {
		t.Setenv("TEST_ANON_KEY", "short")

		a := AnonymizationConfig{KeyEnv: "TEST_ANON_KEY"}
		_, err := a.Key()
		require.Error(t, err)
		assert.ErrorIs(t, err, pipeerrors.ErrConfigInvalid)
	})

	t.Run("no source configured", func(t *testing.T) {
		var a AnonymizationConfig
		_, err := a.Key()
		require.Error(t, err)
		assert.ErrorIs(t, err, pipeerrors.ErrConfigInvalid)
	})
}
