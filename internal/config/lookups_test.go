package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLookups(t *testing.T) {
	content := `
violations:
  "Alcohol - Underage": "Alcohol"
  "Alcohol Possession": "Alcohol"
locations:
  "Res Hall A": "Residence Hall A"
sanctions:
  "Warning": "Warning Letter"
`
	path := filepath.Join(t.TempDir(), "lookups.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tables, err := LoadLookups(path)
	require.NoError(t, err)

	assert.Equal(t, "Alcohol", tables.CanonicalViolation("Alcohol - Underage"))
	assert.Equal(t, "Alcohol", tables.CanonicalViolation("  Alcohol Possession  "))
	assert.Equal(t, "Residence Hall A", tables.CanonicalLocation("Res Hall A"))
	assert.Equal(t, "Warning Letter", tables.CanonicalSanction("Warning"))

	// Unknown names pass through trimmed.
	assert.Equal(t, "Hazing", tables.CanonicalViolation(" Hazing "))
}

func TestLoadLookups_EmptyPath(t *testing.T) {
	tables, err := LoadLookups("")
	require.NoError(t, err)
	assert.Equal(t, "Anything", tables.CanonicalViolation("Anything"))
}

func TestLoadLookups_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookups.yaml")
	require.NoError(t, os.WriteFile(path, []byte("violations:\n  \"A\": \"B\"\n"), 0644))

	tables, err := LoadLookups(path)
	require.NoError(t, err)
	assert.Equal(t, "B", tables.CanonicalViolation("A"))
	assert.Equal(t, "X", tables.CanonicalLocation("X"))
}

func TestLoadLookups_MissingFile(t *testing.T) {
	_, err := LoadLookups(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
