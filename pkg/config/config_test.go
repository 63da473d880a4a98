package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-dbvfs/pkg/header"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbvfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	h := cfg.ToHeader()
	assert.Equal(t, uint32(header.DefaultVersion), h.Version)
	assert.Equal(t, uint32(header.DefaultPageSize), h.PageSize)
	assert.True(t, h.HasFlag(header.FlagHMAC))
	assert.Zero(t, h.ReserveSize)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
header:
  page_size: 8192
  kdf_iterations: 64000
logging:
  level: debug
metrics:
  enabled: true
  listen: "127.0.0.1:9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(8192), cfg.Header.PageSize)
	assert.Equal(t, uint32(64000), cfg.Header.KDFIterations)
	// Untouched fields keep their defaults.
	assert.Equal(t, uint32(header.DefaultVersion), cfg.Header.Version)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_RejectsBadPageSize(t *testing.T) {
	path := writeConfig(t, `
header:
  page_size: 3000
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power of two")
}

func TestLoad_RejectsWeakKDF(t *testing.T) {
	path := writeConfig(t, `
header:
  kdf_iterations: 10
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kdf_iterations")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	require.Error(t, cfg.Validate())
}
