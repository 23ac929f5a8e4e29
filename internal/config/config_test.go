package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "c", cfg.IndexStyle)
	assert.Equal(t, hclog.Info, cfg.Level())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aml.yaml")
	data := []byte(`workers: 3
index_style: fortran
log_level: debug
check:
  step: 0.001
metrics:
  enabled: true
  namespace: solver
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "fortran", cfg.IndexStyle)
	assert.Equal(t, hclog.Debug, cfg.Level())
	assert.Equal(t, 0.001, cfg.Check.Step)
	assert.Equal(t, Default().Check.Tolerance, cfg.Check.Tolerance, "unset keys keep defaults")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "solver", cfg.Metrics.Namespace)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aml.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\n"), 0o600))
	t.Setenv("AML_WORKERS", "1")
	t.Setenv("AML_INDEX_STYLE", "f")
	t.Setenv("AML_CHECK_TOLERANCE", "1e-6")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "f", cfg.IndexStyle)
	assert.Equal(t, 1e-6, cfg.Check.Tolerance)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("AML_WORKERS", "many")
	t.Setenv("AML_CHECK_STEP", "tiny")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AML_WORKERS")
	assert.Contains(t, err.Error(), "AML_CHECK_STEP")
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aml.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Workers = -1
	cfg.IndexStyle = "pascal"
	cfg.LogLevel = "loud"
	cfg.Check.Step = 0
	cfg.Check.Tolerance = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"workers", "index_style", "log_level", "check.step", "check.tolerance"} {
		assert.Contains(t, err.Error(), want)
	}
}
