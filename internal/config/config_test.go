package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tryit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spec: ./api.yaml\nbaseURL: http://localhost:8000\ntimeout: 3s\nrequestID: true\n"), 0o600))

	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path))
	assert.Equal(t, "./api.yaml", cfg.Spec)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.True(t, cfg.RequestID)
	assert.Equal(t, "info", cfg.LogLevel, "defaults survive")
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tryit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sepc: typo\n"), 0o600))
	cfg := Default()
	assert.Error(t, LoadFile(&cfg, path))
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tryit.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path))
	assert.Equal(t, Default(), cfg)
}

func TestEnvDotFileAndProcess(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("TRYIT_SPEC=from-dotenv\nTRYIT_TOKEN=abc\n"), 0o600))
	t.Setenv("TRYIT_SPEC", "from-process")

	vars, err := Env(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "from-process", vars["TRYIT_SPEC"])
	assert.Equal(t, "abc", vars["TRYIT_TOKEN"])

	_, err = Env(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, map[string]string{
		"TRYIT_BASE_URL":    "http://api",
		"TRYIT_TIMEOUT":     "2s",
		"TRYIT_MIN_PENDING": "0s",
		"TRYIT_DEBUG":       "true",
		"TRYIT_LOG_LEVEL":   "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://api", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, time.Duration(0), cfg.MinPending)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "info", cfg.LogLevel, "blank values are ignored")

	assert.Error(t, ApplyEnv(&cfg, map[string]string{"TRYIT_TIMEOUT": "soon"}))
	assert.Error(t, ApplyEnv(&cfg, map[string]string{"TRYIT_DEBUG": "maybe"}))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())
	cfg.Spec = "api.yaml"
	assert.NoError(t, cfg.Validate())
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}
