package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes(t *testing.T) {
	yml := `
bridge:
  listen: "127.0.0.1:9000"
watch:
  exclude:
    - "**/coverage"
exec:
  shell: /bin/bash
  kill_grace_ms: 2000
rate_limits:
  cli:execute:
    window_ms: 500
    max_requests: 2
`
	cfg, err := LoadFromBytes([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Bridge.Listen)
	assert.Equal(t, []string{"**/coverage"}, cfg.Watch.Exclude)
	assert.Equal(t, "/bin/bash", cfg.Exec.Shell)
	assert.Equal(t, 2000, cfg.Exec.KillGraceMs)

	policy, ok := cfg.RateLimits["cli:execute"]
	require.True(t, ok)
	assert.Equal(t, 500, policy.WindowMs)
	assert.Equal(t, 2, policy.MaxRequests)
}

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7391", cfg.Bridge.Listen)
	assert.Equal(t, "/bin/sh", cfg.Exec.Shell)
	assert.Equal(t, 5000, cfg.Exec.KillGraceMs)
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("HEARTH_TEST_SHELL", "/usr/bin/zsh")
	defer os.Unsetenv("HEARTH_TEST_SHELL")

	cfg, err := LoadFromBytes([]byte("exec:\n  shell: ${HEARTH_TEST_SHELL}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/zsh", cfg.Exec.Shell)
}

func TestUnmarshalExtension(t *testing.T) {
	yml := `
bridge:
  listen: "127.0.0.1:9000"
logging:
  level: debug
  report_caller: true
`
	cfg, err := LoadFromBytes([]byte(yml))
	require.NoError(t, err)

	var logCfg struct {
		Level        string `yaml:"level"`
		ReportCaller bool   `yaml:"report_caller"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.True(t, logCfg.ReportCaller)

	// Missing key leaves the target zero-valued
	var other struct {
		Unused string `yaml:"unused"`
	}
	require.NoError(t, cfg.UnmarshalExtension("missing", &other))
	assert.Empty(t, other.Unused)
}
