package config

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/pkg/paths"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses a hearth configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data)
}

// DefaultPath returns the standard config file location
// (~/.config/hearth/hearth.yml).
func DefaultPath() string {
	return filepath.Join(paths.ConfigDir(), "hearth.yml")
}

// LoadDefault loads the configuration from the standard location. A missing
// file yields the built-in defaults rather than an error, so the host can
// run unconfigured.
func LoadDefault() (*Config, error) {
	cfg, err := Load(DefaultPath())
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			cfg = &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from raw YAML, expanding ${VAR}
// environment references first.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRegex.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Bridge.Listen == "" {
		cfg.Bridge.Listen = "127.0.0.1:7391"
	}
	if cfg.Exec.Shell == "" {
		cfg.Exec.Shell = "/bin/sh"
	}
	if cfg.Exec.KillGraceMs <= 0 {
		cfg.Exec.KillGraceMs = 5000
	}
}
