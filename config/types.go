package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the root configuration for the hearth host process,
// loaded from hearth.yml.
type Config struct {
	// Bridge configures the host/UI bridge endpoint.
	Bridge BridgeConfig `yaml:"bridge"`

	// Watch configures the file watch manager.
	Watch WatchConfig `yaml:"watch"`

	// Exec configures the CLI execution engine.
	Exec ExecConfig `yaml:"exec"`

	// RateLimits overrides the built-in per-channel rate limit policies.
	RateLimits map[string]RateLimitConfig `yaml:"rate_limits"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline"`
}

// BridgeConfig configures the bridge server.
type BridgeConfig struct {
	// Listen is the local address the bridge server binds to.
	// The UI process is the only intended client.
	Listen string `yaml:"listen"`
}

// WatchConfig configures filesystem watching.
type WatchConfig struct {
	// Exclude lists directory patterns never watched (build output,
	// version control metadata). Merged with the built-in defaults.
	Exclude []string `yaml:"exclude"`
}

// ExecConfig configures external command execution.
type ExecConfig struct {
	// Shell is the shell used to run command strings. Defaults to /bin/sh.
	Shell string `yaml:"shell"`

	// KillGraceMs is how long a cancelled process gets after SIGTERM
	// before SIGKILL. Defaults to 5000.
	KillGraceMs int `yaml:"kill_grace_ms"`
}

// RateLimitConfig is a per-channel rate limit policy override.
type RateLimitConfig struct {
	WindowMs    int `yaml:"window_ms"`
	MaxRequests int `yaml:"max_requests"`
}

// KillGrace returns the configured kill grace period as a duration.
func (c ExecConfig) KillGrace() time.Duration {
	if c.KillGraceMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.KillGraceMs) * time.Millisecond
}

// UnmarshalExtension decodes an unrecognized top-level config section into a
// strongly-typed struct owned by another package. Missing keys are not an
// error; the target simply keeps its zero value.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	// Decode the generic map with yaml tag names so extension structs
	// read the same way whether they come from the file or this map.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
