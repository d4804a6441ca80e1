// Package config provides configuration loading for the rubric CLI and server.
//
// Values are resolved in order: defaults, then the YAML file (if any), then
// RUBRIC_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "rubric.yaml"

// Environment variable names.
const (
	EnvDB      = "RUBRIC_DB"
	EnvAddr    = "RUBRIC_ADDR"
	EnvOrgID   = "RUBRIC_ORG_ID"
	EnvOrgName = "RUBRIC_ORG_NAME"
	EnvLogMode = "RUBRIC_LOG_MODE"
)

// Config is the complete rubric configuration.
type Config struct {
	// DB is the SQLite database path.
	DB string `yaml:"db"`
	// Addr is the HTTP listen address for serve.
	Addr string    `yaml:"addr"`
	Org  OrgConfig `yaml:"org"`
	Log  LogConfig `yaml:"log"`
}

// OrgConfig names the organization the CLI acts for.
type OrgConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Mode is "development" (console) or "production" (JSON).
	Mode string `yaml:"mode"`
}

// DefaultConfig returns a Config with defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		DB:   "rubric.db",
		Addr: ":8080",
		Org: OrgConfig{
			ID:   "default",
			Name: "My Organization",
		},
		Log: LogConfig{Mode: "development"},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("db is required")
	}
	if c.Org.ID == "" {
		return fmt.Errorf("org.id is required")
	}
	switch c.Log.Mode {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("log.mode must be development or production, got %q", c.Log.Mode)
	}
	return nil
}

// Load resolves the configuration. An empty path reads DefaultPath when it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from environment variables that are set and
// non-empty.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.DB, EnvDB)
	set(&c.Addr, EnvAddr)
	set(&c.Org.ID, EnvOrgID)
	set(&c.Org.Name, EnvOrgName)
	set(&c.Log.Mode, EnvLogMode)
}
