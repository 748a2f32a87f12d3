// Package config loads the client configuration for the current project
// directory.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultServerURL is used when neither file, env nor flag names one.
	DefaultServerURL = "http://localhost:8080"

	// DefaultFile is the per-project configuration file name.
	DefaultFile = "envault.yaml"

	// DefaultRegistry is the per-project registry location. The directory
	// belongs in .gitignore, it holds the encryption keys.
	DefaultRegistry = ".envault/registry.json"

	defaultTimeoutSeconds = 30
)

// Config is the envault.yaml structure.
type Config struct {
	ServerURL string `yaml:"server_url"`
	Registry  string `yaml:"registry,omitempty"`
	Timeout   int    `yaml:"timeout,omitempty"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		ServerURL: DefaultServerURL,
		Registry:  DefaultRegistry,
		Timeout:   defaultTimeoutSeconds,
	}
}

// Load reads the configuration at path. A missing file is not an error,
// the defaults apply. ENVAULT_SERVER_URL overrides the file either way so
// CI environments can redirect the client without touching the checkout.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("ENVAULT_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Registry == "" {
		cfg.Registry = DefaultRegistry
	}
	return cfg, nil
}

// Save writes the configuration to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RequestTimeout converts the configured timeout (seconds) to a duration.
func (c Config) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
