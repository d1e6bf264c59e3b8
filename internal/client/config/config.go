// Package config loads feedctl settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the console's runtime configuration.
type Config struct {
	APIURL  string        `envconfig:"FEEDCTL_API_URL" default:"http://localhost:8080/api"`
	Home    string        `envconfig:"FEEDCTL_HOME"`
	Timeout time.Duration `envconfig:"FEEDCTL_TIMEOUT" default:"30s"`
}

// Load reads FEEDCTL_* variables. An empty home falls back to $HOME/.feedctl.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("FEEDCTL_API_URL must be an http(s) URL, got %q", cfg.APIURL)
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("FEEDCTL_TIMEOUT must be positive")
	}
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Home = filepath.Join(home, ".feedctl")
	}
	return &cfg, nil
}

// SessionPath is where the login token is kept.
func (c *Config) SessionPath() string { return filepath.Join(c.Home, "session.json") }

// SettingsPath is where display preferences are kept.
func (c *Config) SettingsPath() string { return filepath.Join(c.Home, "settings.json") }
