// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Wavelink
// daemon.
//
// Configuration is loaded from a YAML file specified by:
//   - WAVELINK_CONFIG environment variable, or
//   - --config flag passed to the daemon
//
// The file is optional; every field has a working default. After the
// file is applied, two environment variables override it — PORT and
// OWNER_CONTACT — matching the two knobs deployments actually turn.
// No other environment variables are recognized.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// Port is the TCP port the API server listens on.
	Port int `yaml:"port"`

	// OwnerContact is the contact identifier the "owner" chat
	// command reports. Empty means unconfigured.
	OwnerContact string `yaml:"owner_contact"`

	// GatewayURL is the relay gateway websocket URL (ws:// or
	// wss://).
	GatewayURL string `yaml:"gateway_url"`

	// DataDir is the root directory for durable daemon state:
	// per-session credentials and the message archive.
	DataDir string `yaml:"data_dir"`

	// PairingTimeout bounds how long a pairing code request waits,
	// as a duration string ("60s", "2m").
	PairingTimeout string `yaml:"pairing_timeout"`
}

// Default returns the default configuration. Every field is usable
// without a config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Port:           8080,
		GatewayURL:     "wss://gw.wavelink.chat",
		DataDir:        filepath.Join(homeDir, ".local", "share", "wavelink"),
		PairingTimeout: "60s",
	}
}

// Load loads configuration from the WAVELINK_CONFIG environment
// variable if set, otherwise returns the defaults. Environment
// overrides are applied either way.
func Load() (*Config, error) {
	if path := os.Getenv("WAVELINK_CONFIG"); path != "" {
		return LoadFile(path)
	}
	cfg := Default()
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults, then applies the environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies PORT and OWNER_CONTACT on top of whatever
// the file set.
func (c *Config) applyEnvOverrides() error {
	if port := os.Getenv("PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("config: PORT %q is not a number: %w", port, err)
		}
		c.Port = parsed
	}
	if contact := os.Getenv("OWNER_CONTACT"); contact != "" {
		c.OwnerContact = contact
	}
	return nil
}

// Validate checks the fields that cannot be verified lazily.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.GatewayURL == "" {
		return fmt.Errorf("config: gateway_url is required")
	}
	if _, err := c.PairingTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// ListenAddr is the TCP address for the API server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CredentialsDir is where per-session credential blobs live.
func (c *Config) CredentialsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// MessageLogPath is the SQLite message archive path.
func (c *Config) MessageLogPath() string {
	return filepath.Join(c.DataDir, "messages.db")
}

// PairingTimeoutDuration parses the configured pairing timeout.
func (c *Config) PairingTimeoutDuration() (time.Duration, error) {
	parsed, err := time.ParseDuration(c.PairingTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid pairing_timeout %q: %w", c.PairingTimeout, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("config: pairing_timeout %q must be positive", c.PairingTimeout)
	}
	return parsed, nil
}
