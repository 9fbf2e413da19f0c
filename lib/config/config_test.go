// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wavelink.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate on defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Port)
	}
	timeout, err := cfg.PairingTimeoutDuration()
	if err != nil {
		t.Fatalf("PairingTimeoutDuration: %v", err)
	}
	if timeout != 60*time.Second {
		t.Errorf("default pairing timeout = %v, want 60s", timeout)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
port: 9100
owner_contact: "+15550001111"
pairing_timeout: 2m
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Port)
	}
	if cfg.OwnerContact != "+15550001111" {
		t.Errorf("owner contact = %q", cfg.OwnerContact)
	}
	// Fields the file omits keep their defaults.
	if cfg.GatewayURL == "" {
		t.Error("gateway URL default was lost")
	}
	if timeout, _ := cfg.PairingTimeoutDuration(); timeout != 2*time.Minute {
		t.Errorf("pairing timeout = %v, want 2m", timeout)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfigFile(t, "port: 9100\nowner_contact: from-file\n")
	t.Setenv("PORT", "9200")
	t.Setenv("OWNER_CONTACT", "from-env")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("port = %d, want the PORT override 9200", cfg.Port)
	}
	if cfg.OwnerContact != "from-env" {
		t.Errorf("owner contact = %q, want the OWNER_CONTACT override", cfg.OwnerContact)
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("WAVELINK_CONFIG", "")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Port)
	}
}

func TestLoadHonorsConfigPathEnv(t *testing.T) {
	path := writeConfigFile(t, "port: 9300\n")
	t.Setenv("WAVELINK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9300 {
		t.Errorf("port = %d, want 9300", cfg.Port)
	}
}

func TestBadPortEnvFails(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a non-numeric PORT")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted port 0")
	}

	cfg = Default()
	cfg.PairingTimeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted an unparseable pairing timeout")
	}

	cfg = Default()
	cfg.GatewayURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted an empty gateway URL")
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/var/lib/wavelink"
	if got := cfg.CredentialsDir(); got != "/var/lib/wavelink/sessions" {
		t.Errorf("CredentialsDir = %q", got)
	}
	if got := cfg.MessageLogPath(); got != "/var/lib/wavelink/messages.db" {
		t.Errorf("MessageLogPath = %q", got)
	}
	if got := cfg.ListenAddr(); got != ":8080" {
		t.Errorf("ListenAddr = %q", got)
	}
}
