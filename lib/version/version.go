// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the daemon's build identity.
package version

import "fmt"

// Set at build time via -ldflags:
//
//	-X github.com/wavelink-chat/wavelink/lib/version.Version=v0.3.0
//	-X github.com/wavelink-chat/wavelink/lib/version.Commit=abc1234
var (
	Version = "dev"
	Commit  = ""
)

// Info returns a human-readable version string.
func Info() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
