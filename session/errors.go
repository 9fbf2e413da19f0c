// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "errors"

// ErrPairingTimeout is returned by Manager.PairingCode when no pairing
// code arrived within the caller's timeout.
var ErrPairingTimeout = errors.New("session: timed out waiting for pairing code")

// ErrLoggedOut is returned by Manager.EnsureStarted when the server
// has revoked the session's pairing and its credentials are still on
// disk. The identifier cannot start again until the credentials are
// cleared.
var ErrLoggedOut = errors.New("session: logged out by server, clear credentials to pair again")
