// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

// Status is the lifecycle state of one session.
type Status string

const (
	// StatusUnstarted means no start has been requested (or the
	// session was deliberately stopped). The registry reports this
	// for identifiers it has never seen.
	StatusUnstarted Status = "unstarted"

	// StatusStarting means a dial is in progress: credentials are
	// loading or the protocol client is connecting.
	StatusStarting Status = "starting"

	// StatusConnected means the protocol client reported an open
	// connection.
	StatusConnected Status = "connected"

	// StatusDisconnected means the connection closed for a retryable
	// reason and a reconnect is pending.
	StatusDisconnected Status = "disconnected_retryable"

	// StatusLoggedOut means the server revoked the pairing. Terminal:
	// no reconnect is attempted, and the identifier cannot start
	// again until its credentials are cleared.
	StatusLoggedOut Status = "logged_out"
)
