// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the daemon's local HTTP surface: three endpoints
// that translate REST calls into session manager operations.
//
//   - POST /api/generate — start a pairing handshake and wait (bounded)
//     for the pairing code, or report that the session is already
//     paired.
//   - POST /api/deploy — ensure a session is started and connecting.
//   - GET  /api/status — report a session's lifecycle status.
//
// The surface is deliberately thin. All lifecycle decisions live in the
// session package; the gateway only maps identifiers, timeouts, and
// statuses between HTTP and the manager. Status reporting smooths over
// internal detail: a session waiting out its reconnect delay reports
// "starting" because from the caller's point of view it is on its way
// back up, and an identifier the daemon has never seen reports
// "stopped" rather than an error.
package gateway
