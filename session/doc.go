// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the session lifecycle core of Wavelink: it
// creates, tracks, reconnects, and tears down the per-session protocol
// connections, and coordinates the one-time pairing handshake.
//
// [Manager] is the single entry point. [Manager.EnsureStarted] is
// idempotent: it returns the existing live client for an identifier or
// dials a new one, and it guarantees at most one live client per
// identifier even under concurrent calls (a per-identifier lock covers
// the lookup-then-dial window). [Manager.PairingCode] converts the
// asynchronous "a pairing code arrived" event into a synchronous
// result bounded by an explicit timeout. [Manager.Status] answers
// status queries from the HTTP layer without ever failing — unknown
// identifiers simply report [StatusUnstarted].
//
// Each session's events are consumed by a single goroutine, so state
// changes, credential updates, and messages for one session are
// processed strictly in emission order. Credential updates are
// persisted synchronously inside that loop: a credential rotation is
// on disk before the next event is even read, which is what makes a
// crash between the two survivable.
//
// A transient close marks the session [StatusDisconnected] and
// schedules one reconnect attempt on the injected [clock.Clock] after
// a fixed delay. The reconnect is an explicit scheduled task re-running
// EnsureStarted, not a recursive call: it can be cancelled, it cannot
// grow the stack, and its failures are logged rather than surfaced —
// the next close event schedules the next attempt, indefinitely, until
// the server logs the session out or the process exits. An
// authoritative logout ([protocol.CloseLoggedOut]) is terminal: the
// session parks in [StatusLoggedOut] and no reconnect is scheduled;
// the identifier can pair again only after its credentials are cleared
// out of band.
//
// All timers run on the injected clock, so every timing property —
// "exactly one reconnect after the delay", "pairing wait leaves no
// timers behind" — is tested against a fake clock without sleeping.
package session
