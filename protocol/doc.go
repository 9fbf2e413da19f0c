// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the capability surface between the session
// manager and the messaging-protocol client that carries a session's
// traffic. The manager never sees the wire format, the encryption, or
// the authentication handshake — it sees a [Client] that emits
// [Event] values and accepts outbound sends, and a [Dialer] that
// constructs Clients from persisted [Credentials].
//
// Two implementations exist:
//
//   - [wire.Dialer] connects to a relay gateway over a websocket. This
//     is the production path.
//   - [protocoltest.Dialer] is a scripted double for session manager
//     tests: the test injects state changes, messages, and credential
//     updates and observes sends.
//
// A Client that can mint pairing codes on demand additionally
// implements [PairingCodeRequester]. The session manager discovers the
// capability by type assertion and falls back to waiting for a code to
// arrive in a state-change event when the assertion fails or the
// request errors.
//
// Events for one Client are delivered on a single channel, in emission
// order. The consumer (one goroutine per session in the manager)
// therefore processes them serially — there is no cross-event
// concurrency to defend against within a session.
package protocol
