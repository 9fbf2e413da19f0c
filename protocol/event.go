// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Event is a marker interface over the three event kinds a Client
// emits: StateChanged, MessageReceived, and CredentialsChanged. The
// set is closed — consumers may treat an unknown kind as a bug.
type Event interface {
	event()
}

// StateChanged reports a connection state transition.
type StateChanged struct {
	// Open reports whether the connection is now established.
	Open bool

	// Reason describes why the connection closed. Only meaningful
	// when Open is false.
	Reason CloseReason

	// PairingCode carries a pairing code pushed by the server during
	// an unpaired connection's handshake. Empty otherwise. May appear
	// on open and closed transitions alike; the pairing coordinator
	// watches for it regardless of the Open flag.
	PairingCode string
}

// MessageReceived reports one inbound message.
type MessageReceived struct {
	// Sender is the contact identifier of the message author.
	Sender string

	// Text is the plain-text body.
	Text string
}

// CredentialsChanged reports that the protocol client rotated or
// extended its durable key material. The receiver must persist the
// blob before acting on any later event — a crash after acting but
// before persisting would strand the session on stale credentials.
type CredentialsChanged struct {
	Credentials Credentials
}

func (StateChanged) event()       {}
func (MessageReceived) event()    {}
func (CredentialsChanged) event() {}

// CloseReason classifies why a connection closed.
type CloseReason string

const (
	// CloseLoggedOut is the authoritative server-side logout: the
	// pairing was revoked and reconnecting with the same credentials
	// can never succeed. Terminal.
	CloseLoggedOut CloseReason = "logged_out"

	// CloseNetwork covers transport-level failures: dial errors,
	// resets, timeouts. Retryable.
	CloseNetwork CloseReason = "network"

	// CloseServer covers server-initiated closes that are not
	// logouts: restarts, load shedding. Retryable.
	CloseServer CloseReason = "server"

	// CloseGone is a locally requested disconnect. Retryable in
	// principle, though the manager only produces it while shutting
	// a session down on purpose.
	CloseGone CloseReason = "gone"
)

// Terminal reports whether the close reason rules out reconnecting
// with the current credentials.
func (r CloseReason) Terminal() bool { return r == CloseLoggedOut }
