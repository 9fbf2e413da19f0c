// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
)

// Client is one live protocol connection. The zero value is not
// usable; Clients come from a Dialer.
//
// A Client owns one Events channel. The channel is closed after the
// final StateChanged event (the one reporting the close), so a
// consumer that ranges over Events sees every event and then stops.
type Client interface {
	// Events returns the event stream for this connection. The same
	// channel is returned on every call.
	Events() <-chan Event

	// Send delivers a text message to the given contact identifier.
	Send(ctx context.Context, to, text string) error

	// Disconnect tears the connection down. The Events channel
	// receives a final StateChanged (reason CloseGone) and is then
	// closed. Idempotent.
	Disconnect()
}

// PairingCodeRequester is implemented by Clients that can ask the
// server for a pairing code directly instead of waiting for one to be
// pushed in a state-change event. Discover it by type assertion:
//
//	if requester, ok := client.(protocol.PairingCodeRequester); ok {
//	    code, err := requester.RequestPairingCode(ctx)
//	    ...
//	}
type PairingCodeRequester interface {
	RequestPairingCode(ctx context.Context) (string, error)
}

// Dialer constructs Clients. Dial performs whatever setup the protocol
// needs (version negotiation, transport connect, auth handshake) and
// returns once the connection is being established; the resulting
// open/closed state arrives as StateChanged events.
//
// The credentials pointer is shared with the caller: the Client reads
// it at dial time and must not retain it for later mutation — updated
// material is reported through CredentialsChanged events instead.
type Dialer interface {
	Dial(ctx context.Context, creds *Credentials) (Client, error)
}
