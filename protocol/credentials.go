// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Credentials is the durable key material for one session. It is
// opaque to the session manager: the manager loads it, hands it to the
// Dialer, and persists whatever CredentialsChanged events deliver.
//
// A zero-value Credentials is a fresh, unpaired identity. Pairing
// fills in AccountID, which is the sole "this session is bound to a
// real account" marker.
type Credentials struct {
	// DeviceID identifies this device to the server. Generated on
	// first dial and stable thereafter.
	DeviceID string `cbor:"device_id"`

	// AccountID is the account the session was paired to. Empty
	// until pairing completes.
	AccountID string `cbor:"account_id"`

	// NoiseKey is the long-lived private key for the transport
	// handshake.
	NoiseKey []byte `cbor:"noise_key"`

	// SessionToken is the server-issued resumption token, rotated by
	// the server at will (delivered via CredentialsChanged).
	SessionToken []byte `cbor:"session_token"`
}

// Paired reports whether the credentials are bound to an account.
func (c *Credentials) Paired() bool { return c.AccountID != "" }
