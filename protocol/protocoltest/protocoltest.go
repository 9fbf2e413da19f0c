// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocoltest provides a scripted protocol.Client double for
// session manager tests. The test drives the double from the outside:
// it emits open/close transitions, pairing codes, messages, and
// credential updates, and inspects what the code under test sent.
//
// A Dialer hands out one scripted Client per Dial call and remembers
// them all, so a test asserting "no second connection was made" checks
// DialCount, and a test simulating a reconnect scripts the second
// client differently from the first.
package protocoltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wavelink-chat/wavelink/protocol"
)

// Dialer is a scripted protocol.Dialer.
//
// Configure before handing it to the code under test; the exported
// fields must not be mutated once Dial may be running.
type Dialer struct {
	// DialError, when non-nil, makes every Dial fail with it.
	DialError error

	// RequestCode, when non-nil, gives dialed clients the
	// PairingCodeRequester capability backed by this function. When
	// nil, clients do not implement the capability at all.
	RequestCode func(ctx context.Context) (string, error)

	mu      sync.Mutex
	clients []*Client
}

// NewDialer returns an empty scripted dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial returns a fresh scripted client, or DialError if set.
func (d *Dialer) Dial(_ context.Context, creds *protocol.Credentials) (protocol.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.DialError != nil {
		return nil, d.DialError
	}

	client := &Client{
		creds:  *creds,
		events: make(chan protocol.Event, 64),
	}
	d.clients = append(d.clients, client)

	if d.RequestCode != nil {
		return &pairingClient{Client: client, request: d.RequestCode}, nil
	}
	return client, nil
}

// DialCount returns how many Dial calls have succeeded.
func (d *Dialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

// Client returns the i-th dialed client (0-based). Panics when out of
// range — that is a test bug.
func (d *Dialer) Client(i int) *Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[i]
}

// Sent is one outbound message recorded by a scripted client.
type Sent struct {
	To   string
	Text string
}

// Client is a scripted protocol.Client. Emit* methods inject events as
// if the protocol library produced them; Sends returns what the code
// under test delivered outbound.
type Client struct {
	creds  protocol.Credentials
	events chan protocol.Event

	mu     sync.Mutex
	sent   []Sent
	closed bool

	// SendError, when non-nil, makes Send fail with it.
	SendError error
}

// Events returns the scripted event stream.
func (c *Client) Events() <-chan protocol.Event { return c.events }

// Send records the outbound message.
func (c *Client) Send(_ context.Context, to, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendError != nil {
		return c.SendError
	}
	c.sent = append(c.sent, Sent{To: to, Text: text})
	return nil
}

// Disconnect emits a final CloseGone state change and ends the stream.
// Idempotent.
func (c *Client) Disconnect() {
	c.EmitClose(protocol.CloseGone)
}

// Sends returns a copy of the outbound messages recorded so far.
func (c *Client) Sends() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// DialedCredentials returns the credentials snapshot the client was
// dialed with.
func (c *Client) DialedCredentials() protocol.Credentials { return c.creds }

// EmitOpen injects a "connection established" state change.
func (c *Client) EmitOpen() {
	c.emit(protocol.StateChanged{Open: true})
}

// EmitPairingCode injects a state change carrying a pushed pairing
// code on an open connection.
func (c *Client) EmitPairingCode(code string) {
	c.emit(protocol.StateChanged{Open: true, PairingCode: code})
}

// EmitHandshakeCode injects a pairing code pushed while the connection
// is still handshaking, before any open transition — the shape real
// gateways produce during a fresh pairing.
func (c *Client) EmitHandshakeCode(code string) {
	c.emit(protocol.StateChanged{PairingCode: code})
}

// EmitMessage injects one inbound message.
func (c *Client) EmitMessage(sender, text string) {
	c.emit(protocol.MessageReceived{Sender: sender, Text: text})
}

// EmitCredentials injects a credential rotation.
func (c *Client) EmitCredentials(creds protocol.Credentials) {
	c.emit(protocol.CredentialsChanged{Credentials: creds})
}

// EmitClose injects the final state change with the given reason and
// closes the event stream, matching the contract that the stream ends
// after the close event. Idempotent; later Emit* calls panic.
func (c *Client) EmitClose(reason protocol.CloseReason) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.events <- protocol.StateChanged{Open: false, Reason: reason}
	close(c.events)
}

func (c *Client) emit(event protocol.Event) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		panic(fmt.Sprintf("protocoltest: emit %T after close", event))
	}
	c.events <- event
}

// pairingClient adds the PairingCodeRequester capability on top of a
// scripted Client. Always handed out by pointer: the manager compares
// client handles by identity, so the dynamic type must be comparable.
type pairingClient struct {
	*Client
	request func(ctx context.Context) (string, error)
}

func (p *pairingClient) RequestPairingCode(ctx context.Context) (string, error) {
	return p.request(ctx)
}

var _ protocol.Client = (*Client)(nil)
var _ protocol.PairingCodeRequester = (*pairingClient)(nil)
