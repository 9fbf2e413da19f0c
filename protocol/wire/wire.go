// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire is the production protocol.Client: JSON frames over a
// websocket to a Wavelink relay gateway.
//
// A Dial fetches the gateway's advertised protocol version over plain
// HTTP, opens the websocket, and sends a hello frame identifying the
// device. Everything after that is event-shaped: the gateway pushes
// open/close transitions, pairing codes, credential rotations, and
// inbound messages, which the read loop translates one-to-one into
// protocol events. The event channel ends with the close transition,
// exactly as the protocol.Client contract requires.
//
// The gateway's encryption and account semantics live on the gateway
// side; this package only carries frames.
package wire

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wavelink-chat/wavelink/protocol"
)

// frame is the single JSON envelope both directions use. Type selects
// which fields are meaningful.
type frame struct {
	Type string `json:"type"`

	// hello (client → gateway)
	DeviceID        string `json:"device_id,omitempty"`
	AccountID       string `json:"account_id,omitempty"`
	SessionToken    []byte `json:"session_token,omitempty"`
	ProtocolVersion int    `json:"protocol_version,omitempty"`

	// send (client → gateway)
	ID   string `json:"id,omitempty"`
	To   string `json:"to,omitempty"`
	Text string `json:"text,omitempty"`

	// message (gateway → client)
	Sender string `json:"sender,omitempty"`

	// pairing_code (gateway → client)
	Code string `json:"code,omitempty"`

	// close (gateway → client)
	Reason string `json:"reason,omitempty"`
}

// Frame type constants shared with the gateway.
const (
	frameHello       = "hello"
	frameOpen        = "open"
	frameSend        = "send"
	frameMessage     = "message"
	framePairRequest = "pair_request"
	framePairingCode = "pairing_code"
	frameCredentials = "credentials"
	frameClose       = "close"
)

// directRequestTimeout caps how long RequestPairingCode waits for the
// gateway's reply when the caller's context has no earlier deadline.
const directRequestTimeout = 10 * time.Second

// Dialer constructs wire clients against one gateway.
type Dialer struct {
	// GatewayURL is the websocket base URL of the relay gateway
	// (e.g., "wss://gw.wavelink.chat"). Required.
	GatewayURL string

	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger

	// HTTPClient performs the protocol version fetch. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client

	// WSDialer performs the websocket dial. Nil means
	// websocket.DefaultDialer.
	WSDialer *websocket.Dialer
}

// Dial fetches the gateway's protocol version, connects the websocket,
// and sends the hello frame. Fresh identities (no device ID yet) get a
// generated device ID and transport key; both reach disk only when the
// gateway confirms them through a credentials frame.
func (d *Dialer) Dial(ctx context.Context, creds *protocol.Credentials) (protocol.Client, error) {
	if d.GatewayURL == "" {
		return nil, fmt.Errorf("wire: GatewayURL is required")
	}
	base, err := url.Parse(d.GatewayURL)
	if err != nil {
		return nil, fmt.Errorf("wire: invalid GatewayURL %q: %w", d.GatewayURL, err)
	}
	if base.Scheme != "ws" && base.Scheme != "wss" {
		return nil, fmt.Errorf("wire: GatewayURL scheme must be ws or wss, got %q", base.Scheme)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	version, err := d.fetchProtocolVersion(ctx, base)
	if err != nil {
		return nil, err
	}

	working := *creds
	if working.DeviceID == "" {
		working.DeviceID = uuid.NewString()
	}
	if len(working.NoiseKey) == 0 {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("wire: generating transport key: %w", err)
		}
		working.NoiseKey = key
	}

	wsDialer := d.WSDialer
	if wsDialer == nil {
		wsDialer = websocket.DefaultDialer
	}
	connectURL := strings.TrimRight(d.GatewayURL, "/") + "/v1/connect"
	conn, _, err := wsDialer.DialContext(ctx, connectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("wire: connecting to %s: %w", connectURL, err)
	}

	c := &client{
		conn:   conn,
		logger: logger,
		creds:  working,
		events: make(chan protocol.Event, 16),
	}

	hello := frame{
		Type:            frameHello,
		DeviceID:        working.DeviceID,
		AccountID:       working.AccountID,
		SessionToken:    working.SessionToken,
		ProtocolVersion: version,
	}
	if err := c.write(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wire: sending hello: %w", err)
	}

	go c.readLoop()

	logger.Debug("wire client connected",
		"gateway", d.GatewayURL,
		"device_id", working.DeviceID,
		"protocol_version", version,
	)
	return c, nil
}

// fetchProtocolVersion asks the gateway which protocol version to
// speak. The endpoint is plain HTTP on the same host.
func (d *Dialer) fetchProtocolVersion(ctx context.Context, base *url.URL) (int, error) {
	versionURL := *base
	versionURL.Scheme = map[string]string{"ws": "http", "wss": "https"}[base.Scheme]
	versionURL.Path = strings.TrimRight(versionURL.Path, "/") + "/v1/version"

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("wire: building version request: %w", err)
	}
	httpClient := d.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	response, err := httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("wire: fetching protocol version: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("wire: protocol version fetch returned %d", response.StatusCode)
	}
	var body struct {
		ProtocolVersion int `json:"protocol_version"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("wire: parsing protocol version: %w", err)
	}
	return body.ProtocolVersion, nil
}

// client is one live gateway connection.
type client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan protocol.Event

	// creds is the working copy; the read loop updates it from
	// credentials frames before emitting CredentialsChanged.
	creds protocol.Credentials

	// writeMu serializes writes — gorilla permits one writer at a
	// time.
	writeMu sync.Mutex

	// pairMu guards pairWaiter, the at-most-one pending direct
	// pairing code request.
	pairMu     sync.Mutex
	pairWaiter chan string

	// opened tracks whether the gateway has sent its open frame.
	// Touched only by the read loop.
	opened bool

	localClose atomic.Bool
}

var _ protocol.Client = (*client)(nil)
var _ protocol.PairingCodeRequester = (*client)(nil)

// Events implements protocol.Client.
func (c *client) Events() <-chan protocol.Event { return c.events }

// Send implements protocol.Client. Each outbound message carries a
// generated ID so the gateway can deduplicate retries.
func (c *client) Send(_ context.Context, to, text string) error {
	err := c.write(frame{Type: frameSend, ID: uuid.NewString(), To: to, Text: text})
	if err != nil {
		return fmt.Errorf("wire: sending message to %s: %w", to, err)
	}
	return nil
}

// RequestPairingCode implements protocol.PairingCodeRequester. At most
// one request is in flight per connection.
func (c *client) RequestPairingCode(ctx context.Context) (string, error) {
	waiter := make(chan string, 1)

	c.pairMu.Lock()
	if c.pairWaiter != nil {
		c.pairMu.Unlock()
		return "", fmt.Errorf("wire: a pairing code request is already in flight")
	}
	c.pairWaiter = waiter
	c.pairMu.Unlock()

	defer func() {
		c.pairMu.Lock()
		if c.pairWaiter == waiter {
			c.pairWaiter = nil
		}
		c.pairMu.Unlock()
	}()

	if err := c.write(frame{Type: framePairRequest}); err != nil {
		return "", fmt.Errorf("wire: requesting pairing code: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, directRequestTimeout)
	defer cancel()
	select {
	case code := <-waiter:
		return code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("wire: waiting for pairing code reply: %w", ctx.Err())
	}
}

// Disconnect implements protocol.Client. The gateway sees a normal
// closure; locally the stream ends with CloseGone.
//
// Disconnect never touches the events channel itself. Closing the
// connection forces the read loop out of ReadJSON, and the read loop
// — the only goroutine that sends on events — delivers the final
// event and closes the stream. Disconnect after the stream already
// ended is a no-op.
func (c *client) Disconnect() {
	c.localClose.Store(true)

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}

// readLoop translates gateway frames into protocol events. It owns the
// events channel: nothing else sends on it, and it closes the channel
// through finish.
func (c *client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if c.localClose.Load() {
				c.finish(protocol.CloseGone)
			} else {
				c.logger.Debug("wire connection lost", "error", err)
				c.finish(protocol.CloseNetwork)
			}
			return
		}

		switch f.Type {
		case frameOpen:
			c.opened = true
			c.events <- protocol.StateChanged{Open: true}
		case frameMessage:
			c.events <- protocol.MessageReceived{Sender: f.Sender, Text: f.Text}
		case framePairingCode:
			c.deliverPairingCode(f.Code)
		case frameCredentials:
			c.creds.AccountID = f.AccountID
			c.creds.SessionToken = f.SessionToken
			c.events <- protocol.CredentialsChanged{Credentials: c.creds}
		case frameClose:
			c.conn.Close()
			c.finish(closeReason(f.Reason))
			return
		default:
			c.logger.Debug("ignoring unknown frame", "frame_type", f.Type)
		}
	}
}

// deliverPairingCode hands the code to a pending direct request if one
// exists, and always emits it as a state change so an event-waiting
// pairing coordinator resolves too. The state change reports the
// connection's actual open state — gateways push codes while the
// handshake is still in progress, before the open frame.
func (c *client) deliverPairingCode(code string) {
	c.pairMu.Lock()
	waiter := c.pairWaiter
	c.pairWaiter = nil
	c.pairMu.Unlock()

	if waiter != nil {
		waiter <- code
	}
	c.events <- protocol.StateChanged{Open: c.opened, PairingCode: code}
}

// finish emits the final close event and ends the stream. Called only
// from the read loop, exactly once, as it exits.
func (c *client) finish(reason protocol.CloseReason) {
	c.events <- protocol.StateChanged{Open: false, Reason: reason}
	close(c.events)
}

// write serializes one frame onto the websocket.
func (c *client) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

// closeReason maps the gateway's close reason string onto the
// protocol's taxonomy. Unknown reasons count as server-side closes:
// retryable, because only an explicit logout is terminal.
func closeReason(reason string) protocol.CloseReason {
	switch reason {
	case "logged_out":
		return protocol.CloseLoggedOut
	case "network":
		return protocol.CloseNetwork
	default:
		return protocol.CloseServer
	}
}
