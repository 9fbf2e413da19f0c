// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wavelink-chat/wavelink/credstore"
	"github.com/wavelink-chat/wavelink/lib/clock"
	"github.com/wavelink-chat/wavelink/protocol"
)

// DefaultReconnectDelay is the fixed delay between a retryable close
// and the reconnect attempt. There is no backoff growth and no retry
// limit: the delay is the same for the first attempt and the
// thousandth.
const DefaultReconnectDelay = 2 * time.Second

// ManagerConfig holds the dependencies for a Manager.
type ManagerConfig struct {
	// Store persists per-session credentials. Required.
	Store *credstore.Store

	// Dialer constructs protocol clients. Required.
	Dialer protocol.Dialer

	// Handler receives inbound messages. Optional; nil drops them.
	Handler Handler

	// Clock schedules reconnects and bounds pairing waits. Defaults
	// to clock.Real().
	Clock clock.Clock

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// ReconnectDelay overrides DefaultReconnectDelay. Values <= 0
	// use the default.
	ReconnectDelay time.Duration
}

// Manager owns every session's lifecycle: the registry, the per-
// identifier start serialization, the reconnect policy, and the
// pairing coordination. One Manager serves all sessions in the
// process.
type Manager struct {
	store          *credstore.Store
	dialer         protocol.Dialer
	handler        Handler
	clock          clock.Clock
	logger         *slog.Logger
	reconnectDelay time.Duration

	registry *Registry

	// mu guards locks and reconnects. sessionLock(id) is held across
	// every read-modify-write of that identifier's record, including
	// the whole lookup-then-dial window of EnsureStarted.
	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	reconnects map[string]*clock.Timer

	// pairingMu guards pairings. See pairing.go.
	pairingMu sync.Mutex
	pairings  map[string]*pairingWait

	closed atomic.Bool
	loops  sync.WaitGroup
}

// NewManager creates a Manager. Panics if Store or Dialer is missing —
// these are wiring bugs, not runtime conditions.
func NewManager(config ManagerConfig) *Manager {
	if config.Store == nil {
		panic("session.Manager: Store is required")
	}
	if config.Dialer == nil {
		panic("session.Manager: Dialer is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := config.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}

	return &Manager{
		store:          config.Store,
		dialer:         config.Dialer,
		handler:        config.Handler,
		clock:          clk,
		logger:         logger,
		reconnectDelay: delay,
		registry:       NewRegistry(),
		locks:          make(map[string]*sync.Mutex),
		reconnects:     make(map[string]*clock.Timer),
		pairings:       make(map[string]*pairingWait),
	}
}

// EnsureStarted returns the identifier's live protocol client, dialing
// one if none exists. Idempotent: concurrent calls for the same
// identifier yield the same client, never a duplicate connection.
//
// Construction failures (credential load, dial) are returned to the
// caller and leave the session in its prior status. A session the
// server logged out returns ErrLoggedOut until its credentials are
// cleared.
func (m *Manager) EnsureStarted(ctx context.Context, sessionID string) (protocol.Client, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("session %s: manager is shut down", sessionID)
	}

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	priorStatus := StatusUnstarted
	record, ok := m.registry.Get(sessionID)
	if ok {
		if record.Client != nil {
			return record.Client, nil
		}
		priorStatus = record.Status
		if record.Status == StatusLoggedOut {
			exists, err := m.store.Exists(sessionID)
			if err != nil {
				return nil, fmt.Errorf("session %s: checking credentials: %w", sessionID, err)
			}
			if exists {
				return nil, fmt.Errorf("session %s: %w", sessionID, ErrLoggedOut)
			}
			// Credentials were cleared out of band: the identifier
			// may pair again from scratch.
			priorStatus = StatusUnstarted
		}
	}

	creds, err := m.store.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: loading credentials: %w", sessionID, err)
	}

	m.registry.Upsert(Record{ID: sessionID, Status: StatusStarting})

	client, err := m.dialer.Dial(ctx, creds)
	if err != nil {
		m.registry.Upsert(Record{ID: sessionID, Status: priorStatus})
		return nil, fmt.Errorf("session %s: dialing: %w", sessionID, err)
	}

	m.registry.Upsert(Record{ID: sessionID, Client: client, Status: StatusStarting})
	m.loops.Add(1)
	go m.consumeEvents(sessionID, client)

	m.logger.Info("session starting", "session_id", sessionID, "paired", creds.Paired())
	return client, nil
}

// Status reports the identifier's lifecycle status. Never fails;
// unknown identifiers are StatusUnstarted.
func (m *Manager) Status(sessionID string) Status {
	return m.registry.StatusOf(sessionID)
}

// Shutdown disconnects every session, cancels pending reconnects, and
// waits for the event loops to drain or ctx to expire. After Shutdown
// the Manager rejects new starts.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	for sessionID, timer := range m.reconnects {
		timer.Stop()
		delete(m.reconnects, sessionID)
	}
	m.mu.Unlock()

	for _, sessionID := range m.registry.IDs() {
		if record, ok := m.registry.Get(sessionID); ok && record.Client != nil {
			record.Client.Disconnect()
		}
	}

	drained := make(chan struct{})
	go func() {
		m.loops.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session: waiting for event loops to drain: %w", ctx.Err())
	}
}

// consumeEvents is the single consumer of one client's event stream.
// Running alone per session, it serializes all event handling for that
// session: a close can never race an open, and a credential update is
// always persisted before the event after it is even read.
func (m *Manager) consumeEvents(sessionID string, client protocol.Client) {
	defer m.loops.Done()
	for event := range client.Events() {
		switch e := event.(type) {
		case protocol.CredentialsChanged:
			if err := m.store.Save(sessionID, &e.Credentials); err != nil {
				m.logger.Error("persisting rotated credentials failed",
					"session_id", sessionID,
					"error", err,
				)
			}
		case protocol.MessageReceived:
			m.dispatch(sessionID, client, e)
		case protocol.StateChanged:
			m.handleStateChange(sessionID, client, e)
		default:
			m.logger.Error("unknown protocol event", "session_id", sessionID, "event", fmt.Sprintf("%T", event))
		}
	}
}

// handleStateChange applies one connection state transition.
func (m *Manager) handleStateChange(sessionID string, client protocol.Client, change protocol.StateChanged) {
	if change.PairingCode != "" {
		m.resolvePairing(sessionID, change.PairingCode, nil)
		if !change.Open {
			// Codes are pushed while the pairing handshake is
			// still in progress, before the connection opens. The
			// event carries a code, not a close: the connection
			// state is unchanged.
			return
		}
	}

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	record, ok := m.registry.Get(sessionID)
	if !ok || record.Client != client {
		// A state change from a superseded connection: the session
		// was already restarted with a new client. Its transitions
		// no longer apply.
		m.logger.Debug("ignoring state change from superseded client", "session_id", sessionID)
		return
	}

	if change.Open {
		record.Status = StatusConnected
		m.registry.Upsert(record)
		m.logger.Info("session connected", "session_id", sessionID)
		return
	}

	// The connection closed. The handle is dead either way, so the
	// record drops it: a caller hitting EnsureStarted during the
	// reconnect window dials a fresh connection instead of receiving
	// a corpse.
	record.Client = nil

	switch {
	case change.Reason.Terminal():
		record.Status = StatusLoggedOut
		m.registry.Upsert(record)
		m.logger.Warn("session logged out by server", "session_id", sessionID)
		m.resolvePairing(sessionID, "", ErrLoggedOut)
	case change.Reason == protocol.CloseGone || m.closed.Load():
		record.Status = StatusUnstarted
		m.registry.Upsert(record)
		m.logger.Info("session stopped", "session_id", sessionID)
	default:
		record.Status = StatusDisconnected
		m.registry.Upsert(record)
		m.logger.Warn("session disconnected",
			"session_id", sessionID,
			"reason", change.Reason,
			"reconnect_in", m.reconnectDelay,
		)
		m.scheduleReconnect(sessionID)
	}
}

// scheduleReconnect arms the identifier's reconnect timer. At most one
// timer exists per identifier; a close arriving while one is armed
// does not arm a second.
func (m *Manager) scheduleReconnect(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return
	}
	if _, armed := m.reconnects[sessionID]; armed {
		return
	}
	m.reconnects[sessionID] = m.clock.AfterFunc(m.reconnectDelay, func() {
		m.mu.Lock()
		delete(m.reconnects, sessionID)
		m.mu.Unlock()
		m.reconnect(sessionID)
	})
}

// reconnect is the scheduled reconnect task. Failures are logged and
// re-armed, never surfaced: the retry loop runs until the session is
// logged out or the process exits.
func (m *Manager) reconnect(sessionID string) {
	if m.closed.Load() {
		return
	}
	if _, err := m.EnsureStarted(context.Background(), sessionID); err != nil {
		if errors.Is(err, ErrLoggedOut) {
			m.logger.Warn("not reconnecting logged-out session", "session_id", sessionID)
			return
		}
		m.logger.Error("reconnect failed, retrying",
			"session_id", sessionID,
			"retry_in", m.reconnectDelay,
			"error", err,
		)
		m.scheduleReconnect(sessionID)
	}
}

// dispatch hands one inbound message to the handler, fire-and-forget.
// Handler errors and panics are logged and contained: they must never
// take the session's event loop or connection down with them.
func (m *Manager) dispatch(sessionID string, client protocol.Client, message protocol.MessageReceived) {
	if m.handler == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("message handler panicked",
					"session_id", sessionID,
					"sender", message.Sender,
					"panic", r,
				)
			}
		}()
		if err := m.handler.HandleMessage(context.Background(), client, sessionID, message.Sender, message.Text); err != nil {
			m.logger.Error("message handler failed",
				"session_id", sessionID,
				"sender", message.Sender,
				"error", err,
			)
		}
	}()
}

// sessionLock returns the identifier's serialization lock, creating it
// on first use. Locks are never removed: the set of identifiers a
// process touches is small and stable.
func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
