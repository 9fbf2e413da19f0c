// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/wavelink-chat/wavelink/lib/clock"
	"github.com/wavelink-chat/wavelink/protocol"
)

// PairingResult is the outcome of a PairingCode call: either the
// session was already paired (no connection attempted) or a fresh
// pairing code was obtained.
type PairingResult struct {
	AlreadyPaired bool
	Code          string
}

// pairingWait is the shared completion slot for one identifier's
// in-flight pairing request. All concurrent PairingCode callers for
// the identifier block on the same done channel; the first resolution
// (code, logout, or timeout) wins and every later one is a no-op.
type pairingWait struct {
	done  chan struct{}
	timer *clock.Timer
	code  string
	err   error
	refs  int
}

// PairingCode returns the identifier's pairing code, bounded by
// timeout.
//
// A session whose credentials already exist returns AlreadyPaired
// without touching the network — repeating the call after pairing is a
// cheap no-op, not an error. Otherwise the session is started (or its
// live client reused), and the code is obtained one of two ways: a
// direct request when the client supports it, else a bounded wait for
// the server to push a code in a state-change event. A failed direct
// request falls through to the wait rather than failing the call.
//
// Concurrent calls for one identifier JOIN the same wait: the first
// caller arms the timeout timer, later callers share its deadline and
// its resolution. Whichever fires first — code, timeout, or an
// authoritative logout — resolves every waiter exactly once; the
// losing timer is stopped, and the last caller to leave an unresolved
// wait disarms it, so no timer or observer outlives the call.
//
// Expired waits return ErrPairingTimeout.
func (m *Manager) PairingCode(ctx context.Context, sessionID string, timeout time.Duration) (PairingResult, error) {
	exists, err := m.store.Exists(sessionID)
	if err != nil {
		return PairingResult{}, fmt.Errorf("session %s: checking pairing state: %w", sessionID, err)
	}
	if exists {
		return PairingResult{AlreadyPaired: true}, nil
	}

	client, err := m.EnsureStarted(ctx, sessionID)
	if err != nil {
		return PairingResult{}, err
	}

	if requester, ok := client.(protocol.PairingCodeRequester); ok {
		code, err := requester.RequestPairingCode(ctx)
		if err == nil {
			m.logger.Info("pairing code issued on request", "session_id", sessionID)
			return PairingResult{Code: code}, nil
		}
		m.logger.Warn("direct pairing code request failed, waiting for pushed code",
			"session_id", sessionID,
			"error", err,
		)
	}

	wait := m.joinPairingWait(sessionID, timeout)
	defer m.leavePairingWait(sessionID, wait)

	select {
	case <-wait.done:
		if wait.err != nil {
			return PairingResult{}, fmt.Errorf("session %s: %w", sessionID, wait.err)
		}
		m.logger.Info("pairing code received", "session_id", sessionID)
		return PairingResult{Code: wait.code}, nil
	case <-ctx.Done():
		return PairingResult{}, fmt.Errorf("session %s: waiting for pairing code: %w", sessionID, ctx.Err())
	}
}

// joinPairingWait returns the identifier's in-flight wait, creating
// and arming it if this is the first caller. The timeout belongs to
// the wait, not the caller: joiners inherit the deadline the first
// caller set.
func (m *Manager) joinPairingWait(sessionID string, timeout time.Duration) *pairingWait {
	m.pairingMu.Lock()
	defer m.pairingMu.Unlock()

	wait, ok := m.pairings[sessionID]
	if !ok {
		wait = &pairingWait{done: make(chan struct{})}
		wait.timer = m.clock.AfterFunc(timeout, func() {
			m.resolvePairing(sessionID, "", ErrPairingTimeout)
		})
		m.pairings[sessionID] = wait
	}
	wait.refs++
	return wait
}

// leavePairingWait releases one caller's interest. The last caller to
// leave a still-unresolved wait (everyone gave up via ctx) disarms the
// timer and removes the wait.
func (m *Manager) leavePairingWait(sessionID string, wait *pairingWait) {
	m.pairingMu.Lock()
	defer m.pairingMu.Unlock()

	wait.refs--
	if wait.refs > 0 {
		return
	}
	if current, ok := m.pairings[sessionID]; ok && current == wait {
		delete(m.pairings, sessionID)
		wait.timer.Stop()
	}
}

// resolvePairing completes the identifier's in-flight wait, if any,
// with either a code or an error. Exactly-once: the wait is removed
// from the map before the done channel closes, so a code and the
// timeout racing each other cannot both win.
func (m *Manager) resolvePairing(sessionID, code string, err error) {
	m.pairingMu.Lock()
	wait, ok := m.pairings[sessionID]
	if ok {
		delete(m.pairings, sessionID)
	}
	m.pairingMu.Unlock()

	if !ok {
		return
	}
	wait.timer.Stop()
	wait.code = code
	wait.err = err
	close(wait.done)
}
