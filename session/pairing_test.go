// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wavelink-chat/wavelink/lib/testutil"
	"github.com/wavelink-chat/wavelink/protocol"
)

const pairingTimeout = 30 * time.Second

func TestPairingCodeAlreadyPaired(t *testing.T) {
	f := newFixture(t, nil)
	f.seedPairing(t, testSession)

	result, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
	if err != nil {
		t.Fatalf("PairingCode failed: %v", err)
	}
	if !result.AlreadyPaired {
		t.Error("AlreadyPaired = false for a paired session")
	}
	if n := f.dialer.DialCount(); n != 0 {
		t.Errorf("DialCount = %d, want 0 (no connection for a paired session)", n)
	}
}

func TestPairingCodeDirectRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.dialer.RequestCode = func(context.Context) (string, error) {
		return "WXYZ-1234", nil
	}

	result, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
	if err != nil {
		t.Fatalf("PairingCode failed: %v", err)
	}
	if result.AlreadyPaired || result.Code != "WXYZ-1234" {
		t.Errorf("result = %+v, want code WXYZ-1234", result)
	}
	if n := f.clock.TimerCount(); n != 0 {
		t.Errorf("TimerCount = %d, want 0 (direct request arms no timer)", n)
	}
}

func TestPairingCodeFallsBackToPushedCode(t *testing.T) {
	f := newFixture(t, nil)
	f.dialer.RequestCode = func(context.Context) (string, error) {
		return "", errors.New("server does not support on-demand codes")
	}

	type outcome struct {
		result PairingResult
		err    error
	}
	outcomes := make(chan outcome, 1)
	go func() {
		result, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
		outcomes <- outcome{result: result, err: err}
	}()

	// The failed direct request falls through to the bounded wait;
	// once its timeout timer is armed, push the code.
	f.clock.WaitForTimers(1)
	f.dialer.Client(0).EmitPairingCode("PUSH-5678")

	got := testutil.RequireReceive(t, outcomes, 5*time.Second, "pairing outcome")
	if got.err != nil {
		t.Fatalf("PairingCode failed: %v", got.err)
	}
	if got.result.Code != "PUSH-5678" {
		t.Errorf("Code = %q, want PUSH-5678", got.result.Code)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		return f.clock.TimerCount() == 0
	}, "the losing timeout timer should be cancelled")
}

func TestPairingCodeTimeout(t *testing.T) {
	f := newFixture(t, nil)

	type outcome struct {
		result PairingResult
		err    error
	}
	outcomes := make(chan outcome, 1)
	go func() {
		result, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
		outcomes <- outcome{result: result, err: err}
	}()

	f.clock.WaitForTimers(1)
	f.clock.Advance(pairingTimeout)

	got := testutil.RequireReceive(t, outcomes, 5*time.Second, "pairing outcome")
	if !errors.Is(got.err, ErrPairingTimeout) {
		t.Fatalf("err = %v, want ErrPairingTimeout", got.err)
	}
	if n := f.clock.TimerCount(); n != 0 {
		t.Errorf("TimerCount after timeout = %d, want 0 (nothing leaked)", n)
	}

	// The wait slot is gone: nothing dangles in the pairing map.
	f.manager.pairingMu.Lock()
	pending := len(f.manager.pairings)
	f.manager.pairingMu.Unlock()
	if pending != 0 {
		t.Errorf("pending pairing waits = %d, want 0", pending)
	}
}

func TestPairingCodeConcurrentCallersJoin(t *testing.T) {
	f := newFixture(t, nil)

	const callers = 3
	codes := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
			if err != nil {
				t.Errorf("PairingCode failed: %v", err)
				return
			}
			codes <- result.Code
		}()
	}

	// All callers must have joined the same wait before the code is
	// pushed, otherwise a late joiner would open a second wait and
	// hang. White-box: watch the shared slot's refcount.
	testutil.Eventually(t, 5*time.Second, func() bool {
		f.manager.pairingMu.Lock()
		defer f.manager.pairingMu.Unlock()
		wait, ok := f.manager.pairings[testSession]
		return ok && wait.refs == callers
	}, "all callers joined the shared wait")

	// One wait, one timer — not one per caller.
	if n := f.clock.TimerCount(); n != 1 {
		t.Errorf("TimerCount = %d, want 1 shared timeout timer", n)
	}
	if n := f.dialer.DialCount(); n != 1 {
		t.Errorf("DialCount = %d, want 1", n)
	}

	f.dialer.Client(0).EmitPairingCode("JOIN-0001")
	wg.Wait()

	close(codes)
	count := 0
	for code := range codes {
		count++
		if code != "JOIN-0001" {
			t.Errorf("caller received %q, want JOIN-0001", code)
		}
	}
	if count != callers {
		t.Errorf("%d callers resolved, want %d", count, callers)
	}
	if n := f.clock.TimerCount(); n != 0 {
		t.Errorf("TimerCount after resolution = %d, want 0", n)
	}
}

func TestHandshakeCodeLeavesConnectionAlone(t *testing.T) {
	f := newFixture(t, nil)

	type outcome struct {
		result PairingResult
		err    error
	}
	outcomes := make(chan outcome, 1)
	go func() {
		result, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
		outcomes <- outcome{result: result, err: err}
	}()

	// A code pushed mid-handshake, before any open transition,
	// resolves the wait without touching the connection state.
	f.clock.WaitForTimers(1)
	f.dialer.Client(0).EmitHandshakeCode("HAND-3456")

	got := testutil.RequireReceive(t, outcomes, 5*time.Second, "pairing outcome")
	if got.err != nil {
		t.Fatalf("PairingCode failed: %v", got.err)
	}
	if got.result.Code != "HAND-3456" {
		t.Errorf("Code = %q, want HAND-3456", got.result.Code)
	}

	// The connection is still the live one: the open that follows
	// the handshake lands on it. Had the code event been processed
	// as a close, the client would be superseded and this open
	// ignored forever.
	f.dialer.Client(0).EmitOpen()
	testutil.Eventually(t, 5*time.Second, func() bool {
		return f.manager.Status(testSession) == StatusConnected
	}, "session should connect after the handshake completes")

	if n := f.dialer.DialCount(); n != 1 {
		t.Errorf("DialCount = %d, want 1 (no reconnect for a handshake code)", n)
	}
	if n := f.clock.TimerCount(); n != 0 {
		t.Errorf("TimerCount = %d, want 0 (no reconnect timer armed)", n)
	}
}

func TestPairingCodeCallerContextCancelled(t *testing.T) {
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := f.manager.PairingCode(ctx, testSession, pairingTimeout)
		errs <- err
	}()

	f.clock.WaitForTimers(1)
	cancel()

	err := testutil.RequireReceive(t, errs, 5*time.Second, "pairing outcome")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// The abandoned wait is disarmed by its last leaver.
	testutil.Eventually(t, 5*time.Second, func() bool {
		return f.clock.TimerCount() == 0
	}, "abandoned wait should disarm its timer")
}

func TestPairingCodeLogoutFailsWait(t *testing.T) {
	f := newFixture(t, nil)

	errs := make(chan error, 1)
	go func() {
		_, err := f.manager.PairingCode(context.Background(), testSession, pairingTimeout)
		errs <- err
	}()

	f.clock.WaitForTimers(1)
	f.dialer.Client(0).EmitClose(protocol.CloseLoggedOut)

	err := testutil.RequireReceive(t, errs, 5*time.Second, "pairing outcome")
	if !errors.Is(err, ErrLoggedOut) {
		t.Fatalf("err = %v, want ErrLoggedOut", err)
	}
}
