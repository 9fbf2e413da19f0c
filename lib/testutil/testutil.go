// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Wavelink packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the select-with-
// timeout safety valve so that individual tests do not sprinkle
// time.After calls everywhere. These helpers are the only place the
// test suite touches the real wall clock; everything else runs on
// lib/clock fakes.
//
// All helpers call t.Fatalf on failure rather than returning errors —
// a test that cannot complete its setup has nothing to recover to.
package testutil

import (
	"time"
)

// failer is the subset of *testing.T the helpers need. Declared as an
// interface so the helpers also work with *testing.B and test wrappers.
type failer interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout or fails the
// test with the given message.
func RequireReceive[T any](t failer, ch <-chan T, timeout time.Duration, message string) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", message)
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message)
	}
	panic("unreachable")
}

// RequireClosed waits for ch to close (or deliver a value) within
// timeout or fails the test.
func RequireClosed(t failer, ch <-chan struct{}, timeout time.Duration, message string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v waiting for close: %s", timeout, message)
	}
}

// Eventually polls condition every millisecond until it returns true
// or timeout elapses, then fails the test. For assertions about state
// mutated by a background goroutine with no channel to wait on.
func Eventually(t failer, timeout time.Duration, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, message)
}
