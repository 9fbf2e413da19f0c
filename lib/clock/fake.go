// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at the given instant. Time moves
// only when Advance is called.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for tests. Every After, AfterFunc,
// and Sleep call registers a pending entry; Advance fires all entries
// whose deadline has been reached, in deadline order.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

// fakeTimer is one scheduled wakeup. Exactly one of ch and fn is set.
type fakeTimer struct {
	deadline  time.Time
	ch        chan time.Time // After, Sleep
	fn        func()         // AfterFunc
	cancelled bool
	fired     bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a wakeup at now+d and returns its channel. A
// non-positive d fires immediately without registering anything.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.add(&fakeTimer{deadline: c.now.Add(d), ch: ch})
	return ch
}

// AfterFunc registers f to run when the clock advances past now+d.
// With d <= 0, f runs synchronously before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}

	c.mu.Lock()
	t := &fakeTimer{deadline: c.now.Add(d), fn: f}
	c.add(t)
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t.cancelled || t.fired {
			return false
		}
		t.cancelled = true
		c.remove(t)
		return true
	}}
}

// Sleep blocks until the clock advances past now+d.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// Advance moves the clock forward by d, firing every pending timer
// whose deadline falls within the window. AfterFunc callbacks run
// synchronously, ordered by deadline, before Advance returns.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now

	var due []*fakeTimer
	var remaining []*fakeTimer
	for _, t := range c.pending {
		if !t.deadline.After(target) {
			t.fired = true
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	c.pending = remaining
	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	c.mu.Unlock()

	for _, t := range due {
		if t.ch != nil {
			t.ch <- t.deadline
		}
		if t.fn != nil {
			t.fn()
		}
	}
}

// TimerCount returns the number of pending timers. Tests use this to
// assert that a cancelled wait left nothing behind.
func (c *FakeClock) TimerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// WaitForTimers blocks until at least n timers are pending. Use this
// to synchronize with a goroutine that is about to register a timer,
// before calling Advance.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// add appends a timer and wakes WaitForTimers callers. Caller holds mu.
func (c *FakeClock) add(t *fakeTimer) {
	c.pending = append(c.pending, t)
	c.changed.Broadcast()
}

// remove deletes a timer from pending. Caller holds mu.
func (c *FakeClock) remove(t *fakeTimer) {
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}
