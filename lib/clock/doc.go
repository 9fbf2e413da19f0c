// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that code built
// on timers can be tested without sleeping.
//
// Production code takes a [Clock] instead of calling time.Now,
// time.After, time.AfterFunc, or time.Sleep directly. [Real] returns
// the standard library behavior. [Fake] returns a deterministic clock
// whose time moves only when the test calls Advance.
//
// The session manager's reconnect delay and the pairing coordinator's
// bounded wait are both scheduled through a Clock, which is what makes
// "exactly one reconnect after 2 seconds" and "timeout leaves no
// pending timers" directly assertable in tests:
//
//	c := clock.Fake(time.Unix(0, 0))
//	manager := session.NewManager(session.ManagerConfig{Clock: c, ...})
//	// ... deliver a close event ...
//	c.WaitForTimers(1)          // reconnect timer registered
//	c.Advance(2 * time.Second)  // fire it deterministically
//
// FakeClock callbacks registered with AfterFunc run synchronously
// inside Advance, in deadline order. Calling Advance or Sleep from
// inside such a callback deadlocks.
package clock
