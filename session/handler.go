// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/wavelink-chat/wavelink/protocol"
)

// Handler consumes inbound messages. The manager invokes it
// fire-and-forget, one goroutine per message: a slow or failing
// handler never blocks the session's event loop, and a returned error
// is logged and swallowed — it cannot drop the connection.
//
// The client parameter is the session's live connection, for handlers
// that reply.
type Handler interface {
	HandleMessage(ctx context.Context, client protocol.Client, sessionID, sender, text string) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, client protocol.Client, sessionID, sender, text string) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, client protocol.Client, sessionID, sender, text string) error {
	return f(ctx, client, sessionID, sender, text)
}

// Chain combines handlers into one that invokes each in order. Every
// handler runs regardless of earlier failures; the first error is
// returned (and thus logged by the manager).
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, client protocol.Client, sessionID, sender, text string) error {
		var first error
		for _, h := range handlers {
			if err := h.HandleMessage(ctx, client, sessionID, sender, text); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
