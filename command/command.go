// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package command implements Wavelink's built-in chat commands as a
// session.Handler. Commands are bare keywords in the message body;
// anything else is ignored (the archive handler still sees it). The
// handler replies on the same session the message arrived on.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wavelink-chat/wavelink/protocol"
)

// Handler answers the built-in commands.
type Handler struct {
	// OwnerContact is the contact identifier reported by the "owner"
	// command.
	OwnerContact string

	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
}

// HandleMessage implements session.Handler. Unknown commands are not
// errors — the handler answers what it knows and stays silent
// otherwise.
func (h *Handler) HandleMessage(ctx context.Context, client protocol.Client, sessionID, sender, text string) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var reply string
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "ping":
		reply = "pong"
	case "owner":
		if h.OwnerContact == "" {
			reply = "no owner configured"
		} else {
			reply = "owner: " + h.OwnerContact
		}
	default:
		return nil
	}

	if err := client.Send(ctx, sender, reply); err != nil {
		return fmt.Errorf("command: replying to %s: %w", sender, err)
	}
	logger.Debug("answered command",
		"session_id", sessionID,
		"sender", sender,
		"command", strings.TrimSpace(text),
	)
	return nil
}
