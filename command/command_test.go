// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"testing"

	"github.com/wavelink-chat/wavelink/protocol"
	"github.com/wavelink-chat/wavelink/protocol/protocoltest"
)

func dialTestClient(t *testing.T) *protocoltest.Client {
	t.Helper()
	dialer := protocoltest.NewDialer()
	if _, err := dialer.Dial(context.Background(), &protocol.Credentials{}); err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	return dialer.Client(0)
}

func TestPing(t *testing.T) {
	client := dialTestClient(t)
	handler := &Handler{OwnerContact: "+15550001111"}

	if err := handler.HandleMessage(context.Background(), client, "primary", "+1555", "ping"); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	sends := client.Sends()
	if len(sends) != 1 || sends[0].To != "+1555" || sends[0].Text != "pong" {
		t.Errorf("sends = %+v, want pong to +1555", sends)
	}
}

func TestCommandsAreTrimmedAndCaseInsensitive(t *testing.T) {
	client := dialTestClient(t)
	handler := &Handler{OwnerContact: "+15550001111"}

	for _, text := range []string{"  PING  ", "Owner", "owner"} {
		if err := handler.HandleMessage(context.Background(), client, "primary", "peer", text); err != nil {
			t.Fatalf("HandleMessage(%q) failed: %v", text, err)
		}
	}
	sends := client.Sends()
	if len(sends) != 3 {
		t.Fatalf("len(sends) = %d, want 3", len(sends))
	}
	if sends[0].Text != "pong" {
		t.Errorf("sends[0] = %q, want pong", sends[0].Text)
	}
	if sends[1].Text != "owner: +15550001111" {
		t.Errorf("sends[1] = %q", sends[1].Text)
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	client := dialTestClient(t)
	handler := &Handler{}

	if err := handler.HandleMessage(context.Background(), client, "primary", "peer", "hello there"); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if n := len(client.Sends()); n != 0 {
		t.Errorf("len(sends) = %d, want 0 for an unknown command", n)
	}
}

func TestOwnerUnconfigured(t *testing.T) {
	client := dialTestClient(t)
	handler := &Handler{}

	if err := handler.HandleMessage(context.Background(), client, "primary", "peer", "owner"); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	sends := client.Sends()
	if len(sends) != 1 || sends[0].Text != "no owner configured" {
		t.Errorf("sends = %+v", sends)
	}
}
