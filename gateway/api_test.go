// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wavelink-chat/wavelink/lib/testutil"
	"github.com/wavelink-chat/wavelink/protocol"
	"github.com/wavelink-chat/wavelink/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeManager scripts the session manager surface the API consumes.
type fakeManager struct {
	mu sync.Mutex

	pairingResult session.PairingResult
	pairingErr    error
	deployErr     error
	statuses      map[string]session.Status

	ensured []string
	paired  []string
}

func (f *fakeManager) EnsureStarted(_ context.Context, sessionID string) (protocol.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, sessionID)
	if f.deployErr != nil {
		return nil, f.deployErr
	}
	return nil, nil
}

func (f *fakeManager) PairingCode(_ context.Context, sessionID string, _ time.Duration) (session.PairingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paired = append(f.paired, sessionID)
	return f.pairingResult, f.pairingErr
}

func (f *fakeManager) Status(sessionID string) session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[sessionID]; ok {
		return status
	}
	return session.StatusUnstarted
}

func newTestAPI(manager *fakeManager) *API {
	return NewAPI(APIConfig{Manager: manager, Logger: discardLogger()})
}

func doJSON(t *testing.T, api *API, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	recorder := httptest.NewRecorder()
	api.ServeHTTP(recorder, request)

	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response %q is not JSON: %v", recorder.Body.String(), err)
	}
	return recorder, decoded
}

func TestGenerateReturnsPairingCode(t *testing.T) {
	manager := &fakeManager{pairingResult: session.PairingResult{Code: "ABCD-1234"}}
	api := newTestAPI(manager)

	recorder, body := doJSON(t, api, http.MethodPost, "/api/generate", `{"sessionId":"work"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["pairing_code"] != "ABCD-1234" {
		t.Errorf("body = %v, want pairing_code ABCD-1234", body)
	}
	if len(manager.paired) != 1 || manager.paired[0] != "work" {
		t.Errorf("manager saw pairing requests %v, want [work]", manager.paired)
	}
}

func TestGenerateAlreadyPaired(t *testing.T) {
	manager := &fakeManager{pairingResult: session.PairingResult{AlreadyPaired: true}}
	api := newTestAPI(manager)

	recorder, body := doJSON(t, api, http.MethodPost, "/api/generate", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["message"] != "already_paired" {
		t.Errorf("body = %v, want message already_paired", body)
	}
	if len(manager.paired) != 1 || manager.paired[0] != DefaultSessionID {
		t.Errorf("manager saw pairing requests %v, want the default session", manager.paired)
	}
}

func TestGenerateTimeoutReportsError(t *testing.T) {
	manager := &fakeManager{pairingErr: session.ErrPairingTimeout}
	api := newTestAPI(manager)

	recorder, body := doJSON(t, api, http.MethodPost, "/api/generate", "{}")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if body["error"] == "" {
		t.Errorf("body = %v, want an error detail", body)
	}
}

func TestGenerateRejectsMalformedBody(t *testing.T) {
	api := newTestAPI(&fakeManager{})

	recorder, _ := doJSON(t, api, http.MethodPost, "/api/generate", "{not json")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestDeploySuccess(t *testing.T) {
	manager := &fakeManager{}
	api := newTestAPI(manager)

	recorder, body := doJSON(t, api, http.MethodPost, "/api/deploy", `{"sessionId":"work"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["success"] != true {
		t.Errorf("body = %v, want success true", body)
	}
	if len(manager.ensured) != 1 || manager.ensured[0] != "work" {
		t.Errorf("manager saw deploys %v, want [work]", manager.ensured)
	}
}

func TestDeployFailure(t *testing.T) {
	manager := &fakeManager{deployErr: errors.New("gateway unreachable")}
	api := newTestAPI(manager)

	recorder, body := doJSON(t, api, http.MethodPost, "/api/deploy", "")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if body["error"] != "gateway unreachable" {
		t.Errorf("body = %v, want the failure detail", body)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		internal session.Status
		want     string
	}{
		{session.StatusConnected, "connected"},
		{session.StatusStarting, "starting"},
		{session.StatusDisconnected, "starting"},
		{session.StatusLoggedOut, "logged_out"},
		{session.StatusUnstarted, "stopped"},
	}
	for _, tc := range cases {
		t.Run(string(tc.internal), func(t *testing.T) {
			manager := &fakeManager{statuses: map[string]session.Status{"work": tc.internal}}
			api := newTestAPI(manager)

			recorder, body := doJSON(t, api, http.MethodGet, "/api/status?sessionId=work", "")
			if recorder.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", recorder.Code)
			}
			if body["success"] != true || body["status"] != tc.want {
				t.Errorf("body = %v, want status %q", body, tc.want)
			}
		})
	}
}

func TestStatusUnknownSessionIsStopped(t *testing.T) {
	api := newTestAPI(&fakeManager{})

	recorder, body := doJSON(t, api, http.MethodGet, "/api/status?sessionId=never-seen", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if body["status"] != "stopped" {
		t.Errorf("body = %v, want status stopped", body)
	}
}

func TestStatusDefaultsSessionID(t *testing.T) {
	manager := &fakeManager{statuses: map[string]session.Status{DefaultSessionID: session.StatusConnected}}
	api := newTestAPI(manager)

	_, body := doJSON(t, api, http.MethodGet, "/api/status", "")
	if body["status"] != "connected" {
		t.Errorf("body = %v, want the default session's status", body)
	}
}

func TestServerWriteTimeoutIsConfigurable(t *testing.T) {
	base := ServerConfig{
		Address: "127.0.0.1:0",
		Handler: newTestAPI(&fakeManager{}),
		Logger:  discardLogger(),
	}

	server := NewServer(base)
	if server.writeTimeout != 5*time.Minute {
		t.Errorf("default write timeout = %v, want 5m", server.writeTimeout)
	}

	// A long configured pairing wait needs a longer write timeout:
	// the generate response is not written until the wait resolves.
	long := base
	long.WriteTimeout = 20 * time.Minute
	server = NewServer(long)
	if server.writeTimeout != 20*time.Minute {
		t.Errorf("write timeout = %v, want 20m", server.writeTimeout)
	}
}

func TestServerLifecycle(t *testing.T) {
	manager := &fakeManager{}
	server := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		Handler: newTestAPI(manager),
		Logger:  discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()

	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "server ready")

	response, err := http.Get(fmt.Sprintf("http://%s/api/status", server.Addr()))
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	cancel()
	if err := testutil.RequireReceive(t, served, 5*time.Second, "server exit"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
