// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wavelink-chat/wavelink/protocol"
	"github.com/wavelink-chat/wavelink/session"
)

// DefaultSessionID is used when a request does not name a session.
// Single-account deployments never need to pick identifiers.
const DefaultSessionID = "default"

// DefaultPairingTimeout bounds how long POST /api/generate waits for a
// pairing code before giving up.
const DefaultPairingTimeout = 60 * time.Second

// SessionManager is the slice of the session manager the API needs.
type SessionManager interface {
	EnsureStarted(ctx context.Context, sessionID string) (protocol.Client, error)
	PairingCode(ctx context.Context, sessionID string, timeout time.Duration) (session.PairingResult, error)
	Status(sessionID string) session.Status
}

// APIConfig configures the API handler.
type APIConfig struct {
	// Manager handles the session operations. Required.
	Manager SessionManager

	// PairingTimeout bounds the pairing code wait. Defaults to
	// DefaultPairingTimeout if zero.
	PairingTimeout time.Duration

	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
}

// API is the http.Handler for the daemon's REST surface.
type API struct {
	manager        SessionManager
	pairingTimeout time.Duration
	logger         *slog.Logger
	mux            *http.ServeMux
}

// NewAPI builds the handler. Panics if the manager is missing — that
// is a wiring bug, not a runtime condition.
func NewAPI(config APIConfig) *API {
	if config.Manager == nil {
		panic("gateway.NewAPI: Manager is required")
	}
	timeout := config.PairingTimeout
	if timeout <= 0 {
		timeout = DefaultPairingTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		manager:        config.Manager,
		pairingTimeout: timeout,
		logger:         logger,
		mux:            http.NewServeMux(),
	}
	a.mux.HandleFunc("POST /api/generate", a.handleGenerate)
	a.mux.HandleFunc("POST /api/deploy", a.handleDeploy)
	a.mux.HandleFunc("GET /api/status", a.handleStatus)
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// sessionRequest is the body both POST endpoints accept. An empty body
// is equivalent to {} — the default session.
type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

// sessionIDFromBody extracts the target identifier from a POST body,
// falling back to DefaultSessionID.
func sessionIDFromBody(r *http.Request) (string, error) {
	var request sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if request.SessionID == "" {
		return DefaultSessionID, nil
	}
	return request.SessionID, nil
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromBody(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.manager.PairingCode(r.Context(), sessionID, a.pairingTimeout)
	if err != nil {
		a.logger.Error("pairing code request failed",
			"session_id", sessionID,
			"error", err,
		)
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if result.AlreadyPaired {
		a.writeJSON(w, http.StatusOK, map[string]any{"message": "already_paired"})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"pairing_code": result.Code})
}

func (a *API) handleDeploy(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromBody(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := a.manager.EnsureStarted(r.Context(), sessionID); err != nil {
		a.logger.Error("deploy failed", "session_id", sessionID, "error", err)
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  reportedStatus(a.manager.Status(sessionID)),
	})
}

// reportedStatus maps internal lifecycle statuses onto the caller-
// facing vocabulary. A session waiting out its reconnect delay is
// "starting" (it will be dialed again without caller action), and an
// identifier with no record is simply "stopped".
func reportedStatus(status session.Status) string {
	switch status {
	case session.StatusConnected:
		return "connected"
	case session.StatusStarting, session.StatusDisconnected:
		return "starting"
	case session.StatusLoggedOut:
		return "logged_out"
	default:
		return "stopped"
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("writing response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]any{"error": err.Error()})
}
