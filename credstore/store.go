// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package credstore persists per-session credential material on disk.
//
// Each session identifier owns one directory under the store root,
// created on first use. The directory holds a single CBOR-encoded
// credentials file; the presence of that file is the sole "already
// paired" signal the rest of the system consults. Saves are atomic
// (write to a temp file, then rename) so a crash mid-save never
// destroys a valid pairing.
//
// The store performs no locking of its own: the session manager
// serializes all access for a given identifier (loads happen only at
// session start, saves only from that session's credential-change
// observer).
package credstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wavelink-chat/wavelink/lib/codec"
	"github.com/wavelink-chat/wavelink/protocol"
)

// credentialsFile is the per-session file whose presence means
// "paired". The name is part of the on-disk contract — status and
// pairing decisions key off it.
const credentialsFile = "credentials.cbor"

// Store is a directory-per-session credential store rooted at a single
// directory.
type Store struct {
	root   string
	logger *slog.Logger
}

// New creates a Store rooted at root, creating the root directory if
// needed. A nil logger defaults to slog.Default().
func New(root string, logger *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("credstore: root directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("credstore: creating root %s: %w", root, err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Exists reports whether a credentials file exists for the identifier,
// i.e. whether the session has completed pairing.
func (s *Store) Exists(sessionID string) (bool, error) {
	path, err := s.credentialsPath(sessionID)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("credstore: checking %s: %w", sessionID, err)
	}
	return true, nil
}

// Load reads the credentials for the identifier, creating the
// session's directory if it does not exist yet. An absent credentials
// file yields fresh zero-value credentials, not an error — that is the
// normal state before first pairing.
func (s *Store) Load(sessionID string) (*protocol.Credentials, error) {
	path, err := s.credentialsPath(sessionID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("credstore: creating session directory for %s: %w", sessionID, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &protocol.Credentials{}, nil
		}
		return nil, fmt.Errorf("credstore: reading credentials for %s: %w", sessionID, err)
	}

	var creds protocol.Credentials
	if err := codec.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("credstore: decoding credentials for %s: %w", sessionID, err)
	}
	return &creds, nil
}

// Save writes the credentials for the identifier atomically. The
// session directory must already exist (Load creates it).
func (s *Store) Save(sessionID string, creds *protocol.Credentials) error {
	path, err := s.credentialsPath(sessionID)
	if err != nil {
		return err
	}

	data, err := codec.Marshal(creds)
	if err != nil {
		return fmt.Errorf("credstore: encoding credentials for %s: %w", sessionID, err)
	}

	// Temp file in the same directory so the rename stays on one
	// filesystem and is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(path), credentialsFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("credstore: creating temp file for %s: %w", sessionID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("credstore: writing credentials for %s: %w", sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credstore: closing temp file for %s: %w", sessionID, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credstore: installing credentials for %s: %w", sessionID, err)
	}

	s.logger.Debug("saved credentials", "session_id", sessionID)
	return nil
}

// Clear removes the identifier's entire storage area. After a clear,
// the identifier can pair again from scratch. Clearing an identifier
// that has no storage area is a no-op.
func (s *Store) Clear(sessionID string) error {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("credstore: clearing %s: %w", sessionID, err)
	}
	return nil
}

// Paired lists the identifiers that have a credentials file, in
// directory order. The daemon uses this at boot to restart every
// previously paired session.
func (s *Store) Paired() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("credstore: listing %s: %w", s.root, err)
	}

	var paired []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, entry.Name(), credentialsFile)); err == nil {
			paired = append(paired, entry.Name())
		}
	}
	return paired, nil
}

// sessionDir maps an identifier to its directory, rejecting
// identifiers that would escape the root.
func (s *Store) sessionDir(sessionID string) (string, error) {
	if err := validateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, sessionID), nil
}

func (s *Store) credentialsPath(sessionID string) (string, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFile), nil
}

// validateSessionID rejects identifiers that are empty or contain
// path-relevant characters. Session identifiers name directories, so
// anything with a separator or a leading dot is refused outright.
func validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("credstore: session identifier is required")
	}
	if strings.ContainsAny(sessionID, "/\\") || strings.HasPrefix(sessionID, ".") {
		return fmt.Errorf("credstore: invalid session identifier %q", sessionID)
	}
	return nil
}
