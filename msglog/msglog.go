// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package msglog archives inbound messages to SQLite. The daemon wires
// a Log into the session manager's handler chain, so every message any
// session receives is recorded with its session, sender, and arrival
// time. Recording failures are returned (and thus logged by the
// manager) but never affect the connection — the archive is an
// observer, not a participant.
package msglog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/wavelink-chat/wavelink/lib/clock"
	"github.com/wavelink-chat/wavelink/lib/sqlitepool"
	"github.com/wavelink-chat/wavelink/protocol"
)

// Entry is one archived message.
type Entry struct {
	SessionID  string
	Sender     string
	Text       string
	ReceivedAt time.Time
}

// Log is a SQLite-backed message archive.
type Log struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

// Config holds the parameters for opening a Log.
type Config struct {
	// Path is the database file. Required.
	Path string

	// Clock stamps arrival times. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is passed to the connection pool. Optional.
	Logger *slog.Logger
}

// Open creates or opens the archive, creating the schema on first use.
func Open(config Config) (*Log, error) {
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   config.Path,
		Logger: config.Logger,
		Schema: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, `
				CREATE TABLE IF NOT EXISTS messages (
					id          INTEGER PRIMARY KEY,
					session_id  TEXT NOT NULL,
					sender      TEXT NOT NULL,
					body        TEXT NOT NULL,
					received_at INTEGER NOT NULL
				)`, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("msglog: %w", err)
	}
	return &Log{pool: pool, clock: clk}, nil
}

// Close closes the underlying pool.
func (l *Log) Close() error {
	return l.pool.Close()
}

// HandleMessage records one inbound message. It implements
// session.Handler, which is how the Log sits in the daemon's handler
// chain; the client parameter is unused.
func (l *Log) HandleMessage(ctx context.Context, _ protocol.Client, sessionID, sender, text string) error {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("msglog: recording message: %w", err)
	}
	defer l.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO messages (session_id, sender, body, received_at) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{sessionID, sender, text, l.clock.Now().UnixMilli()},
		})
	if err != nil {
		return fmt.Errorf("msglog: recording message for %s: %w", sessionID, err)
	}
	return nil
}

// Recent returns the newest messages for a session, newest first,
// capped at limit.
func (l *Log) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("msglog: listing messages: %w", err)
	}
	defer l.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn,
		`SELECT session_id, sender, body, received_at
		   FROM messages
		  WHERE session_id = ?
		  ORDER BY id DESC
		  LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{sessionID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{
					SessionID:  stmt.ColumnText(0),
					Sender:     stmt.ColumnText(1),
					Text:       stmt.ColumnText(2),
					ReceivedAt: time.UnixMilli(stmt.ColumnInt64(3)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("msglog: listing messages for %s: %w", sessionID, err)
	}
	return entries, nil
}
