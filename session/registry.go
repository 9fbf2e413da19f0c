// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"

	"github.com/wavelink-chat/wavelink/protocol"
)

// Record is one session's entry in the registry: the identifier, the
// live client handle (nil when no connection exists), and the current
// status. Records are stored and returned by value — a Record obtained
// from Get is a snapshot, and changes are published with Upsert.
type Record struct {
	ID     string
	Client protocol.Client
	Status Status
}

// Registry is the in-memory map from session identifier to Record. It
// is the single source of truth for "is this session running and in
// what state".
//
// Lookups and inserts are safe under concurrent use from any
// goroutine. Read-modify-write sequences are not atomic here — the
// Manager serializes them per identifier, which is the only place
// records are mutated.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Get returns the record for the identifier and whether one exists.
func (r *Registry) Get(sessionID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[sessionID]
	return record, ok
}

// Upsert stores the record under its identifier, replacing any
// previous record.
func (r *Registry) Upsert(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
}

// StatusOf returns the identifier's status. Absent identifiers report
// StatusUnstarted — a status query never fails.
func (r *Registry) StatusOf(sessionID string) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[sessionID]
	if !ok {
		return StatusUnstarted
	}
	return record.Status
}

// IDs returns the identifiers with a registry entry, in no particular
// order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	return ids
}
