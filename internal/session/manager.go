/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"log/slog"
	"sync"

	"sigflow/internal/events"
	"sigflow/internal/intake"
)

// Manager holds the live sessions of one server process. Sessions are
// in-memory only; a restart drops unfinished preparations.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	dir      intake.Directory
	log      *slog.Logger
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// NewManager returns an empty manager backed by the given directory.
func NewManager(dir intake.Directory, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{sessions: map[string]*entry{}, dir: dir, log: log}
}

// Create starts an empty template or send session and registers it.
func (m *Manager) Create(kind ViewKind) (*Session, error) {
	s, err := New(kind, m.dir, m.log)
	if err != nil {
		return nil, err
	}
	m.register(s)
	return s, nil
}

// CreateFromExisting starts an edit or verify session over loaded state and
// registers it.
func (m *Manager) CreateFromExisting(kind ViewKind, ex Existing) (*Session, error) {
	s, err := NewFromExisting(kind, ex, m.dir, m.log)
	if err != nil {
		return nil, err
	}
	m.register(s)
	return s, nil
}

func (m *Manager) register(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = &entry{s: s}
	m.mu.Unlock()
	m.log.Info("session created", slog.String("session", s.ID), slog.String("view", string(s.Kind)))
	events.Emit("session.created", map[string]any{"view": string(s.Kind)})
}

// With runs fn while holding the session's lock. Session state is not safe
// for concurrent use, so every server handler goes through here.
func (m *Manager) With(id string, fn func(*Session) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// Delete discards a session. Deleting an unknown id is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
