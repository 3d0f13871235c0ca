// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the stateful services and model adapters used by
// the workflows. This file, `sessions.go`, defines the SessionStore, an
// in-memory map from session identifier to the artifacts of one uploaded clip.
//
// The store is created during bootstrap, handed to both workflows, and
// cleared at shutdown. Sessions are written once and never replaced, so a
// reader holding a *model.Session never observes a partial update. The
// mutex makes concurrent uploads and questions safe under gin's one
// goroutine per request model.
package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// ErrStoreClosed is returned by Put after Clear has been called.
var ErrStoreClosed = errors.New("session store is closed")

// SessionStore is an in-memory, process lifetime session map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	closed   bool
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*model.Session)}
}

// Put commits a complete session. It rejects sessions that are missing the
// fields every stored session must have, and identifiers already in use.
//
// Inputs:
//   - id: The session identifier; must equal session.ID.
//   - session: The fully populated session.
//
// Outputs:
//   - error: An internal error when the session cannot be stored.
func (s *SessionStore) Put(id string, session *model.Session) error {
	switch {
	case session == nil:
		return model.NewInternalError("session-store", errors.New("nil session"))
	case id == "" || id != session.ID:
		return model.NewInternalError("session-store", fmt.Errorf("session id mismatch: %q != %q", id, session.ID))
	case session.VideoPath == "" || session.VideoInfo == nil:
		return model.NewInternalError("session-store", fmt.Errorf("session %s is incomplete", id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.NewInternalError("session-store", ErrStoreClosed)
	}
	if _, exists := s.sessions[id]; exists {
		return model.NewInternalError("session-store", fmt.Errorf("session %s already exists", id))
	}
	s.sessions[id] = session
	return nil
}

// Get returns the session for id, or a not-found error.
func (s *SessionStore) Get(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.NewNotFoundError("session-store", "Session not found")
	}
	return session, nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear drops every session and refuses further writes. It returns the
// number of sessions dropped.
func (s *SessionStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*model.Session)
	s.closed = true
	return n
}
