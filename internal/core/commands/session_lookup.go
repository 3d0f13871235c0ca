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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that resolves a session id against the store.
package commands

import (
	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// SessionReader is the read side of the session store.
type SessionReader interface {
	Get(id string) (*model.Session, error)
}

// SessionLookup loads the session a question refers to.
type SessionLookup struct {
	cor.BaseCommand
	store SessionReader
}

// NewSessionLookup is the constructor for the SessionLookup command.
func NewSessionLookup(name string, store SessionReader) *SessionLookup {
	out := &SessionLookup{BaseCommand: *cor.NewBaseCommand(name), store: store}
	out.InputParamName = ParamSessionID
	out.OutputParamName = ParamSession
	return out
}

// Execute looks the session up. A miss is reported as a not-found error.
func (s *SessionLookup) Execute(context cor.Context) {
	sessionID := context.Get(s.GetInputParam()).(string)

	session, err := s.store.Get(sessionID)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), session)
}
