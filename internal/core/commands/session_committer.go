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
// last step of the upload chain, which assembles the session and commits it.
//
// Logic Flow:
//  1. Collect every artifact published by the earlier commands.
//  2. Build the complete model.Session in one go.
//  3. Put it into the SessionStore exactly once. Until this call succeeds no
//     question can find the session, so a failed upload never leaves a
//     partial entry behind.
package commands

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// SessionWriter is the write side of the session store.
type SessionWriter interface {
	Put(id string, session *model.Session) error
}

// SessionCommitter stores the assembled session.
type SessionCommitter struct {
	cor.BaseCommand
	store SessionWriter
	now   func() time.Time
}

// NewSessionCommitter is the constructor for the SessionCommitter command.
func NewSessionCommitter(name string, store SessionWriter) *SessionCommitter {
	out := &SessionCommitter{BaseCommand: *cor.NewBaseCommand(name), store: store, now: time.Now}
	out.InputParamName = ParamSessionID
	out.OutputParamName = ParamSession
	return out
}

// IsExecutable requires every artifact a session must carry. Frames may be
// an empty slice but must have been produced.
func (s *SessionCommitter) IsExecutable(context cor.Context) bool {
	return s.BaseCommand.IsExecutable(context) &&
		context.Get(ParamVideoPath) != nil &&
		context.Get(ParamVideoInfo) != nil &&
		context.Get(ParamTranscript) != nil &&
		context.Get(ParamFrames) != nil
}

// Execute builds and commits the session.
func (s *SessionCommitter) Execute(context cor.Context) {
	sessionID := context.Get(s.GetInputParam()).(string)
	transcript := context.Get(ParamTranscript).(*model.Transcript)
	filename, _ := context.Get(ParamFilename).(string)

	session := &model.Session{
		ID:         sessionID,
		Filename:   filename,
		VideoPath:  context.Get(ParamVideoPath).(string),
		VideoInfo:  context.Get(ParamVideoInfo).(*model.VideoInfo),
		Transcript: transcript.Text,
		Segments:   transcript.Segments,
		Frames:     context.Get(ParamFrames).([]*model.Frame),
		CreatedAt:  s.now().UTC(),
	}

	if s.store == nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), model.NewInternalError(s.GetName(), errors.New("session store is not configured")))
		return
	}
	if err := s.store.Put(sessionID, session); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	slog.InfoContext(context.GetContext(), "session committed",
		"session_id", sessionID, "frames", len(session.Frames), "transcript_length", len(session.Transcript))
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), session)
}
