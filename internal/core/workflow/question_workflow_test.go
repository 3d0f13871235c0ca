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

package workflow_test

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-qa/internal/testutil"
)

type questionFixture struct {
	config *cloud.Config
	runner *test.FakeRunner
	engine *test.FakeAnswerEngine
	store  *services.SessionStore
}

func newQuestionFixture(t *testing.T) *questionFixture {
	t.Helper()
	return &questionFixture{
		config: test.NewTestConfig(t),
		runner: &test.FakeRunner{Frame: test.TinyJPEG(color.Black)},
		engine: &test.FakeAnswerEngine{Reply: "The ball is red."},
		store:  services.NewSessionStore(),
	}
}

func (f *questionFixture) build(t *testing.T, engine services.AnswerEngine) *workflow.QuestionWorkflow {
	t.Helper()
	w, err := workflow.NewQuestionWorkflow(f.config, media.NewFFmpegExtractor(f.config.Media, f.runner), engine, f.store)
	require.NoError(t, err)
	return w
}

func (f *questionFixture) addSession(t *testing.T, id string, frames int) *model.Session {
	t.Helper()
	session := &model.Session{
		ID:         id,
		Filename:   "clip.mp4",
		VideoPath:  "/uploads/" + id + "/clip.mp4",
		VideoInfo:  &model.VideoInfo{Duration: 10},
		Transcript: "someone throws a ball",
		Frames:     make([]*model.Frame, 0, frames),
		CreatedAt:  time.Now(),
	}
	for i := 0; i < frames; i++ {
		session.Frames = append(session.Frames, &model.Frame{Index: i, Timestamp: float64(i * 2), MIMEType: "image/jpeg", Data: test.TinyJPEG(color.White)})
	}
	require.NoError(t, f.store.Put(id, session))
	return session
}

func TestAskAnswersFromMidpointFrame(t *testing.T) {
	f := newQuestionFixture(t)
	session := f.addSession(t, "abc", 5)

	answer, err := f.build(t, f.engine).Ask(context.Background(), "abc", "What color is the ball?")

	require.NoError(t, err)
	assert.Equal(t, "The ball is red.", answer)
	require.Len(t, f.engine.Requests, 1)
	request := f.engine.Requests[0]
	assert.Same(t, session.Frames[2], request.Image)
	assert.Equal(t, "What color is the ball?", request.Question)
	assert.Contains(t, request.Prompt, "someone throws a ball")
	assert.Contains(t, request.Prompt, "What color is the ball?")
	assert.Empty(t, f.runner.Calls())
}

func TestAskStripsEchoedPrompt(t *testing.T) {
	f := newQuestionFixture(t)
	f.addSession(t, "abc", 3)
	f.engine.Respond = func(request *model.AnswerRequest) string {
		return request.Prompt + "\n<grounding><phrase>The ball</phrase> is red."
	}

	answer, err := f.build(t, f.engine).Ask(context.Background(), "abc", "What color is the ball?")

	require.NoError(t, err)
	assert.Equal(t, "The ball is red.", answer)
}

func TestAskFallsBackOnEmptyAnswer(t *testing.T) {
	f := newQuestionFixture(t)
	f.addSession(t, "abc", 3)
	f.engine.Respond = func(request *model.AnswerRequest) string { return request.Prompt }

	answer, err := f.build(t, f.engine).Ask(context.Background(), "abc", "What color is the ball?")

	require.NoError(t, err)
	assert.Equal(t, cloud.DefaultFallbackAnswer, answer)
}

func TestAskWithoutStoredFrames(t *testing.T) {
	f := newQuestionFixture(t)
	f.addSession(t, "abc", 0)

	_, err := f.build(t, f.engine).Ask(context.Background(), "abc", "What happens?")

	require.NoError(t, err)
	assert.Equal(t, []float64{5}, f.runner.FrameOffsets())
	require.Len(t, f.engine.Requests, 1)
	assert.Equal(t, 5.0, f.engine.Requests[0].Image.Timestamp)
}

func TestAskUsesPlaceholderWhenNothingDecodes(t *testing.T) {
	f := newQuestionFixture(t)
	f.runner.FailAll = true
	f.addSession(t, "abc", 0)

	_, err := f.build(t, f.engine).Ask(context.Background(), "abc", "What happens?")

	require.NoError(t, err)
	placeholder, err := media.PlaceholderFrame(5)
	require.NoError(t, err)
	assert.Equal(t, placeholder.Data, f.engine.Requests[0].Image.Data)
}

func TestAskValidatesBeforeLookup(t *testing.T) {
	f := newQuestionFixture(t)
	w := f.build(t, f.engine)

	for _, tc := range []struct{ sessionID, question string }{
		{"", "What?"},
		{"unknown", "   "},
		{"", ""},
	} {
		_, err := w.Ask(context.Background(), tc.sessionID, tc.question)
		assert.True(t, model.IsKind(err, model.KindValidation), "%q/%q", tc.sessionID, tc.question)
		assert.Equal(t, "Session ID and question required", model.Cause(err))
	}
	assert.Empty(t, f.engine.Requests)
}

func TestAskUnknownSession(t *testing.T) {
	f := newQuestionFixture(t)

	_, err := f.build(t, f.engine).Ask(context.Background(), "does-not-exist", "What?")

	assert.True(t, model.IsKind(err, model.KindNotFound))
	assert.Equal(t, "Session not found", model.Cause(err))
	assert.Empty(t, f.engine.Requests)
}

func TestAskModelFailures(t *testing.T) {
	f := newQuestionFixture(t)
	f.addSession(t, "abc", 3)

	_, err := f.build(t, &test.FakeAnswerEngine{Err: errors.New("deadline exceeded")}).Ask(context.Background(), "abc", "What?")
	assert.True(t, model.IsKind(err, model.KindModel))

	_, err = f.build(t, nil).Ask(context.Background(), "abc", "What?")
	assert.True(t, model.IsKind(err, model.KindModel))
}

func TestAskCustomPromptTemplate(t *testing.T) {
	f := newQuestionFixture(t)
	f.addSession(t, "abc", 1)
	f.config.PromptTemplates.AnswerPrompt = "Q={{ .QUESTION }} T={{ .TRANSCRIPT }}"
	f.config.PromptTemplates.FallbackAnswer = "no idea"
	f.engine.Reply = "  "

	answer, err := f.build(t, f.engine).Ask(context.Background(), "abc", "why?")

	require.NoError(t, err)
	assert.Equal(t, "no idea", answer)
	assert.Equal(t, "Q=why? T=someone throws a ball", f.engine.Requests[0].Prompt)
}

func TestNewQuestionWorkflowRejectsBadTemplate(t *testing.T) {
	f := newQuestionFixture(t)
	f.config.PromptTemplates.AnswerPrompt = "{{ .QUESTION "

	_, err := workflow.NewQuestionWorkflow(f.config, nil, f.engine, f.store)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "template"))
}
