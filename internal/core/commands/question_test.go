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

package commands_test

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
	test "github.com/jaycherian/gcp-go-video-qa/internal/testutil"
)

func framesOf(n int) []*model.Frame {
	out := make([]*model.Frame, n)
	for i := range out {
		out[i] = &model.Frame{Index: i, Timestamp: float64(i), MIMEType: "image/jpeg", Data: []byte{byte(i)}}
	}
	return out
}

func TestQuestionValidator(t *testing.T) {
	cases := map[string]*model.Question{
		"blank session":  {SessionID: "  ", Text: "What?"},
		"blank question": {SessionID: "abc", Text: "\t"},
		"both empty":     {},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := newContext()
			ctx.Add(commands.ParamQuestion, q)

			commands.NewQuestionValidator("question-validator").Execute(ctx)

			assert.True(t, model.IsKind(ctx.Err(), model.KindValidation))
			assert.Equal(t, commands.MissingQuestionMessage, model.Cause(ctx.Err()))
		})
	}

	ctx := newContext()
	q := &model.Question{SessionID: " abc ", Text: " What color? "}
	ctx.Add(commands.ParamQuestion, q)
	commands.NewQuestionValidator("question-validator").Execute(ctx)
	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "abc", ctx.Get(commands.ParamSessionID))
	assert.Equal(t, "What color?", q.Text)
}

func TestSessionLookup(t *testing.T) {
	store := map[string]*model.Session{"abc": {ID: "abc"}}
	lookup := commands.NewSessionLookup("session-lookup", readerFunc(func(id string) (*model.Session, error) {
		if s, ok := store[id]; ok {
			return s, nil
		}
		return nil, model.NewNotFoundError("test", "Session not found")
	}))

	ctx := newContext()
	ctx.Add(commands.ParamSessionID, "abc")
	lookup.Execute(ctx)
	assert.Equal(t, store["abc"], ctx.Get(commands.ParamSession))

	ctx = newContext()
	ctx.Add(commands.ParamSessionID, "missing")
	lookup.Execute(ctx)
	assert.True(t, model.IsKind(ctx.Err(), model.KindNotFound))
}

type readerFunc func(id string) (*model.Session, error)

func (f readerFunc) Get(id string) (*model.Session, error) { return f(id) }

func TestFrameSelectorPicksMidpoint(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 4: 2, 5: 2, 6: 3}
	for n, want := range cases {
		ctx := newContext()
		ctx.Add(commands.ParamSession, &model.Session{ID: "abc", Frames: framesOf(n), VideoInfo: &model.VideoInfo{Duration: 5}})

		commands.NewFrameSelector("frame-selector", nil).Execute(ctx)

		require.False(t, ctx.HasErrors())
		assert.Equal(t, want, ctx.Get(commands.ParamFrame).(*model.Frame).Index, "n=%d", n)
	}
}

func TestFrameSelectorExtractsMidpointWithoutFrames(t *testing.T) {
	runner := &test.FakeRunner{Frame: test.TinyJPEG(color.Black)}
	extractor := media.NewFFmpegExtractor(cloud.NewConfig().Media, runner)
	ctx := newContext()
	ctx.Add(commands.ParamSession, &model.Session{ID: "abc", VideoPath: "/tmp/clip.mp4", VideoInfo: &model.VideoInfo{Duration: 8}})

	commands.NewFrameSelector("frame-selector", extractor).Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, []float64{4}, runner.FrameOffsets())
	assert.Equal(t, 4.0, ctx.Get(commands.ParamFrame).(*model.Frame).Timestamp)
}

func TestFrameSelectorFallsBackToPlaceholder(t *testing.T) {
	runner := &test.FakeRunner{FailAll: true}
	extractor := media.NewFFmpegExtractor(cloud.NewConfig().Media, runner)
	ctx := newContext()
	ctx.Add(commands.ParamSession, &model.Session{ID: "abc", VideoPath: "/tmp/clip.mp4", VideoInfo: &model.VideoInfo{Duration: 3}})

	commands.NewFrameSelector("frame-selector", extractor).Execute(ctx)

	require.False(t, ctx.HasErrors())
	frame := ctx.Get(commands.ParamFrame).(*model.Frame)
	placeholder, err := media.PlaceholderFrame(1.5)
	require.NoError(t, err)
	assert.Equal(t, placeholder.Data, frame.Data)
}

func TestPromptComposer(t *testing.T) {
	tmpl := template.Must(template.New("answer").Parse(cloud.DefaultAnswerPrompt))
	ctx := newContext()
	ctx.Add(commands.ParamSession, &model.Session{ID: "abc", Transcript: "a dog barks"})
	ctx.Add(commands.ParamQuestion, &model.Question{SessionID: "abc", Text: "What animal?"})

	commands.NewPromptComposer("prompt-composer", tmpl).Execute(ctx)

	require.False(t, ctx.HasErrors())
	prompt := ctx.Get(commands.ParamPrompt).(string)
	assert.Contains(t, prompt, "a dog barks")
	assert.Contains(t, prompt, "What animal?")
}

func TestPromptComposerTemplateFailure(t *testing.T) {
	tmpl := template.Must(template.New("answer").Option("missingkey=error").Parse("{{.MISSING}}"))
	ctx := newContext()
	ctx.Add(commands.ParamSession, &model.Session{ID: "abc"})
	ctx.Add(commands.ParamQuestion, &model.Question{Text: "q"})

	commands.NewPromptComposer("prompt-composer", tmpl).Execute(ctx)

	assert.True(t, model.IsKind(ctx.Err(), model.KindInternal))
}

func TestAnswerGenerator(t *testing.T) {
	engine := &test.FakeAnswerEngine{Reply: "red"}
	ctx := newContext()
	frame := framesOf(3)[1]
	ctx.Add(commands.ParamSession, &model.Session{ID: "abc", Transcript: "a ball"})
	ctx.Add(commands.ParamQuestion, &model.Question{Text: "What color?"})
	ctx.Add(commands.ParamFrame, frame)
	ctx.Add(commands.ParamPrompt, "the prompt")

	commands.NewAnswerGenerator("answer-generator", engine).Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, "red", ctx.Get(commands.ParamRawAnswer))
	require.Len(t, engine.Requests, 1)
	assert.Equal(t, "the prompt", engine.Requests[0].Prompt)
	assert.Equal(t, "What color?", engine.Requests[0].Question)
	assert.Equal(t, "a ball", engine.Requests[0].Transcript)
	assert.Same(t, frame, engine.Requests[0].Image)
}

func TestAnswerGeneratorFailures(t *testing.T) {
	cases := map[string]services.AnswerEngine{
		"not loaded":   nil,
		"engine error": &test.FakeAnswerEngine{Err: errors.New("boom")},
	}
	for name, engine := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := newContext()
			ctx.Add(commands.ParamQuestion, &model.Question{Text: "q"})
			ctx.Add(commands.ParamFrame, framesOf(1)[0])
			ctx.Add(commands.ParamPrompt, "p")

			commands.NewAnswerGenerator("answer-generator", engine).Execute(ctx)

			assert.True(t, model.IsKind(ctx.Err(), model.KindModel))
			assert.Nil(t, ctx.Get(commands.ParamRawAnswer))
		})
	}
}

func TestTranscriberCommand(t *testing.T) {
	fake := &test.FakeTranscriber{Transcript: &model.Transcript{Text: "hello"}}
	ctx := newContext()
	ctx.Add(commands.ParamAudioPath, "/tmp/clip.wav")

	commands.NewTranscriber("transcriber", fake).Execute(ctx)

	assert.Equal(t, "hello", ctx.Get(commands.ParamTranscript).(*model.Transcript).Text)
	assert.Equal(t, []string{"/tmp/clip.wav"}, fake.Paths)
}

func TestTranscriberCommandIsNonFatal(t *testing.T) {
	cases := map[string]*commands.Transcriber{
		"engine error": commands.NewTranscriber("transcriber", &test.FakeTranscriber{Err: errors.New("quota")}),
		"no engine":    commands.NewTranscriber("transcriber", nil),
	}
	for name, cmd := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := newContext()
			ctx.Add(commands.ParamAudioPath, "/tmp/clip.wav")

			cmd.Execute(ctx)

			assert.False(t, ctx.HasErrors())
			assert.Equal(t, "", ctx.Get(commands.ParamTranscript).(*model.Transcript).Text)
		})
	}

	fake := &test.FakeTranscriber{}
	ctx := newContext()
	commands.NewTranscriber("transcriber", fake).Execute(ctx)
	assert.Empty(t, fake.Paths)
	assert.NotNil(t, ctx.Get(commands.ParamTranscript))
}

func TestAudioExtractorSkipsSilentClips(t *testing.T) {
	runner := &test.FakeRunner{}
	ctx := newContext()
	ctx.Add(commands.ParamVideoPath, "/tmp/clip.mp4")
	ctx.Add(commands.ParamVideoInfo, &model.VideoInfo{Duration: 2, HasAudio: false})

	commands.NewAudioExtractor("audio-extractor", media.NewFFmpegExtractor(cloud.NewConfig().Media, runner)).Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(commands.ParamAudioPath))
	assert.Empty(t, runner.Calls())
}

func TestAudioExtractorRegistersTempFile(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip.mp4")
	ctx := newContext()
	ctx.Add(commands.ParamVideoPath, clip)
	ctx.Add(commands.ParamVideoInfo, &model.VideoInfo{Duration: 2, HasAudio: true})

	commands.NewAudioExtractor("audio-extractor", media.NewFFmpegExtractor(cloud.NewConfig().Media, &test.FakeRunner{})).Execute(ctx)

	require.False(t, ctx.HasErrors())
	audio := ctx.Get(commands.ParamAudioPath).(string)
	assert.Equal(t, []string{audio}, ctx.GetTempFiles())
	ctx.Close()
	_, err := os.Stat(audio)
	assert.True(t, os.IsNotExist(err))
}

func TestAudioExtractorFailureIsNonFatal(t *testing.T) {
	ctx := newContext()
	ctx.Add(commands.ParamVideoPath, filepath.Join(t.TempDir(), "clip.mp4"))
	ctx.Add(commands.ParamVideoInfo, &model.VideoInfo{HasAudio: true})
	runner := &test.FakeRunner{AudioErr: errors.New("corrupt")}

	commands.NewAudioExtractor("audio-extractor", media.NewFFmpegExtractor(cloud.NewConfig().Media, runner)).Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(commands.ParamAudioPath))
	assert.Empty(t, ctx.GetTempFiles())
}

type recordingWriter struct {
	sessions map[string]*model.Session
	err      error
}

func (r *recordingWriter) Put(id string, session *model.Session) error {
	if r.err != nil {
		return r.err
	}
	r.sessions[id] = session
	return nil
}

func TestSessionCommitter(t *testing.T) {
	writer := &recordingWriter{sessions: map[string]*model.Session{}}
	ctx := newContext()
	ctx.Add(commands.ParamSessionID, "abc")
	ctx.Add(commands.ParamFilename, "clip.mp4")
	ctx.Add(commands.ParamVideoPath, "/tmp/abc/clip.mp4")
	ctx.Add(commands.ParamVideoInfo, &model.VideoInfo{Duration: 5})
	ctx.Add(commands.ParamTranscript, &model.Transcript{Text: "hi", Segments: []model.TranscriptSegment{{End: 1, Text: "hi"}}})
	ctx.Add(commands.ParamFrames, framesOf(5))

	commands.NewSessionCommitter("session-committer", writer).Execute(ctx)

	require.False(t, ctx.HasErrors())
	session := writer.sessions["abc"]
	require.NotNil(t, session)
	assert.Same(t, session, ctx.Get(commands.ParamSession))
	assert.Equal(t, "clip.mp4", session.Filename)
	assert.Equal(t, "hi", session.Transcript)
	assert.Len(t, session.Segments, 1)
	assert.Len(t, session.Frames, 5)
	assert.False(t, session.CreatedAt.IsZero())

	writer.err = model.NewInternalError("store", errors.New("closed"))
	ctx.Remove(commands.ParamSession)
	commands.NewSessionCommitter("session-committer", writer).Execute(ctx)
	assert.True(t, model.IsKind(ctx.Err(), model.KindInternal))
}
