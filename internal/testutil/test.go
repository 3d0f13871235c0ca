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

// Package test provides shared fixtures for the package tests: a test
// configuration, a scripted ffmpeg/ffprobe runner, and fake model engines.
// Nothing in here needs ffmpeg, network access or cloud credentials.
package test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS points the configuration loader at the test runtime.
func SetupOS(t *testing.T, configDir string) {
	t.Setenv(cloud.EnvConfigFilePrefix, configDir)
	t.Setenv(cloud.EnvConfigRuntime, "test")
}

// NewTestConfig returns a valid configuration whose upload directory is a
// fresh temporary directory.
func NewTestConfig(t *testing.T) *cloud.Config {
	t.Helper()
	config := cloud.NewConfig()
	config.Application.Name = "video-qa-test"
	config.Application.GoogleProjectId = "test-project"
	config.Storage.UploadDir = t.TempDir()
	config.AnswerModels["vision"] = cloud.AnswerModel{
		Provider:    cloud.ProviderGemini,
		Backend:     cloud.BackendVertexAI,
		Model:       "gemini-2.0-flash",
		Temperature: 0.2,
		MaxTokens:   512,
		RateLimit:   10,
	}
	config.TranscriptionModels["whisper"] = cloud.TranscriptionModel{
		Provider:  cloud.ProviderOpenAI,
		Model:     "whisper-1",
		RateLimit: 10,
	}
	return config
}

// TinyJPEG returns a valid 8x8 JPEG filled with c.
func TinyJPEG(c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ProbeJSON renders an ffprobe report for a clip of the given duration.
func ProbeJSON(duration float64, frameCount int, hasAudio bool) string {
	streams := []string{fmt.Sprintf(`{
      "codec_type": "video", "codec_name": "h264", "width": 640, "height": 360,
      "avg_frame_rate": "30/1", "r_frame_rate": "30/1", "nb_frames": "%d", "duration": "%.3f"
    }`, frameCount, duration)}
	if hasAudio {
		streams = append(streams, `{
      "codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2
    }`)
	}
	return fmt.Sprintf(`{
  "streams": [%s],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "%.6f", "size": "1048576", "bit_rate": "800000"}
}`, strings.Join(streams, ","), duration)
}

// FakeRunner scripts ffprobe and ffmpeg. ffprobe returns Probe; an ffmpeg
// run with "-vn" writes a small WAV file to its last argument; any other
// ffmpeg run returns Frame unless its "-ss" offset is listed in FailOffsets.
type FakeRunner struct {
	Probe       string
	ProbeErr    error
	AudioErr    error
	Frame       []byte
	FailOffsets []string // Offsets formatted like "-ss", e.g. "2.000".
	FailAll     bool

	mu    sync.Mutex
	calls [][]string
}

// Run implements media.CommandRunner.
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if strings.Contains(name, "ffprobe") {
		if f.ProbeErr != nil {
			return nil, f.ProbeErr
		}
		return []byte(f.Probe), nil
	}
	if slices.Contains(args, "-vn") {
		if f.AudioErr != nil {
			return nil, f.AudioErr
		}
		out := args[len(args)-1]
		return nil, os.WriteFile(out, []byte("RIFF\x24\x00\x00\x00WAVEfmt "), 0o644)
	}
	offset := ""
	if i := slices.Index(args, "-ss"); i >= 0 && i+1 < len(args) {
		offset = args[i+1]
	}
	if f.FailAll || slices.Contains(f.FailOffsets, offset) {
		return nil, fmt.Errorf("decode failed at %s", offset)
	}
	return f.Frame, nil
}

// Calls returns every recorded invocation, program name first.
func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// FrameOffsets returns the "-ss" values of every frame extraction, in order.
func (f *FakeRunner) FrameOffsets() []float64 {
	out := make([]float64, 0)
	for _, call := range f.Calls() {
		if i := slices.Index(call, "-ss"); i >= 0 && i+1 < len(call) {
			v, _ := strconv.ParseFloat(call[i+1], 64)
			out = append(out, v)
		}
	}
	return out
}

// FakeTranscriber returns Transcript or Err.
type FakeTranscriber struct {
	Transcript *model.Transcript
	Err        error
	Paths      []string
}

// Transcribe implements services.Transcriber.
func (f *FakeTranscriber) Transcribe(_ context.Context, audioPath string) (*model.Transcript, error) {
	f.Paths = append(f.Paths, audioPath)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Transcript, nil
}

// FakeAnswerEngine returns Reply, or Respond(request) when set, or Err.
type FakeAnswerEngine struct {
	Reply    string
	Respond  func(request *model.AnswerRequest) string
	Err      error
	Requests []*model.AnswerRequest
}

// Answer implements services.AnswerEngine.
func (f *FakeAnswerEngine) Answer(_ context.Context, request *model.AnswerRequest) (string, error) {
	f.Requests = append(f.Requests, request)
	if f.Err != nil {
		return "", f.Err
	}
	if f.Respond != nil {
		return f.Respond(request), nil
	}
	return f.Reply, nil
}
