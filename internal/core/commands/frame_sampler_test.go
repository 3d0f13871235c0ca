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
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-qa/internal/testutil"
)

func probeCount(runner *test.FakeRunner) int {
	n := 0
	for _, call := range runner.Calls() {
		if call[0] == "ffprobe" {
			n++
		}
	}
	return n
}

func TestFrameSamplerReusesVideoInfo(t *testing.T) {
	runner := &test.FakeRunner{Frame: test.TinyJPEG(color.White)}
	ctx := newContext()
	ctx.Add(commands.ParamVideoPath, filepath.Join(t.TempDir(), "clip.mp4"))
	ctx.Add(commands.ParamVideoInfo, &model.VideoInfo{Duration: 4, FrameCount: 120})

	commands.NewFrameSampler("frame-sampler", media.NewFFmpegExtractor(cloud.NewConfig().Media, runner), 4).Execute(ctx)

	require.False(t, ctx.HasErrors())
	frames := ctx.Get(commands.ParamFrames).([]*model.Frame)
	assert.Len(t, frames, 4)
	assert.Equal(t, []float64{0, 1, 2, 3}, runner.FrameOffsets())
	assert.Equal(t, 0, probeCount(runner))
}

func TestFrameSamplerProbesWithoutVideoInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("clip"), 0o644))
	runner := &test.FakeRunner{Probe: test.ProbeJSON(10, 300, false), Frame: test.TinyJPEG(color.White)}
	ctx := newContext()
	ctx.Add(commands.ParamVideoPath, path)

	commands.NewFrameSampler("frame-sampler", media.NewFFmpegExtractor(cloud.NewConfig().Media, runner), 5).Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Len(t, ctx.Get(commands.ParamFrames).([]*model.Frame), 5)
	assert.Equal(t, 1, probeCount(runner))
}

func TestEngineGuard(t *testing.T) {
	ctx := newContext()

	commands.NewEngineGuard("transcriber-guard", "transcription").Execute(ctx)

	err := ctx.Err()
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindModel))
	assert.Equal(t, "transcription engine is not loaded", model.Cause(err))
}
