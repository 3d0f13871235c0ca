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
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-qa/internal/testutil"
)

// mp4Header is the start of an ISO base media file.
var mp4Header = append([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0}, bytes.Repeat([]byte{0}, 64)...)

func newContext() cor.Context {
	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	return c
}

func TestSafeFilename(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":                  "clip.mp4",
		"  clip.mp4 ":               "clip.mp4",
		"../../etc/passwd":          "passwd",
		`C:\Users\someone\clip.mov`: "clip.mov",
		"/abs/path/to/clip.webm":    "clip.webm",
		"":                          "",
		"..":                        "",
		"/":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, commands.SafeFilename(in), in)
	}
}

func TestIsVideoContentType(t *testing.T) {
	assert.True(t, commands.IsVideoContentType("video/mp4"))
	assert.True(t, commands.IsVideoContentType("Video/QuickTime"))
	assert.True(t, commands.IsVideoContentType(`video/mp4; codecs="avc1.42E01E"`))
	assert.False(t, commands.IsVideoContentType("image/jpeg"))
	assert.False(t, commands.IsVideoContentType("application/octet-stream"))
	assert.False(t, commands.IsVideoContentType(""))
}

func TestUploadValidator(t *testing.T) {
	cases := map[string]struct {
		upload *model.Upload
		want   string
	}{
		"not a video": {upload: &model.Upload{Filename: "a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x")}, want: "File must be a video"},
		"no filename": {upload: &model.Upload{Filename: "..", ContentType: "video/mp4", Body: strings.NewReader("x")}, want: "File name is required"},
		"no body":     {upload: &model.Upload{Filename: "a.mp4", ContentType: "video/mp4"}, want: "File content is required"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := newContext()
			ctx.Add(commands.ParamUpload, tc.upload)

			commands.NewUploadValidator("upload-validator").Execute(ctx)

			require.True(t, ctx.HasErrors())
			assert.True(t, model.IsKind(ctx.Err(), model.KindValidation))
			assert.Equal(t, tc.want, model.Cause(ctx.Err()))
		})
	}

	ctx := newContext()
	ctx.Add(commands.ParamUpload, &model.Upload{Filename: "dir/clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("x")})
	commands.NewUploadValidator("upload-validator").Execute(ctx)
	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "clip.mp4", ctx.Get(commands.ParamFilename))
}

func runWriter(t *testing.T, dir string, maxBytes int64, body []byte) cor.Context {
	t.Helper()
	ctx := newContext()
	ctx.Add(commands.ParamUpload, &model.Upload{Filename: "clip.mp4", ContentType: "video/mp4", Body: bytes.NewReader(body)})
	ctx.Add(commands.ParamFilename, "clip.mp4")
	commands.NewUploadWriter("upload-writer", dir, maxBytes).Execute(ctx)
	return ctx
}

func TestUploadWriterStoresClip(t *testing.T) {
	dir := t.TempDir()

	ctx := runWriter(t, dir, 1024, mp4Header)

	require.False(t, ctx.HasErrors(), "%v", ctx.Err())
	sessionID := ctx.Get(commands.ParamSessionID).(string)
	assert.Len(t, sessionID, 36)
	assert.Equal(t, filepath.Join(dir, sessionID), ctx.Get(commands.ParamSessionDir))
	path := ctx.Get(commands.ParamVideoPath).(string)
	assert.Equal(t, filepath.Join(dir, sessionID, "clip.mp4"), path)
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mp4Header, stored)
}

func TestUploadWriterUniqueSessions(t *testing.T) {
	dir := t.TempDir()
	first := runWriter(t, dir, 0, mp4Header)
	second := runWriter(t, dir, 0, mp4Header)
	assert.NotEqual(t, first.Get(commands.ParamSessionID), second.Get(commands.ParamSessionID))
}

func TestUploadWriterRejects(t *testing.T) {
	cases := map[string]struct {
		maxBytes int64
		body     []byte
		want     string
	}{
		"too large": {maxBytes: 10, body: bytes.Repeat([]byte{1}, 11), want: "File exceeds the maximum upload size of 10 bytes"},
		"empty":     {maxBytes: 10, body: nil, want: "File is empty"},
		"image":     {maxBytes: 0, body: test.TinyJPEG(color.White), want: "File content is image/jpeg, not a video"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			ctx := runWriter(t, dir, tc.maxBytes, tc.body)

			require.True(t, ctx.HasErrors())
			assert.True(t, model.IsKind(ctx.Err(), model.KindValidation))
			assert.Equal(t, tc.want, model.Cause(ctx.Err()))
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "session directory must be removed")
		})
	}
}

func TestUploadWriterAcceptsLimit(t *testing.T) {
	ctx := runWriter(t, t.TempDir(), 10, bytes.Repeat([]byte{1}, 10))
	assert.False(t, ctx.HasErrors())
}
