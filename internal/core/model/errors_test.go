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

package model_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind model.ErrorKind
		name string
	}{
		{model.NewValidationError("op", "bad %s", "input"), model.KindValidation, "validation"},
		{model.NewNotFoundError("op", "Session not found"), model.KindNotFound, "not_found"},
		{model.NewMediaReadError("op", io.ErrUnexpectedEOF), model.KindMediaRead, "media_read"},
		{model.NewModelError("op", errors.New("quota")), model.KindModel, "model"},
		{model.NewInternalError("op", errors.New("disk")), model.KindInternal, "internal"},
		{errors.New("plain"), model.KindInternal, "internal"},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, model.KindOf(c.err))
		assert.Equal(t, c.name, model.KindOf(c.err).String())
	}
}

func TestErrorWrapping(t *testing.T) {
	err := model.NewMediaReadError("video-info", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("chain: %w", err)

	assert.True(t, errors.Is(wrapped, io.ErrUnexpectedEOF))
	assert.True(t, model.IsKind(wrapped, model.KindMediaRead))
	assert.False(t, model.IsKind(nil, model.KindInternal))
	assert.Equal(t, "video-info: unexpected EOF", err.Error())
	assert.Equal(t, "unexpected EOF", model.Cause(wrapped))
	assert.Equal(t, "", model.Cause(nil))
	assert.Equal(t, "plain", model.Cause(errors.New("plain")))
}

func TestSessionMidpoint(t *testing.T) {
	s := &model.Session{VideoInfo: &model.VideoInfo{Duration: 5}}
	assert.Equal(t, -1, s.MidpointIndex())
	assert.Equal(t, 2.5, s.MidpointTimestamp())

	for n, want := range map[int]int{1: 0, 2: 1, 4: 2, 5: 2, 6: 3} {
		s.Frames = make([]*model.Frame, n)
		assert.Equal(t, want, s.MidpointIndex(), "frames=%d", n)
	}

	assert.Equal(t, 0.0, (&model.Session{}).MidpointTimestamp())
}
