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
// command that probes the stored clip with ffprobe.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
)

// VideoInfo reads container and stream metadata. A clip that cannot be
// probed, or that has no video stream, fails the chain with a media read
// error.
type VideoInfo struct {
	cor.BaseCommand
	extractor media.Extractor
}

// NewVideoInfo is the constructor for the VideoInfo command.
func NewVideoInfo(name string, extractor media.Extractor) *VideoInfo {
	out := &VideoInfo{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor}
	out.InputParamName = ParamVideoPath
	out.OutputParamName = ParamVideoInfo
	return out
}

// Execute probes the clip.
func (c *VideoInfo) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	info, err := c.extractor.GetVideoInfo(context.GetContext(), path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	slog.InfoContext(context.GetContext(), "probed video",
		"path", path, "duration", info.Duration, "width", info.Width, "height", info.Height, "has_audio", info.HasAudio)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), info)
}
