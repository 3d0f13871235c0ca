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
// command that samples still frames from the stored clip.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// FrameSampler extracts numFrames evenly spaced frames. Undecodable frames
// are dropped by the extractor, and an empty result is a valid outcome: the
// question chain falls back to a direct midpoint extraction.
type FrameSampler struct {
	cor.BaseCommand
	extractor media.Extractor
	numFrames int
}

// NewFrameSampler is the constructor for the FrameSampler command.
func NewFrameSampler(name string, extractor media.Extractor, numFrames int) *FrameSampler {
	out := &FrameSampler{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor, numFrames: numFrames}
	out.InputParamName = ParamVideoPath
	out.OutputParamName = ParamFrames
	return out
}

// Execute samples the frames.
func (c *FrameSampler) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	frames, err := c.sample(context, path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if frames == nil {
		frames = make([]*model.Frame, 0)
	}
	if len(frames) < c.numFrames {
		slog.WarnContext(context.GetContext(), "sampled fewer frames than requested",
			"path", path, "requested", c.numFrames, "sampled", len(frames))
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), frames)
}

// sample reuses the probe result of the video-info command when the
// extractor supports it.
func (c *FrameSampler) sample(context cor.Context, path string) ([]*model.Frame, error) {
	info, _ := context.Get(ParamVideoInfo).(*model.VideoInfo)
	if probed, ok := c.extractor.(media.ProbedFrameExtractor); ok && info != nil {
		return probed.ExtractFramesWithInfo(context.GetContext(), path, info, c.numFrames)
	}
	return c.extractor.ExtractFrames(context.GetContext(), path, c.numFrames)
}
