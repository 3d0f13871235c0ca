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
// command that picks the representative frame for a question.
//
// Logic Flow:
//  1. Use the sampled frame at index floor(len/2), the temporal midpoint of
//     the sequence. For five frames this is index 2.
//  2. When the session has no sampled frames, decode one frame directly from
//     the stored clip at duration/2.
//  3. When that also fails, use a blank white placeholder image so the
//     question can still be answered from the transcript alone.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// FrameSelector publishes the representative frame of the session.
type FrameSelector struct {
	cor.BaseCommand
	extractor media.Extractor
}

// NewFrameSelector is the constructor for the FrameSelector command. The
// extractor is only used by the fallback path.
func NewFrameSelector(name string, extractor media.Extractor) *FrameSelector {
	out := &FrameSelector{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor}
	out.InputParamName = ParamSession
	out.OutputParamName = ParamFrame
	return out
}

// Execute selects the frame.
func (f *FrameSelector) Execute(context cor.Context) {
	session := context.Get(f.GetInputParam()).(*model.Session)

	if idx := session.MidpointIndex(); idx >= 0 {
		f.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(f.GetOutputParam(), session.Frames[idx])
		return
	}

	offset := session.MidpointTimestamp()
	if f.extractor != nil {
		frame, err := f.extractor.ExtractFrameAt(context.GetContext(), session.VideoPath, offset)
		if err == nil {
			f.GetSuccessCounter().Add(context.GetContext(), 1)
			context.Add(f.GetOutputParam(), frame)
			return
		}
		slog.WarnContext(context.GetContext(), "midpoint frame extraction failed, using placeholder",
			"session_id", session.ID, "offset", offset, "error", err)
	}

	frame, err := media.PlaceholderFrame(offset)
	if err != nil {
		f.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(f.GetName(), model.NewInternalError(f.GetName(), err))
		return
	}
	f.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(f.GetOutputParam(), frame)
}
