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
// command that decodes the clip's audio track for transcription.
//
// Logic Flow:
//   - When the probe reported no audio stream there is nothing to transcribe.
//     The command succeeds without output and the transcriber records an
//     empty transcript.
//   - Otherwise ffmpeg writes a mono WAV next to the clip. The file is
//     registered as a temporary file, so the workflow deletes it when the
//     run ends whatever the outcome.
//   - A decoding failure is logged and counted but does not abort the
//     upload; the clip is treated as silent.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// AudioExtractor produces the WAV file consumed by the Transcriber command.
type AudioExtractor struct {
	cor.BaseCommand
	extractor media.Extractor
}

// NewAudioExtractor is the constructor for the AudioExtractor command.
func NewAudioExtractor(name string, extractor media.Extractor) *AudioExtractor {
	out := &AudioExtractor{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor}
	out.InputParamName = ParamVideoPath
	out.OutputParamName = ParamAudioPath
	return out
}

// IsExecutable requires the probe result in addition to the clip path.
func (c *AudioExtractor) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && context.Get(ParamVideoInfo) != nil
}

// Execute extracts the audio track.
func (c *AudioExtractor) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	info := context.Get(ParamVideoInfo).(*model.VideoInfo)

	if !info.HasAudio {
		slog.InfoContext(context.GetContext(), "clip has no audio stream, skipping extraction", "path", path)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		return
	}

	audioPath, err := c.extractor.ExtractAudio(context.GetContext(), path)
	if err != nil {
		slog.WarnContext(context.GetContext(), "audio track could not be decoded, continuing without a transcript",
			"path", path, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	context.AddTempFile(audioPath)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), audioPath)
}
