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
// transcription step of the upload chain.
//
// Transcription never fails the upload. A missing audio file, a missing
// engine, or an engine error all produce an empty transcript; the error is
// logged and counted on the command's error counter but is not added to the
// context.
package commands

import (
	"errors"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
)

// Transcriber converts the extracted audio into a transcript.
type Transcriber struct {
	cor.BaseCommand
	transcriber services.Transcriber
}

// NewTranscriber is the constructor for the Transcriber command. A nil
// transcriber is accepted and always yields an empty transcript.
func NewTranscriber(name string, transcriber services.Transcriber) *Transcriber {
	out := &Transcriber{BaseCommand: *cor.NewBaseCommand(name), transcriber: transcriber}
	out.InputParamName = ParamAudioPath
	out.OutputParamName = ParamTranscript
	return out
}

// IsExecutable only requires a live request context; the audio path is
// optional because silent clips skip audio extraction.
func (t *Transcriber) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the transcription engine.
func (t *Transcriber) Execute(context cor.Context) {
	audioPath, _ := context.Get(t.GetInputParam()).(string)
	if audioPath == "" {
		t.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(t.GetOutputParam(), &model.Transcript{})
		return
	}

	transcript, err := t.transcribe(context, audioPath)
	if err != nil {
		slog.WarnContext(context.GetContext(), "transcription failed, continuing with an empty transcript",
			"audio_path", audioPath, "error", err)
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.Add(t.GetOutputParam(), &model.Transcript{})
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), transcript)
}

func (t *Transcriber) transcribe(context cor.Context, audioPath string) (*model.Transcript, error) {
	if t.transcriber == nil {
		return nil, model.NewModelError(t.GetName(), errors.New("transcription engine is not loaded"))
	}
	transcript, err := t.transcriber.Transcribe(context.GetContext(), audioPath)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return &model.Transcript{}, nil
	}
	return transcript, nil
}
