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

// Package services contains the stateful services and model adapters used by
// the workflows. This file, `transcription.go`, adapts OpenAI's Whisper API to
// the Transcriber contract: an audio file path in, transcript text out.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*model.Transcript, error)
}

// AudioTranscriptionClient is the subset of *openai.Client used here.
type AudioTranscriptionClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// WhisperTranscriber calls the OpenAI transcription endpoint.
type WhisperTranscriber struct {
	Client         AudioTranscriptionClient
	Model          string
	Language       string
	WordTimestamps bool // When true, Transcribe also returns segments and words.
	Limiter        *rate.Limiter
}

// NewWhisperTranscriber creates a transcriber from its configuration.
func NewWhisperTranscriber(client AudioTranscriptionClient, values cloud.TranscriptionModel) *WhisperTranscriber {
	name := values.Model
	if name == "" {
		name = openai.Whisper1
	}
	return &WhisperTranscriber{
		Client:         client,
		Model:          name,
		Language:       values.Language,
		WordTimestamps: values.WordTimestamps,
		Limiter:        cloud.NewRateLimiter(values.RateLimit),
	}
}

// Transcribe returns the transcript of audioPath. Failures are returned as
// model errors; the caller decides whether they are fatal.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*model.Transcript, error) {
	if w.WordTimestamps {
		return w.TranscribeWithTimestamps(ctx, audioPath)
	}
	resp, err := w.call(ctx, openai.AudioRequest{
		Model:    w.Model,
		FilePath: audioPath,
		Language: w.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, err
	}
	return &model.Transcript{Text: strings.TrimSpace(resp.Text), Language: resp.Language}, nil
}

// TranscribeWithTimestamps returns the transcript together with segment and
// word timings.
func (w *WhisperTranscriber) TranscribeWithTimestamps(ctx context.Context, audioPath string) (*model.Transcript, error) {
	resp, err := w.call(ctx, openai.AudioRequest{
		Model:    w.Model,
		FilePath: audioPath,
		Language: w.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, err
	}
	out := &model.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Segments: make([]model.TranscriptSegment, 0, len(resp.Segments)),
		Words:    make([]model.TranscriptWord, 0, len(resp.Words)),
	}
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, model.TranscriptSegment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	for _, word := range resp.Words {
		out.Words = append(out.Words, model.TranscriptWord{Word: word.Word, Start: word.Start, End: word.End})
	}
	return out, nil
}

func (w *WhisperTranscriber) call(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error) {
	if w.Client == nil {
		return openai.AudioResponse{}, model.NewModelError("transcribe", errors.New("transcription client is not initialized"))
	}
	if w.Limiter != nil {
		if err := w.Limiter.Wait(ctx); err != nil {
			return openai.AudioResponse{}, model.NewModelError("transcribe", err)
		}
	}
	resp, err := w.Client.CreateTranscription(ctx, request)
	if err != nil {
		return openai.AudioResponse{}, model.NewModelError("transcribe", err)
	}
	return resp, nil
}
