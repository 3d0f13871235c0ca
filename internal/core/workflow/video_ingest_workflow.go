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

// Package workflow defines the high-level business processes of the service,
// each built as a Chain of Responsibility (COR) of commands.
//
// This file defines the VideoIngestWorkflow, which runs the upload state
// machine: Received, Validated, Stored-on-disk, Info-extracted,
// Audio-extracted, Transcribed, Frames-sampled and Session-committed.
//
// Logic Flow:
//  1. `upload-validator` checks the declared content type and file name.
//     Without a transcription engine, `transcriber-guard` then stops the
//     chain with a model error before anything is written.
//  2. `upload-writer` assigns the session id and stores the clip on disk.
//  3. `video-info` probes the clip with ffprobe.
//  4. `audio-extractor` decodes the audio track into a temporary WAV file.
//  5. `transcriber` produces the transcript. Its failures are not fatal.
//  6. `clip-archiver` copies the clip to GCS when a bucket is configured.
//  7. `frame-sampler` extracts the evenly spaced frames.
//  8. `session-committer` stores the finished session.
//
// The chain stops at the first recorded error. The session directory is
// then removed, and the temporary audio file is always removed.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
)

// VideoIngestWorkflow turns an uploaded clip into a committed session.
type VideoIngestWorkflow struct {
	cor.BaseCommand
	config      *cloud.Config
	extractor   media.Extractor
	transcriber services.Transcriber
	store       commands.SessionWriter
	archiver    cloud.ClipArchiver // Optional; nil disables archiving.
	chain       cor.Chain          // The underlying chain of commands to be executed.
}

// Execute runs the chain against a context that already holds the upload
// under commands.ParamUpload.
func (w *VideoIngestWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Commands returns the names of the chained commands in execution order.
func (w *VideoIngestWorkflow) Commands() []string {
	if c, ok := w.chain.(*cor.BaseChain); ok {
		return c.Commands()
	}
	return nil
}

func (w *VideoIngestWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewUploadValidator("upload-validator"))

	if w.transcriber == nil {
		out.AddCommand(commands.NewEngineGuard("transcriber-guard", "transcription"))
	}

	out.AddCommand(commands.NewUploadWriter("upload-writer", w.config.Storage.UploadDir, w.config.Storage.MaxUploadBytes))

	out.AddCommand(commands.NewVideoInfo("video-info", w.extractor))

	out.AddCommand(commands.NewAudioExtractor("audio-extractor", w.extractor))

	out.AddCommand(commands.NewTranscriber("transcriber", w.transcriber))

	if w.archiver != nil && w.config.Storage.ArchiveBucket != "" {
		out.AddCommand(commands.NewClipArchiver("clip-archiver", w.archiver, w.config.Storage.ArchiveBucket))
	}

	out.AddCommand(commands.NewFrameSampler("frame-sampler", w.extractor, w.config.Application.FrameCount))

	out.AddCommand(commands.NewSessionCommitter("session-committer", w.store))

	w.chain = out
}

// Ingest runs the upload state machine for a single clip.
//
// Inputs:
//   - ctx: The request context, carrying cancellation and trace data.
//   - upload: The received file.
//
// Outputs:
//   - *model.Session: The committed session.
//   - error: A *model.Error describing the first failure.
func (w *VideoIngestWorkflow) Ingest(ctx context.Context, upload *model.Upload) (*model.Session, error) {
	if upload == nil {
		return nil, model.NewValidationError(w.GetName(), "File is required")
	}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()
	chCtx.Add(commands.ParamUpload, upload)

	w.Execute(chCtx)

	if err := chCtx.Err(); err != nil {
		if dir, ok := chCtx.Get(commands.ParamSessionDir).(string); ok {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				slog.WarnContext(ctx, "failed to remove session directory", "dir", dir, "error", rmErr)
			}
		}
		return nil, err
	}
	session, ok := chCtx.Get(commands.ParamSession).(*model.Session)
	if !ok {
		return nil, model.NewInternalError(w.GetName(), errors.New("workflow completed without a session"))
	}
	return session, nil
}

// NewVideoIngestWorkflow builds the upload workflow.
//
// Inputs:
//   - config: The application configuration.
//   - extractor: The media extractor, normally a *media.FFmpegExtractor.
//   - transcriber: The transcription engine; nil makes every upload fail
//     with a model error.
//   - store: The session store.
//   - archiver: Optional clip archiver.
//
// Outputs:
//   - *VideoIngestWorkflow: The ready-to-use workflow.
func NewVideoIngestWorkflow(
	config *cloud.Config,
	extractor media.Extractor,
	transcriber services.Transcriber,
	store commands.SessionWriter,
	archiver cloud.ClipArchiver) *VideoIngestWorkflow {

	out := &VideoIngestWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-ingest-workflow"),
		config:      config,
		extractor:   extractor,
		transcriber: transcriber,
		store:       store,
		archiver:    archiver,
	}
	out.initializeChain()
	return out
}
