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
// command that moves an accepted upload onto the local disk.
//
// Logic Flow:
//  1. Generate a new session identifier (uuid v4). Identifiers are never
//     reused, so every upload gets a directory of its own.
//  2. Create `<upload_dir>/<session_id>/` and stream the body into
//     `<upload_dir>/<session_id>/<filename>`, stopping one byte past the
//     configured limit so oversized uploads are detected without reading
//     them in full.
//  3. Sniff the stored bytes with `filetype`. Content that is recognised as
//     something other than a video (an image, an archive, a document) is
//     rejected even when the declared content type claimed otherwise.
//  4. Publish the session id, the directory, and the clip path.
//
// On any failure the session directory is removed before returning.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// sniffLength is the number of leading bytes filetype needs to match.
const sniffLength = 262

// UploadWriter stores the upload body under the session directory.
type UploadWriter struct {
	cor.BaseCommand
	uploadDir string // Root of the per-session directory tree.
	maxBytes  int64  // Upper bound on the stored size; zero disables it.
}

// NewUploadWriter is the constructor for the UploadWriter command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - uploadDir: The root directory for stored clips.
//   - maxBytes: The largest accepted upload in bytes, or 0 for no limit.
//
// Outputs:
//   - *UploadWriter: A pointer to the newly instantiated command.
func NewUploadWriter(name string, uploadDir string, maxBytes int64) *UploadWriter {
	out := &UploadWriter{BaseCommand: *cor.NewBaseCommand(name), uploadDir: uploadDir, maxBytes: maxBytes}
	out.InputParamName = ParamFilename
	out.OutputParamName = ParamVideoPath
	return out
}

// IsExecutable requires both the sanitized filename and the upload itself.
func (w *UploadWriter) IsExecutable(context cor.Context) bool {
	return w.BaseCommand.IsExecutable(context) && context.Get(ParamUpload) != nil
}

// Execute writes the upload to disk.
func (w *UploadWriter) Execute(context cor.Context) {
	filename := context.Get(w.GetInputParam()).(string)
	upload := context.Get(ParamUpload).(*model.Upload)

	sessionID := uuid.New().String()
	dir := filepath.Join(w.uploadDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(w.GetName(), model.NewInternalError(w.GetName(), fmt.Errorf("failed to create session directory: %w", err)))
		return
	}
	path := filepath.Join(dir, filename)

	if err := w.write(path, upload.Body); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.WarnContext(context.GetContext(), "failed to remove session directory", "dir", dir, "error", rmErr)
		}
		w.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(w.GetName(), err)
		return
	}

	slog.InfoContext(context.GetContext(), "stored upload", "session_id", sessionID, "path", path)
	w.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(ParamSessionID, sessionID)
	context.Add(ParamSessionDir, dir)
	context.Add(w.GetOutputParam(), path)
}

func (w *UploadWriter) write(path string, body io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return model.NewInternalError(w.GetName(), fmt.Errorf("could not create %s: %w", path, err))
	}

	reader := body
	if w.maxBytes > 0 {
		reader = io.LimitReader(body, w.maxBytes+1)
	}
	written, err := io.Copy(file, reader)
	closeErr := file.Close()
	if err != nil {
		return model.NewInternalError(w.GetName(), fmt.Errorf("failed to store upload after %d bytes: %w", written, err))
	}
	if closeErr != nil {
		return model.NewInternalError(w.GetName(), closeErr)
	}
	if w.maxBytes > 0 && written > w.maxBytes {
		return model.NewValidationError(w.GetName(), "File exceeds the maximum upload size of %d bytes", w.maxBytes)
	}
	if written == 0 {
		return model.NewValidationError(w.GetName(), "File is empty")
	}
	return checkVideoContent(w.GetName(), path)
}

// checkVideoContent rejects files whose leading bytes identify a known
// non-video type. Unrecognised content is left for ffprobe to judge.
func checkVideoContent(op string, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return model.NewInternalError(op, err)
	}
	defer file.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return model.NewInternalError(op, err)
	}
	head = head[:n]

	kind, _ := filetype.Match(head)
	if kind == filetype.Unknown || filetype.IsVideo(head) {
		return nil
	}
	return model.NewValidationError(op, "File content is %s, not a video", kind.MIME.Value)
}
