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
// command that copies a stored clip to Google Cloud Storage.
//
// Logic Flow:
// The archiver is only added to the upload chain when an archive bucket is
// configured. It streams the local clip to `gs://<bucket>/<session_id>/<filename>`.
// The local copy stays the source of truth for the session, so a failed
// copy is logged and counted but does not abort the upload.
package commands

import (
	"log/slog"
	"mime"
	"path"
	"path/filepath"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// ClipArchiver copies the clip to the archive bucket.
type ClipArchiver struct {
	cor.BaseCommand
	archiver cloud.ClipArchiver
	bucket   string
}

// NewClipArchiver is the constructor for the ClipArchiver command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - archiver: The storage backend, normally a *cloud.GCSArchiver.
//   - bucket: The destination bucket.
//
// Outputs:
//   - *ClipArchiver: A pointer to the newly instantiated command.
func NewClipArchiver(name string, archiver cloud.ClipArchiver, bucket string) *ClipArchiver {
	out := &ClipArchiver{BaseCommand: *cor.NewBaseCommand(name), archiver: archiver, bucket: bucket}
	out.InputParamName = ParamVideoPath
	out.OutputParamName = ParamArchive
	return out
}

// IsExecutable requires the session id used as the object prefix.
func (c *ClipArchiver) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && context.Get(ParamSessionID) != nil
}

// ObjectName returns the archive object name for a clip.
func ObjectName(sessionID string, localPath string) string {
	return path.Join(sessionID, filepath.Base(localPath))
}

// Execute uploads the clip.
func (c *ClipArchiver) Execute(context cor.Context) {
	localPath := context.Get(c.GetInputParam()).(string)
	sessionID := context.Get(ParamSessionID).(string)

	obj := &cloud.GCSObject{
		Bucket:   c.bucket,
		Name:     ObjectName(sessionID, localPath),
		MIMEType: mime.TypeByExtension(filepath.Ext(localPath)),
	}
	if upload, ok := context.Get(ParamUpload).(*model.Upload); ok && upload.ContentType != "" {
		obj.MIMEType = upload.ContentType
	}

	if err := c.archiver.Archive(context.GetContext(), localPath, obj); err != nil {
		slog.WarnContext(context.GetContext(), "failed to archive clip", "uri", obj.URI(), "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	slog.InfoContext(context.GetContext(), "archived clip", "uri", obj.URI())
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), obj)
}
