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
// first step of the upload chain.
//
// Logic Flow:
//  1. Read the *model.Upload placed into the context by the ingest workflow.
//  2. Reject uploads whose declared content type is not a video media type.
//  3. Reduce the client supplied file name to a safe base name so it can be
//     used as a path element, and publish it for the upload writer.
package commands

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// VideoMediaTypePrefix is the prefix every accepted content type must have.
const VideoMediaTypePrefix = "video/"

// UploadValidator checks the declared properties of an upload before
// anything is written to disk.
type UploadValidator struct {
	cor.BaseCommand
}

// NewUploadValidator is the constructor for the UploadValidator command.
func NewUploadValidator(name string) *UploadValidator {
	out := &UploadValidator{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamUpload
	out.OutputParamName = ParamFilename
	return out
}

// SafeFilename returns the last path element of name with any directory
// components, including Windows style ones, removed. It returns an empty
// string when nothing usable is left.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := filepath.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}

// IsVideoContentType reports whether contentType declares a video media
// type. Parameters such as "; codecs=avc1" are ignored.
func IsVideoContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.HasPrefix(mediaType, VideoMediaTypePrefix)
}

// Execute validates the upload.
func (v *UploadValidator) Execute(context cor.Context) {
	upload := context.Get(v.GetInputParam()).(*model.Upload)

	if !IsVideoContentType(upload.ContentType) {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(v.GetName(), model.NewValidationError(v.GetName(), "File must be a video"))
		return
	}
	filename := SafeFilename(upload.Filename)
	if filename == "" {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(v.GetName(), model.NewValidationError(v.GetName(), "File name is required"))
		return
	}
	if upload.Body == nil {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(v.GetName(), model.NewValidationError(v.GetName(), "File content is required"))
		return
	}

	v.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(v.GetOutputParam(), filename)
}
