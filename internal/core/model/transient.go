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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains struct definitions for data models that
// only live for the duration of a single request. They carry inputs into a
// workflow and intermediate values between commands, and are never stored.
package model

import "io"

// Upload is a video file received by the request surface, before anything
// has been written to disk.
type Upload struct {
	Filename    string    // The client supplied file name.
	ContentType string    // The declared media type, e.g. "video/mp4".
	Size        int64     // The declared size in bytes, or -1 when unknown.
	Body        io.Reader // The file content.
}

// Question is a free-text question about a previously uploaded clip.
type Question struct {
	SessionID string `json:"session_id"`
	Text      string `json:"question"`
}

// AnswerRequest is the input handed to an answer engine. Prompt is the fully
// composed text block; Question and Transcript are provided for engines that
// build their own message layout.
type AnswerRequest struct {
	Question   string
	Transcript string
	Prompt     string
	Image      *Frame
}
