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
// Responsibility (COR) pattern's Command interface. Each command performs one
// transition of the upload or question state machine and communicates with
// the others only through the shared cor.Context.
//
// This file declares the canonical context keys. Commands read their primary
// input from the key returned by GetInputParam and write their primary output
// to GetOutputParam. The workflows set both to one of the keys below so every
// intermediate value stays addressable by name for the whole run.
package commands

const (
	ParamUpload     = "__UPLOAD__"      // *model.Upload, placed by the ingest workflow.
	ParamFilename   = "__FILENAME__"    // string, the sanitized base name of the upload.
	ParamSessionID  = "__SESSION_ID__"  // string, generated by the upload writer.
	ParamSessionDir = "__SESSION_DIR__" // string, the directory holding the stored clip.
	ParamVideoPath  = "__VIDEO_PATH__"  // string, the stored clip.
	ParamVideoInfo  = "__VIDEO_INFO__"  // *model.VideoInfo
	ParamAudioPath  = "__AUDIO_PATH__"  // string, the extracted WAV file.
	ParamTranscript = "__TRANSCRIPT__"  // *model.Transcript
	ParamFrames     = "__FRAMES__"      // []*model.Frame
	ParamArchive    = "__ARCHIVE__"     // *cloud.GCSObject, set when the clip was archived.
	ParamSession    = "__SESSION__"     // *model.Session

	ParamQuestion  = "__QUESTION__"   // *model.Question
	ParamFrame     = "__FRAME__"      // *model.Frame, the representative frame.
	ParamPrompt    = "__PROMPT__"     // string, the composed prompt.
	ParamRawAnswer = "__RAW_ANSWER__" // string, the unprocessed model output.
	ParamAnswer    = "__ANSWER__"     // string, the cleaned answer.
)
