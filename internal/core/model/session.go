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
// This file contains the Session, which bundles every artifact derived from
// one uploaded clip, together with the media metadata and transcript types
// it is built from. A Session is assembled in full by the ingest workflow
// and is never modified after it has been committed to the session store.
package model

import "time"

// VideoInfo holds container and stream level metadata reported by ffprobe.
type VideoInfo struct {
	Duration        float64 `json:"duration"`                    // Clip length in seconds.
	FormatName      string  `json:"format_name,omitempty"`       // Container format, e.g. "mov,mp4,m4a,3gp,3g2,mj2".
	Size            int64   `json:"size,omitempty"`              // File size in bytes.
	Bitrate         int64   `json:"bitrate,omitempty"`           // Overall bitrate in bits per second.
	Width           int     `json:"width,omitempty"`             // Width of the first video stream in pixels.
	Height          int     `json:"height,omitempty"`            // Height of the first video stream in pixels.
	VideoCodec      string  `json:"video_codec,omitempty"`       // Codec of the first video stream.
	FrameRate       float64 `json:"frame_rate,omitempty"`        // Average frames per second.
	FrameCount      int     `json:"frame_count,omitempty"`       // Number of frames when the container reports it.
	HasAudio        bool    `json:"has_audio"`                   // True when the clip has at least one audio stream.
	AudioCodec      string  `json:"audio_codec,omitempty"`       // Codec of the first audio stream.
	AudioSampleRate int     `json:"audio_sample_rate,omitempty"` // Sample rate of the first audio stream.
	AudioChannels   int     `json:"audio_channels,omitempty"`    // Channel count of the first audio stream.
}

// Frame is a single still image sampled from a clip.
type Frame struct {
	Index     int     `json:"index"`     // Position of the frame within its sampled sequence.
	Timestamp float64 `json:"timestamp"` // Offset into the clip in seconds.
	MIMEType  string  `json:"mime_type"` // Image encoding, normally "image/jpeg".
	Data      []byte  `json:"-"`         // Encoded image bytes.
}

// TranscriptSegment is a time-aligned span of recognised speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptWord is a single recognised word with its timing.
type TranscriptWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the output of a transcription engine. Only Text is required;
// Segments and Words are filled when timestamps were requested.
type Transcript struct {
	Text     string              `json:"text"`
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
	Words    []TranscriptWord    `json:"words,omitempty"`
}

// Session represents the derived state of one uploaded clip.
type Session struct {
	ID         string              `json:"session_id"`
	Filename   string              `json:"filename"`
	VideoPath  string              `json:"video_path"`
	VideoInfo  *VideoInfo          `json:"video_info"`
	Transcript string              `json:"transcript"`
	Segments   []TranscriptSegment `json:"segments,omitempty"`
	Frames     []*Frame            `json:"-"`
	CreatedAt  time.Time           `json:"created_at"`
}

// MidpointIndex returns the index of the representative frame, the temporal
// midpoint of the sampled sequence. It returns -1 when there are no frames.
func (s *Session) MidpointIndex() int {
	if len(s.Frames) == 0 {
		return -1
	}
	return len(s.Frames) / 2
}

// MidpointTimestamp returns the offset in seconds at the middle of the clip.
func (s *Session) MidpointTimestamp() float64 {
	if s.VideoInfo == nil {
		return 0
	}
	return s.VideoInfo.Duration / 2
}
