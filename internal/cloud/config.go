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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for the external services the
// video question answering server talks to.
//
// This file centralizes all configuration-related structs.
//
// Structs:
//   - Media: Paths and encoding settings for ffmpeg and ffprobe.
//   - Storage: Local upload directory and the optional GCS archive bucket.
//   - Telemetry: Exporter selection for traces and metrics.
//   - PromptTemplates: The text template used to compose answer prompts.
//   - AnswerModel: Configuration for a vision-language answer model.
//   - TranscriptionModel: Configuration for a speech-to-text model.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that returns a Config populated with defaults.
package cloud

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Model providers understood by the service.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Gemini client backends.
const (
	BackendVertexAI  = "vertex"
	BackendGeminiAPI = "gemini-api"
)

// DefaultAnswerPrompt asks the model to ground its answer in both the
// transcript and the attached frame.
const DefaultAnswerPrompt = `Video Analysis Task:

Audio Transcript: "{{ .TRANSCRIPT }}"

Question: {{ .QUESTION }}

Please provide a detailed answer based on the visual content of the attached frame and the audio transcript.`

// DefaultFallbackAnswer is returned when the cleaned model output is empty.
const DefaultFallbackAnswer = "I couldn't generate a clear answer for this question. Please try again."

// DefaultSafetySettings keeps Gemini from blocking descriptions of user clips.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
}

// Media holds the settings used when shelling out to ffmpeg and ffprobe.
type Media struct {
	FFmpegPath            string `toml:"ffmpeg_path"`             // The ffmpeg executable, looked up on PATH when not absolute.
	FFprobePath           string `toml:"ffprobe_path"`            // The ffprobe executable.
	AudioSampleRate       int    `toml:"audio_sample_rate"`       // Sample rate of the extracted WAV file.
	FrameWidth            int    `toml:"frame_width"`             // Sampled frames are scaled to this width; 0 keeps the source size.
	FrameQuality          int    `toml:"frame_quality"`           // JPEG quality passed to -q:v (2 is best, 31 is worst).
	CommandTimeoutSeconds int    `toml:"command_timeout_seconds"` // Upper bound for a single ffmpeg or ffprobe run; 0 disables it.
}

// Storage holds the locations uploaded clips are written to.
type Storage struct {
	UploadDir      string `toml:"upload_dir"`       // Root of the per-session directory tree.
	MaxUploadBytes int64  `toml:"max_upload_bytes"` // Uploads larger than this are rejected; 0 disables the limit.
	ArchiveBucket  string `toml:"archive_bucket"`   // When set, clips are also copied to this GCS bucket.
}

// Telemetry selects where traces and metrics are exported.
type Telemetry struct {
	Exporter string `toml:"exporter"` // "gcp" for Cloud Trace and Cloud Monitoring, "none" to keep telemetry in process.
	LogFile  string `toml:"log_file"` // Optional file that receives a copy of every log line.
}

// PromptTemplates holds the templates for prompts sent to answer models.
type PromptTemplates struct {
	AnswerPrompt   string `toml:"answer"`   // Go text/template with TRANSCRIPT and QUESTION keys.
	FallbackAnswer string `toml:"fallback"` // Returned when the model produces nothing usable.
}

// AnswerModel represents the configuration for a vision-language answer model.
type AnswerModel struct {
	Provider           string  `toml:"provider"`            // One of gemini, openai, ollama.
	Backend            string  `toml:"backend"`             // For gemini: vertex or gemini-api.
	Model              string  `toml:"model"`               // The provider's model name.
	SystemInstructions string  `toml:"system_instructions"` // Optional system prompt.
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`  // Upper bound on generated tokens.
	RateLimit          int     `toml:"rate_limit"`  // Requests per second.
	APIKeyEnv          string  `toml:"api_key_env"` // Name of the environment variable that holds the API key.
	BaseURL            string  `toml:"base_url"`    // Optional endpoint override (OpenAI compatible servers, remote Ollama).
}

// TranscriptionModel represents the configuration for a speech-to-text model.
type TranscriptionModel struct {
	Provider       string `toml:"provider"`        // Only openai is supported.
	Model          string `toml:"model"`           // e.g. whisper-1.
	Language       string `toml:"language"`        // Optional ISO-639-1 hint.
	WordTimestamps bool   `toml:"word_timestamps"` // Request word level timings in addition to segments.
	RateLimit      int    `toml:"rate_limit"`      // Requests per second.
	APIKeyEnv      string `toml:"api_key_env"`
	BaseURL        string `toml:"base_url"`
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name               string `toml:"name"`                // The service name reported to telemetry.
		GoogleProjectId    string `toml:"google_project_id"`   // The Google Cloud project ID.
		GoogleLocation     string `toml:"location"`            // The Google Cloud location.
		ListenAddress      string `toml:"listen_address"`      // Address the HTTP server binds to.
		FrameCount         int    `toml:"frame_count"`         // Frames sampled per upload.
		AnswerModel        string `toml:"answer_model"`        // Key into AnswerModels.
		TranscriptionModel string `toml:"transcription_model"` // Key into TranscriptionModels.
	} `toml:"application"`
	Media               Media                         `toml:"media"`
	Storage             Storage                       `toml:"storage"`
	Telemetry           Telemetry                     `toml:"telemetry"`
	PromptTemplates     PromptTemplates               `toml:"prompt_templates"`
	AnswerModels        map[string]AnswerModel        `toml:"answer_models"`
	TranscriptionModels map[string]TranscriptionModel `toml:"transcription_models"`
}

// NewConfig returns a Config holding the built-in defaults. Values read by
// LoadConfig overwrite these field by field.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with defaults and initialized maps.
func NewConfig() *Config {
	c := &Config{
		AnswerModels:        make(map[string]AnswerModel),
		TranscriptionModels: make(map[string]TranscriptionModel),
	}
	c.Application.Name = "video-qa-server"
	c.Application.GoogleLocation = "us-central1"
	c.Application.ListenAddress = ":8000"
	c.Application.FrameCount = 5
	c.Application.AnswerModel = "vision"
	c.Application.TranscriptionModel = "whisper"
	c.Media = Media{
		FFmpegPath:            "ffmpeg",
		FFprobePath:           "ffprobe",
		AudioSampleRate:       16000,
		FrameWidth:            0,
		FrameQuality:          2,
		CommandTimeoutSeconds: 300,
	}
	c.Storage = Storage{
		UploadDir:      "uploads",
		MaxUploadBytes: 512 << 20,
	}
	c.Telemetry = Telemetry{Exporter: "none"}
	c.PromptTemplates = PromptTemplates{
		AnswerPrompt:   DefaultAnswerPrompt,
		FallbackAnswer: DefaultFallbackAnswer,
	}
	return c
}

// GetAnswerModel returns the answer model selected by application.answer_model.
func (c *Config) GetAnswerModel() (AnswerModel, error) {
	m, ok := c.AnswerModels[c.Application.AnswerModel]
	if !ok {
		return AnswerModel{}, fmt.Errorf("answer model %q is not configured", c.Application.AnswerModel)
	}
	return m, nil
}

// GetTranscriptionModel returns the model selected by application.transcription_model.
func (c *Config) GetTranscriptionModel() (TranscriptionModel, error) {
	m, ok := c.TranscriptionModels[c.Application.TranscriptionModel]
	if !ok {
		return TranscriptionModel{}, fmt.Errorf("transcription model %q is not configured", c.Application.TranscriptionModel)
	}
	return m, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Application.FrameCount < 1 {
		return fmt.Errorf("application.frame_count must be at least 1, got %d", c.Application.FrameCount)
	}
	if strings.TrimSpace(c.Storage.UploadDir) == "" {
		return fmt.Errorf("storage.upload_dir must be set")
	}
	answer, err := c.GetAnswerModel()
	if err != nil {
		return err
	}
	switch answer.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("answer model %q has unknown provider %q", c.Application.AnswerModel, answer.Provider)
	}
	if answer.Provider == ProviderGemini && answer.Backend != "" &&
		answer.Backend != BackendVertexAI && answer.Backend != BackendGeminiAPI {
		return fmt.Errorf("answer model %q has unknown backend %q", c.Application.AnswerModel, answer.Backend)
	}
	transcription, err := c.GetTranscriptionModel()
	if err != nil {
		return err
	}
	if transcription.Provider != ProviderOpenAI {
		return fmt.Errorf("transcription model %q has unknown provider %q", c.Application.TranscriptionModel, transcription.Provider)
	}
	switch c.Telemetry.Exporter {
	case "", "none", "gcp":
	default:
		return fmt.Errorf("telemetry.exporter must be gcp or none, got %q", c.Telemetry.Exporter)
	}
	return nil
}
