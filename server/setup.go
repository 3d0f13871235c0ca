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

// This file builds the process-scoped state of the server: configuration,
// service clients, model engines, the session store and the two workflows.
// Everything is constructed once during bootstrap and handed to the HTTP
// handlers explicitly.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/workflow"
)

// DefaultConfigDir is used when GCP_CONFIG_PREFIX is unset.
const DefaultConfigDir = "configs"

// StateManager holds everything the request handlers need.
type StateManager struct {
	config      *cloud.Config
	cloud       *cloud.ServiceClients
	store       *services.SessionStore
	transcriber services.Transcriber
	engine      services.AnswerEngine
	ingest      *workflow.VideoIngestWorkflow
	question    *workflow.QuestionWorkflow
}

// ModelsLoaded reports whether both model engines were constructed.
func (s *StateManager) ModelsLoaded() bool {
	return s.transcriber != nil && s.engine != nil
}

// Close drops every session and releases client connections.
func (s *StateManager) Close() {
	if s.store != nil {
		n := s.store.Clear()
		slog.Info("cleared session store", "sessions", n)
	}
	if s.cloud != nil {
		s.cloud.Close()
	}
}

// SetupOS loads a .env file, when present, and defaults the configuration
// directory.
func SetupOS() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, DefaultConfigDir); err != nil {
			return err
		}
	}
	return nil
}

// GetConfig loads and validates the configuration.
func GetConfig() (*cloud.Config, error) {
	if err := SetupOS(); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// InitState constructs the server state. Model clients that cannot be
// created are logged and left nil so the server still starts and reports
// models_loaded=false; only an invalid prompt template is fatal.
func InitState(ctx context.Context, config *cloud.Config) (*StateManager, error) {
	state := &StateManager{config: config, store: services.NewSessionStore()}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		slog.Error("some service clients failed to initialize", "error", err)
	}
	state.cloud = clients

	if state.transcriber, err = services.NewTranscriber(config, clients); err != nil {
		slog.Error("transcription engine not loaded", "error", err)
		state.transcriber = nil
	}
	if state.engine, err = services.NewAnswerEngine(config, clients); err != nil {
		slog.Error("answer engine not loaded", "error", err)
		state.engine = nil
	}

	var archiver cloud.ClipArchiver
	if clients.StorageClient != nil {
		archiver = cloud.NewGCSArchiver(clients.StorageClient)
	}

	extractor := media.NewFFmpegExtractor(config.Media, nil)
	state.ingest = workflow.NewVideoIngestWorkflow(config, extractor, state.transcriber, state.store, archiver)
	if state.question, err = workflow.NewQuestionWorkflow(config, extractor, state.engine, state.store); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.Storage.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return state, nil
}
