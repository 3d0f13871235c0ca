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

// Package cloud provides components for interacting with external services.
// This file builds and holds every client the server needs. It acts as a
// dependency injection container created once during bootstrap.
//
// Logic Flow:
//  1. `NewCloudServiceClients` reads the selected answer and transcription
//     models from the configuration.
//  2. It creates only the clients those models need: an OpenAI client for
//     Whisper, and a Gemini, OpenAI, or Ollama client for answers. A GCS
//     client is created when an archive bucket is configured.
//  3. A client that cannot be created is left nil and its error is joined
//     into the returned error, so the caller can still serve a health check
//     that reports the models as not loaded.
//
// Structs:
//   - ServiceClients: The container of initialized clients.
//
// Functions:
//   - NewCloudServiceClients: Creates the clients.
//   - Close: Releases the clients that hold connections.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"cloud.google.com/go/storage"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Default environment variables holding API keys.
const (
	DefaultOpenAIKeyEnv = "OPENAI_API_KEY"
	DefaultGeminiKeyEnv = "GOOGLE_API_KEY"
)

// ServiceClients is the central container for clients of external services.
type ServiceClients struct {
	StorageClient       *storage.Client              // GCS, only when storage.archive_bucket is set.
	GenAIClient         *genai.Client                // Gemini, only when the answer provider is gemini.
	AnswerModel         *QuotaAwareGenerativeAIModel // The configured Gemini answer model.
	TranscriptionClient *openai.Client               // Whisper.
	OpenAIAnswerClient  *openai.Client               // Only when the answer provider is openai.
	OllamaClient        *api.Client                  // Only when the answer provider is ollama.
}

// Close releases client connections.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		if err := c.StorageClient.Close(); err != nil {
			slog.Warn("failed to close storage client", "error", err)
		}
	}
}

// apiKey reads the key from envName, falling back to fallbackEnv.
func apiKey(envName string, fallbackEnv string) (string, string) {
	if envName == "" {
		envName = fallbackEnv
	}
	return os.Getenv(envName), envName
}

// NewOpenAIClient creates a go-openai client. An empty base URL means the
// public OpenAI endpoint.
func NewOpenAIClient(keyEnv string, baseURL string) (*openai.Client, error) {
	key, name := apiKey(keyEnv, DefaultOpenAIKeyEnv)
	if key == "" && baseURL == "" {
		return nil, fmt.Errorf("environment variable %s is not set", name)
	}
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

// NewOllamaClient creates an Ollama client for baseURL, or from OLLAMA_HOST
// when baseURL is empty.
func NewOllamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

// NewGenAIClient creates a Gemini client for either Vertex AI or the Gemini API.
func NewGenAIClient(ctx context.Context, config *Config, model AnswerModel) (*genai.Client, error) {
	cc := &genai.ClientConfig{}
	switch model.Backend {
	case BackendGeminiAPI:
		key, name := apiKey(model.APIKeyEnv, DefaultGeminiKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("environment variable %s is not set", name)
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = key
	default:
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.Application.GoogleProjectId
		cc.Location = config.Application.GoogleLocation
	}
	return genai.NewClient(ctx, cc)
}

// NewGenerateContentConfig translates an AnswerModel into Gemini settings.
func NewGenerateContentConfig(values AnswerModel) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](values.Temperature),
		MaxOutputTokens: values.MaxTokens,
		SafetySettings:  DefaultSafetySettings,
	}
	if values.TopP > 0 {
		out.TopP = genai.Ptr[float32](values.TopP)
	}
	if values.TopK > 0 {
		out.TopK = genai.Ptr[float32](values.TopK)
	}
	if values.SystemInstructions != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return out
}

// NewCloudServiceClients creates the clients required by the configured
// models. It returns a non-nil ServiceClients even when some clients failed,
// together with the joined errors.
//
// Inputs:
//   - ctx: The root context for the application.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The initialized clients; failed ones are nil.
//   - error: The joined construction errors, if any.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	out := &ServiceClients{}
	var errs []error

	if transcription, err := config.GetTranscriptionModel(); err != nil {
		errs = append(errs, err)
	} else if tc, err := NewOpenAIClient(transcription.APIKeyEnv, transcription.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("transcription client: %w", err))
	} else {
		out.TranscriptionClient = tc
	}

	answer, err := config.GetAnswerModel()
	if err != nil {
		errs = append(errs, err)
	} else {
		switch answer.Provider {
		case ProviderGemini:
			gc, err := NewGenAIClient(ctx, config, answer)
			if err != nil {
				errs = append(errs, fmt.Errorf("genai client: %w", err))
				break
			}
			out.GenAIClient = gc
			out.AnswerModel = NewQuotaAwareModel(NewGenerateContentConfig(answer), answer.Model, gc.Models, answer.RateLimit)
		case ProviderOpenAI:
			oc, err := NewOpenAIClient(answer.APIKeyEnv, answer.BaseURL)
			if err != nil {
				errs = append(errs, fmt.Errorf("openai answer client: %w", err))
				break
			}
			out.OpenAIAnswerClient = oc
		case ProviderOllama:
			oc, err := NewOllamaClient(answer.BaseURL)
			if err != nil {
				errs = append(errs, fmt.Errorf("ollama client: %w", err))
				break
			}
			out.OllamaClient = oc
		default:
			errs = append(errs, fmt.Errorf("unknown answer provider %q", answer.Provider))
		}
	}

	if config.Storage.ArchiveBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("storage client: %w", err))
		} else {
			out.StorageClient = sc
		}
	}

	return out, errors.Join(errs...)
}
