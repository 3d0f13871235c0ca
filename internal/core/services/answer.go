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

// Package services contains the stateful services and model adapters used by
// the workflows. This file, `answer.go`, defines the AnswerEngine contract and
// the factories that build the configured engines from the service clients.
//
// Three engines implement the contract:
//   - GeminiAnswerEngine (google.golang.org/genai), the default.
//   - OpenAIAnswerEngine, any OpenAI compatible vision chat endpoint.
//   - OllamaAnswerEngine, a locally hosted vision-language model.
//
// Every engine returns the raw model text. Removing echoed prompts and
// markup is the question workflow's job, so all engines behave the same.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AnswerEngine produces a natural-language answer from a composed prompt
// and a single image.
type AnswerEngine interface {
	Answer(ctx context.Context, request *model.AnswerRequest) (string, error)
}

// tokenCounters are shared by the engines that report token usage.
type tokenCounters struct {
	input  metric.Int64Counter
	output metric.Int64Counter
	retry  metric.Int64Counter
}

func newTokenCounters(prefix string) tokenCounters {
	meter := otel.Meter(cor.MeterName)
	input, _ := meter.Int64Counter(prefix + ".token.input")
	output, _ := meter.Int64Counter(prefix + ".token.output")
	retry, _ := meter.Int64Counter(prefix + ".retry")
	return tokenCounters{input: input, output: output, retry: retry}
}

func checkRequest(request *model.AnswerRequest) error {
	if request == nil || request.Prompt == "" {
		return model.NewInternalError("answer", errors.New("empty prompt"))
	}
	if request.Image == nil || len(request.Image.Data) == 0 {
		return model.NewInternalError("answer", errors.New("missing image"))
	}
	return nil
}

// NewAnswerEngine builds the engine selected by application.answer_model.
//
// Inputs:
//   - config: The application configuration.
//   - clients: The initialized service clients.
//
// Outputs:
//   - AnswerEngine: The configured engine.
//   - error: When the model is not configured or its client is missing.
func NewAnswerEngine(config *cloud.Config, clients *cloud.ServiceClients) (AnswerEngine, error) {
	values, err := config.GetAnswerModel()
	if err != nil {
		return nil, err
	}
	switch values.Provider {
	case cloud.ProviderGemini:
		if clients.AnswerModel == nil {
			return nil, fmt.Errorf("gemini model %q is not initialized", values.Model)
		}
		return NewGeminiAnswerEngine(clients.AnswerModel), nil
	case cloud.ProviderOpenAI:
		if clients.OpenAIAnswerClient == nil {
			return nil, fmt.Errorf("openai client for %q is not initialized", values.Model)
		}
		return NewOpenAIAnswerEngine(clients.OpenAIAnswerClient, values), nil
	case cloud.ProviderOllama:
		if clients.OllamaClient == nil {
			return nil, fmt.Errorf("ollama client for %q is not initialized", values.Model)
		}
		return NewOllamaAnswerEngine(clients.OllamaClient, values), nil
	default:
		return nil, fmt.Errorf("unknown answer provider %q", values.Provider)
	}
}

// NewTranscriber builds the transcriber selected by application.transcription_model.
func NewTranscriber(config *cloud.Config, clients *cloud.ServiceClients) (Transcriber, error) {
	values, err := config.GetTranscriptionModel()
	if err != nil {
		return nil, err
	}
	if clients.TranscriptionClient == nil {
		return nil, fmt.Errorf("transcription client for %q is not initialized", values.Model)
	}
	return NewWhisperTranscriber(clients.TranscriptionClient, values), nil
}
