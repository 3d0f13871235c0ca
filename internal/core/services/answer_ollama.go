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

package services

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// OllamaGenerator is the subset of *api.Client used here.
type OllamaGenerator interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// OllamaAnswerEngine asks a vision model served by Ollama, e.g. llava.
type OllamaAnswerEngine struct {
	Client             OllamaGenerator
	Model              string
	SystemInstructions string
	Options            map[string]any
	Limiter            *rate.Limiter
	counters           tokenCounters
}

// NewOllamaAnswerEngine creates an engine from its configuration.
func NewOllamaAnswerEngine(client OllamaGenerator, values cloud.AnswerModel) *OllamaAnswerEngine {
	options := map[string]any{"temperature": values.Temperature}
	if values.MaxTokens > 0 {
		options["num_predict"] = values.MaxTokens
	}
	if values.TopP > 0 {
		options["top_p"] = values.TopP
	}
	if values.TopK > 0 {
		options["top_k"] = int(values.TopK)
	}
	return &OllamaAnswerEngine{
		Client:             client,
		Model:              values.Model,
		SystemInstructions: values.SystemInstructions,
		Options:            options,
		Limiter:            cloud.NewRateLimiter(values.RateLimit),
		counters:           newTokenCounters("ollama-answer"),
	}
}

// Answer implements AnswerEngine. Streaming is disabled, but the callback
// still accumulates in case the server sends several chunks.
func (o *OllamaAnswerEngine) Answer(ctx context.Context, request *model.AnswerRequest) (string, error) {
	if err := checkRequest(request); err != nil {
		return "", err
	}
	if o.Limiter != nil {
		if err := o.Limiter.Wait(ctx); err != nil {
			return "", model.NewModelError("ollama-answer", err)
		}
	}

	stream := false
	var sb strings.Builder
	err := o.Client.Generate(ctx, &api.GenerateRequest{
		Model:   o.Model,
		Prompt:  request.Prompt,
		System:  o.SystemInstructions,
		Images:  []api.ImageData{request.Image.Data},
		Stream:  &stream,
		Options: o.Options,
	}, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		if resp.Done {
			o.counters.input.Add(ctx, int64(resp.PromptEvalCount))
			o.counters.output.Add(ctx, int64(resp.EvalCount))
		}
		return nil
	})
	if err != nil {
		return "", model.NewModelError("ollama-answer", err)
	}
	return sb.String(), nil
}
