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

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// GeminiAnswerEngine sends the frame and prompt to Gemini in a single user turn.
type GeminiAnswerEngine struct {
	Model    *cloud.QuotaAwareGenerativeAIModel
	counters tokenCounters
}

// NewGeminiAnswerEngine wraps a quota aware Gemini model.
func NewGeminiAnswerEngine(m *cloud.QuotaAwareGenerativeAIModel) *GeminiAnswerEngine {
	out := &GeminiAnswerEngine{Model: m, counters: newTokenCounters("gemini-answer")}
	if m.OnRetry == nil {
		m.OnRetry = func(ctx context.Context, _ int, _ error) {
			out.counters.retry.Add(ctx, 1)
		}
	}
	return out
}

// Answer implements AnswerEngine.
func (g *GeminiAnswerEngine) Answer(ctx context.Context, request *model.AnswerRequest) (string, error) {
	if err := checkRequest(request); err != nil {
		return "", err
	}
	contents := cloud.NewUserContent(
		cloud.NewImagePart(request.Image.Data, request.Image.MIMEType),
		cloud.NewTextPart(request.Prompt),
	)
	out, err := cloud.GenerateMultiModalResponse(ctx, g.counters.input, g.counters.output, g.Model, contents)
	if err != nil {
		return "", model.NewModelError("gemini-answer", err)
	}
	return out, nil
}
