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
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// ChatCompletionClient is the subset of *openai.Client used here.
type ChatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAnswerEngine asks an OpenAI compatible vision chat model. The frame
// is sent inline as a base64 data URL.
type OpenAIAnswerEngine struct {
	Client             ChatCompletionClient
	Model              string
	SystemInstructions string
	Temperature        float32
	TopP               float32
	MaxTokens          int
	Limiter            *rate.Limiter
	counters           tokenCounters
}

// NewOpenAIAnswerEngine creates an engine from its configuration.
func NewOpenAIAnswerEngine(client ChatCompletionClient, values cloud.AnswerModel) *OpenAIAnswerEngine {
	return &OpenAIAnswerEngine{
		Client:             client,
		Model:              values.Model,
		SystemInstructions: values.SystemInstructions,
		Temperature:        values.Temperature,
		TopP:               values.TopP,
		MaxTokens:          int(values.MaxTokens),
		Limiter:            cloud.NewRateLimiter(values.RateLimit),
		counters:           newTokenCounters("openai-answer"),
	}
}

// DataURL encodes a frame as a data URL.
func DataURL(frame *model.Frame) string {
	return fmt.Sprintf("data:%s;base64,%s", frame.MIMEType, base64.StdEncoding.EncodeToString(frame.Data))
}

// Answer implements AnswerEngine.
func (o *OpenAIAnswerEngine) Answer(ctx context.Context, request *model.AnswerRequest) (string, error) {
	if err := checkRequest(request); err != nil {
		return "", err
	}
	if o.Limiter != nil {
		if err := o.Limiter.Wait(ctx); err != nil {
			return "", model.NewModelError("openai-answer", err)
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if o.SystemInstructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: o.SystemInstructions,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: request.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    DataURL(request.Image),
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	})

	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    messages,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
		TopP:        o.TopP,
	})
	if err != nil {
		return "", model.NewModelError("openai-answer", err)
	}
	o.counters.input.Add(ctx, int64(resp.Usage.PromptTokens))
	o.counters.output.Add(ctx, int64(resp.Usage.CompletionTokens))
	if len(resp.Choices) == 0 {
		return "", model.NewModelError("openai-answer", errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}
