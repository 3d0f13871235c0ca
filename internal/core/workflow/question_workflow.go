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

// Package workflow defines the high-level business processes of the service.
// This file defines the QuestionWorkflow, which answers a free-text question
// about a previously ingested clip.
//
// Logic Flow:
//  1. `question-validator` rejects blank session ids and questions before
//     the store is consulted.
//  2. `session-lookup` resolves the session or fails with not found.
//  3. `frame-selector` picks the representative frame.
//  4. `prompt-composer` renders the prompt from the transcript and question.
//  5. `answer-generator` calls the answer engine.
//  6. `answer-cleaner` strips echoed prompts and markup.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/media"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
)

// QuestionWorkflow answers questions about stored sessions.
type QuestionWorkflow struct {
	cor.BaseCommand
	extractor      media.Extractor
	engine         services.AnswerEngine
	store          commands.SessionReader
	promptTemplate *template.Template
	fallback       string
	chain          cor.Chain
}

// Execute runs the chain against a context that already holds the question
// under commands.ParamQuestion.
func (q *QuestionWorkflow) Execute(context cor.Context) {
	q.chain.Execute(context)
}

func (q *QuestionWorkflow) initializeChain() {
	out := cor.NewBaseChain(q.GetName())
	out.AddCommand(commands.NewQuestionValidator("question-validator"))
	out.AddCommand(commands.NewSessionLookup("session-lookup", q.store))
	out.AddCommand(commands.NewFrameSelector("frame-selector", q.extractor))
	out.AddCommand(commands.NewPromptComposer("prompt-composer", q.promptTemplate))
	out.AddCommand(commands.NewAnswerGenerator("answer-generator", q.engine))
	out.AddCommand(commands.NewAnswerCleaner("answer-cleaner", q.fallback))
	q.chain = out
}

// Ask answers question about the session identified by sessionID.
func (q *QuestionWorkflow) Ask(ctx context.Context, sessionID string, question string) (string, error) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()
	chCtx.Add(commands.ParamQuestion, &model.Question{SessionID: sessionID, Text: question})

	q.Execute(chCtx)

	if err := chCtx.Err(); err != nil {
		return "", err
	}
	answer, ok := chCtx.Get(commands.ParamAnswer).(string)
	if !ok {
		return "", model.NewInternalError(q.GetName(), errors.New("workflow completed without an answer"))
	}
	return answer, nil
}

// NewQuestionWorkflow builds the question workflow. It fails when the
// configured answer prompt is not a valid template.
//
// Inputs:
//   - config: The application configuration, for the prompt and fallback.
//   - extractor: Used when a session has no sampled frames.
//   - engine: The answer engine; nil makes every answer fail with a model error.
//   - store: The session store.
//
// Outputs:
//   - *QuestionWorkflow: The ready-to-use workflow.
//   - error: When the prompt template cannot be parsed.
func NewQuestionWorkflow(
	config *cloud.Config,
	extractor media.Extractor,
	engine services.AnswerEngine,
	store commands.SessionReader) (*QuestionWorkflow, error) {

	promptTemplate, err := template.New("answer-template").Parse(config.PromptTemplates.AnswerPrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid answer prompt template: %w", err)
	}
	fallback := config.PromptTemplates.FallbackAnswer
	if fallback == "" {
		fallback = cloud.DefaultFallbackAnswer
	}

	out := &QuestionWorkflow{
		BaseCommand:    *cor.NewBaseCommand("question-workflow"),
		extractor:      extractor,
		engine:         engine,
		store:          store,
		promptTemplate: promptTemplate,
		fallback:       fallback,
	}
	out.initializeChain()
	return out, nil
}
