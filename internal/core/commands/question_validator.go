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
// Responsibility (COR) pattern's Command interface. This file defines the
// first step of the question chain.
package commands

import (
	"strings"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// MissingQuestionMessage is the validation message for an incomplete question.
const MissingQuestionMessage = "Session ID and question required"

// QuestionValidator rejects questions with a blank session id or text. It
// runs before the session lookup so an incomplete request never reaches the
// store.
type QuestionValidator struct {
	cor.BaseCommand
}

// NewQuestionValidator is the constructor for the QuestionValidator command.
func NewQuestionValidator(name string) *QuestionValidator {
	out := &QuestionValidator{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamQuestion
	out.OutputParamName = ParamSessionID
	return out
}

// Execute trims and validates the question in place.
func (q *QuestionValidator) Execute(context cor.Context) {
	question := context.Get(q.GetInputParam()).(*model.Question)
	question.SessionID = strings.TrimSpace(question.SessionID)
	question.Text = strings.TrimSpace(question.Text)

	if question.SessionID == "" || question.Text == "" {
		q.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(q.GetName(), model.NewValidationError(q.GetName(), MissingQuestionMessage))
		return
	}

	q.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(q.GetOutputParam(), question.SessionID)
}
