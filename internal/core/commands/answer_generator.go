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
// command that sends the prompt and the representative frame to the
// configured answer engine.
package commands

import (
	"errors"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
)

// AnswerGenerator invokes the AnswerEngine. Any engine failure is reported
// as a model error.
type AnswerGenerator struct {
	cor.BaseCommand
	engine services.AnswerEngine
}

// NewAnswerGenerator is the constructor for the AnswerGenerator command.
func NewAnswerGenerator(name string, engine services.AnswerEngine) *AnswerGenerator {
	out := &AnswerGenerator{BaseCommand: *cor.NewBaseCommand(name), engine: engine}
	out.InputParamName = ParamPrompt
	out.OutputParamName = ParamRawAnswer
	return out
}

// IsExecutable requires the frame and question as well as the prompt.
func (a *AnswerGenerator) IsExecutable(context cor.Context) bool {
	return a.BaseCommand.IsExecutable(context) &&
		context.Get(ParamFrame) != nil &&
		context.Get(ParamQuestion) != nil
}

// Execute asks the engine.
func (a *AnswerGenerator) Execute(context cor.Context) {
	if a.engine == nil {
		a.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(a.GetName(), model.NewModelError(a.GetName(), errors.New("answer engine is not loaded")))
		return
	}

	request := &model.AnswerRequest{
		Question: context.Get(ParamQuestion).(*model.Question).Text,
		Prompt:   context.Get(a.GetInputParam()).(string),
		Image:    context.Get(ParamFrame).(*model.Frame),
	}
	if session, ok := context.Get(ParamSession).(*model.Session); ok {
		request.Transcript = session.Transcript
	}

	out, err := a.engine.Answer(context.GetContext(), request)
	if err != nil {
		a.GetErrorCounter().Add(context.GetContext(), 1)
		if !model.IsKind(err, model.KindModel) {
			err = model.NewModelError(a.GetName(), err)
		}
		context.AddError(a.GetName(), err)
		return
	}

	a.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(a.GetOutputParam(), out)
}
