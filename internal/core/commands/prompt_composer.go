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
// command that renders the answer prompt.
//
// Logic Flow:
// The prompt is a Go `text/template` loaded from configuration
// (`prompt_templates.answer`). It is executed with a parameter map holding
// the session transcript and the question text, and instructs the model to
// ground its answer in both the transcript and the attached frame.
package commands

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// Template keys available to the answer prompt.
const (
	TemplateKeyTranscript = "TRANSCRIPT"
	TemplateKeyQuestion   = "QUESTION"
)

// PromptComposer renders the prompt for the answer engine.
type PromptComposer struct {
	cor.BaseCommand
	template *template.Template
}

// NewPromptComposer is the constructor for the PromptComposer command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - template: The parsed answer prompt template.
//
// Outputs:
//   - *PromptComposer: A pointer to the newly instantiated command.
func NewPromptComposer(name string, template *template.Template) *PromptComposer {
	out := &PromptComposer{BaseCommand: *cor.NewBaseCommand(name), template: template}
	out.InputParamName = ParamSession
	out.OutputParamName = ParamPrompt
	return out
}

// IsExecutable requires the validated question as well as the session.
func (p *PromptComposer) IsExecutable(context cor.Context) bool {
	return p.BaseCommand.IsExecutable(context) && context.Get(ParamQuestion) != nil
}

// GenerateParams creates the map of values substituted into the template.
func (p *PromptComposer) GenerateParams(context cor.Context) map[string]interface{} {
	session := context.Get(p.GetInputParam()).(*model.Session)
	question := context.Get(ParamQuestion).(*model.Question)
	return map[string]interface{}{
		TemplateKeyTranscript: session.Transcript,
		TemplateKeyQuestion:   question.Text,
	}
}

// Execute renders the prompt.
func (p *PromptComposer) Execute(context cor.Context) {
	var buffer bytes.Buffer
	if err := p.template.Execute(&buffer, p.GenerateParams(context)); err != nil {
		p.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(p.GetName(), model.NewInternalError(p.GetName(), fmt.Errorf("failed to execute prompt template: %w", err)))
		return
	}

	p.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(p.GetOutputParam(), buffer.String())
}
