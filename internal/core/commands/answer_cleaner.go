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
// command that turns raw model output into the answer returned to callers.
//
// Logic Flow:
//  1. Remove every occurrence of the prompt. Some vision-language models
//     echo their input before answering; the echo may include or omit the
//     markup tokens, so both forms are removed.
//  2. Remove structural markup tokens such as `<grounding>`, `<phrase>`,
//     `<object>` and `<patch_index_0042>`.
//  3. Trim surrounding whitespace.
//  4. Substitute the configured fallback message when nothing is left.
package commands

import (
	"regexp"
	"strings"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
)

// markupPattern matches the structural tokens emitted by grounding models.
var markupPattern = regexp.MustCompile(`</?(?:grounding|phrase|object|image|s)>|<patch_index_\d+>|<delimiter_of_multi_objects/>`)

// StripMarkup removes structural markup tokens from in.
func StripMarkup(in string) string {
	return markupPattern.ReplaceAllString(in, "")
}

// CleanAnswer removes the echoed prompt and markup from raw and returns
// fallback when the result is empty.
func CleanAnswer(raw string, prompt string, fallback string) string {
	answer := raw
	if prompt != "" {
		answer = strings.ReplaceAll(answer, prompt, "")
		if stripped := strings.TrimSpace(StripMarkup(prompt)); stripped != "" {
			answer = strings.ReplaceAll(StripMarkup(answer), stripped, "")
		}
	}
	answer = strings.TrimSpace(StripMarkup(answer))
	if answer == "" {
		return fallback
	}
	return answer
}

// AnswerCleaner post-processes the raw model output.
type AnswerCleaner struct {
	cor.BaseCommand
	fallback string
}

// NewAnswerCleaner is the constructor for the AnswerCleaner command.
func NewAnswerCleaner(name string, fallback string) *AnswerCleaner {
	out := &AnswerCleaner{BaseCommand: *cor.NewBaseCommand(name), fallback: fallback}
	out.InputParamName = ParamRawAnswer
	out.OutputParamName = ParamAnswer
	return out
}

// Execute cleans the answer.
func (a *AnswerCleaner) Execute(context cor.Context) {
	raw := context.Get(a.GetInputParam()).(string)
	prompt, _ := context.Get(ParamPrompt).(string)

	a.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(a.GetOutputParam(), CleanAnswer(raw, prompt, a.fallback))
}
