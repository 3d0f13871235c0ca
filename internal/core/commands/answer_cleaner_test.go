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

package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
)

const fallback = "I couldn't generate a specific answer."

func TestCleanAnswer(t *testing.T) {
	prompt := "<grounding>Transcript: hi\nQuestion: What color?\nAnswer:"
	cases := map[string]struct {
		raw  string
		want string
	}{
		"plain":            {raw: "  The ball is red.  ", want: "The ball is red."},
		"echoed prompt":    {raw: prompt + " The ball is red.", want: "The ball is red."},
		"echo w/o markup":  {raw: "Transcript: hi\nQuestion: What color?\nAnswer: The ball is red.", want: "The ball is red."},
		"markup":           {raw: "<phrase>The ball</phrase><object><patch_index_0044><patch_index_0060></object> is red.", want: "The ball is red."},
		"only echo":        {raw: prompt, want: fallback},
		"only markup":      {raw: "<grounding> </s>", want: fallback},
		"empty":            {raw: "", want: fallback},
		"repeated echo":    {raw: prompt + "red" + prompt, want: "red"},
		"multiple objects": {raw: "two balls<delimiter_of_multi_objects/>", want: "two balls"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, commands.CleanAnswer(tc.raw, prompt, fallback))
		})
	}
}

func TestCleanAnswerWithoutPrompt(t *testing.T) {
	assert.Equal(t, "red", commands.CleanAnswer(" <s>red</s> ", "", fallback))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "a b", commands.StripMarkup("<grounding>a <image>b</image>"))
	assert.Equal(t, "<b>keep</b>", commands.StripMarkup("<b>keep</b>"))
}

func TestAnswerCleanerCommand(t *testing.T) {
	ctx := newContext()
	ctx.Add(commands.ParamPrompt, "Question: why?")
	ctx.Add(commands.ParamRawAnswer, "Question: why? Because.")

	commands.NewAnswerCleaner("answer-cleaner", fallback).Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "Because.", ctx.Get(commands.ParamAnswer))
}
