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

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
)

// scriptedGenerator fails the first failures calls and then returns resp.
type scriptedGenerator struct {
	failures int
	err      error
	resp     *genai.GenerateContentResponse
	calls    int
	models   []string
}

func (s *scriptedGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.calls++
	s.models = append(s.models, model)
	if s.calls <= s.failures {
		return nil, s.err
	}
	return s.resp, nil
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 3,
		},
	}
}

func newModel(handle cloud.ContentGenerator) *cloud.QuotaAwareGenerativeAIModel {
	m := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-2.0-flash", handle, 100)
	m.RetryBackoff = time.Millisecond
	return m
}

func TestQuotaAwareModelRetries(t *testing.T) {
	gen := &scriptedGenerator{failures: 2, err: errors.New("429 resource exhausted"), resp: textResponse(&genai.Part{Text: "ok"})}
	m := newModel(gen)
	retries := 0
	m.OnRetry = func(context.Context, int, error) { retries++ }

	resp, err := m.GenerateContent(context.Background(), cloud.NewUserContent(cloud.NewTextPart("hi")))

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Candidates[0].Content.Parts[0].Text)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, 2, retries)
	assert.Equal(t, []string{"gemini-2.0-flash", "gemini-2.0-flash", "gemini-2.0-flash"}, gen.models)
}

func TestQuotaAwareModelGivesUp(t *testing.T) {
	cause := errors.New("unavailable")
	gen := &scriptedGenerator{failures: 100, err: cause}
	m := newModel(gen)

	_, err := m.GenerateContent(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cloud.MaxRetries+1, gen.calls)
}

func TestQuotaAwareModelDoesNotRetryCancellation(t *testing.T) {
	gen := &scriptedGenerator{failures: 100, err: context.Canceled}
	m := newModel(gen)

	_, err := m.GenerateContent(context.Background(), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateMultiModalResponseSkipsThoughts(t *testing.T) {
	gen := &scriptedGenerator{resp: textResponse(
		&genai.Part{Text: "let me think", Thought: true},
		&genai.Part{Text: "A red "},
		&genai.Part{Text: "ball."},
	)}
	meter := otel.Meter("test")
	in, _ := meter.Int64Counter("in")
	out, _ := meter.Int64Counter("out")

	text, err := cloud.GenerateMultiModalResponse(context.Background(), in, out, newModel(gen),
		cloud.NewUserContent(cloud.NewImagePart([]byte{0xff, 0xd8}, "image/jpeg"), cloud.NewTextPart("What is it?")))

	require.NoError(t, err)
	assert.Equal(t, "A red ball.", text)
}

func TestNewUserContent(t *testing.T) {
	contents := cloud.NewUserContent(cloud.NewImagePart([]byte{1, 2}, "image/jpeg"), cloud.NewTextPart("prompt"))
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "image/jpeg", contents[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, "prompt", contents[0].Parts[1].Text)
}
