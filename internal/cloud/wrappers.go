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

// Package cloud provides components for interacting with external services.
// This file implements a decorator around the Gemini model handle that adds
// rate limiting and bounded retries with exponential backoff.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a ContentGenerator with a limiter.
//
// Functions:
//   - NewQuotaAwareModel: Creates a wrapped model.
//   - NewRateLimiter: Creates the token bucket shared by every model wrapper.
//   - GenerateContent: Waits for the limiter, calls the model, and retries.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultRetryBackoff is the delay before the first retry. It doubles on
// every further attempt.
const DefaultRetryBackoff = 2 * time.Second

// ContentGenerator is the subset of *genai.Models used by the wrapper.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewRateLimiter returns a limiter that admits requestsPerSecond requests per
// second with an equal burst. A non-positive value means one per second.
func NewRateLimiter(requestsPerSecond int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
}

// QuotaAwareGenerativeAIModel is a decorator around a Gemini model handle.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ContentGenerator
	RateLimit               *rate.Limiter
	MaxRetries              int
	RetryBackoff            time.Duration
	OnRetry                 func(ctx context.Context, attempt int, err error) // Optional hook, used for metrics.
}

// NewQuotaAwareModel is a constructor function that creates a new
// QuotaAwareGenerativeAIModel.
//
// Inputs:
//   - wrapped: The generation settings sent with every request.
//   - name: The model name, e.g. "gemini-2.0-flash".
//   - handle: Usually `client.Models` from a genai client.
//   - requestsPerSecond: The maximum number of calls allowed per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, handle ContentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               NewRateLimiter(requestsPerSecond),
		MaxRetries:              MaxRetries,
		RetryBackoff:            DefaultRetryBackoff,
	}
}

// GenerateContent waits for a limiter token and calls the model. Failed calls
// are retried up to MaxRetries times, unless the context has ended.
//
// Inputs:
//   - ctx: The context for the request.
//   - content: The prompt contents.
//
// Outputs:
//   - *genai.GenerateContentResponse: The response from the model if successful.
//   - error: The last error once retries are exhausted, or the context error.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	backoff := q.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= q.MaxRetries; attempt++ {
		if attempt > 0 {
			if q.OnRetry != nil {
				q.OnRetry(ctx, attempt, lastErr)
			}
			slog.WarnContext(ctx, "retrying model call", "model", q.ModelName, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if q.RateLimit != nil {
			if err := q.RateLimit.Wait(ctx); err != nil {
				return nil, err
			}
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed generation after %d retries: %w", q.MaxRetries, lastErr)
}
