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

// Package api exposes the video question answering workflows over HTTP.
//
// Routes:
//   - POST /upload-video: multipart upload (field "file") that runs the
//     ingest workflow and returns the new session.
//   - POST /ask-question: JSON {"session_id", "question"} that runs the
//     question workflow.
//   - GET /health: liveness plus whether both models are loaded.
//
// Errors are returned as {"detail", "kind"}. Validation errors map to 400,
// unknown sessions to 404, and every other kind to 500 with the cause
// embedded in the detail.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// Response messages.
const (
	UploadSuccessMessage = "Video uploaded and processed successfully"
	UploadErrorPrefix    = "Error processing video: "
	QuestionErrorPrefix  = "Error processing question: "
	StatusHealthy        = "healthy"
	UploadFormField      = "file"
)

// multipartOverhead is allowed on top of the upload limit for form headers.
const multipartOverhead = 1 << 20

// Ingester runs the upload workflow.
type Ingester interface {
	Ingest(ctx context.Context, upload *model.Upload) (*model.Session, error)
}

// Answerer runs the question workflow.
type Answerer interface {
	Ask(ctx context.Context, sessionID string, question string) (string, error)
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	SessionID  string  `json:"session_id"`
	Message    string  `json:"message"`
	Transcript string  `json:"transcript"`
	Duration   float64 `json:"duration"`
}

// QuestionRequest is the body of an ask request.
type QuestionRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// QuestionResponse is the body of a successful ask request.
type QuestionResponse struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// HealthResponse is the body of the health check.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind"`
}

// Handlers holds the collaborators of the HTTP handlers.
type Handlers struct {
	Ingester       Ingester
	Answerer       Answerer
	ModelsLoaded   func() bool
	MaxUploadBytes int64 // Zero disables the request body limit.
}

// Register mounts the routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.POST("/upload-video", h.UploadVideo)
	r.POST("/ask-question", h.AskQuestion)
	r.GET("/health", h.Health)
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Server errors get prefix in front of the cause.
func writeError(c *gin.Context, err error, prefix string) {
	kind := model.KindOf(err)
	status := StatusFor(kind)
	detail := model.Cause(err)
	if status == http.StatusInternalServerError {
		detail = prefix + detail
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "kind", kind.String(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail, Kind: kind.String()})
}

// UploadVideo handles POST /upload-video.
func (h *Handlers) UploadVideo(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)
	}
	header, err := c.FormFile(UploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, model.NewValidationError("upload-video", "File exceeds the maximum upload size of %d bytes", h.MaxUploadBytes), UploadErrorPrefix)
			return
		}
		writeError(c, model.NewValidationError("upload-video", "File is required"), UploadErrorPrefix)
		return
	}
	if h.Ingester == nil {
		writeError(c, model.NewModelError("upload-video", errors.New("models are not loaded")), UploadErrorPrefix)
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(c, model.NewInternalError("upload-video", fmt.Errorf("failed to open upload: %w", err)), UploadErrorPrefix)
		return
	}
	defer file.Close()

	session, err := h.Ingester.Ingest(c.Request.Context(), &model.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(c, err, UploadErrorPrefix)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		SessionID:  session.ID,
		Message:    UploadSuccessMessage,
		Transcript: session.Transcript,
		Duration:   session.VideoInfo.Duration,
	})
}

// AskQuestion handles POST /ask-question.
func (h *Handlers) AskQuestion(c *gin.Context) {
	var request QuestionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeError(c, model.NewValidationError("ask-question", commands.MissingQuestionMessage), QuestionErrorPrefix)
		return
	}
	if h.Answerer == nil {
		writeError(c, model.NewModelError("ask-question", errors.New("models are not loaded")), QuestionErrorPrefix)
		return
	}

	answer, err := h.Answerer.Ask(c.Request.Context(), request.SessionID, request.Question)
	if err != nil {
		writeError(c, err, QuestionErrorPrefix)
		return
	}

	c.JSON(http.StatusOK, QuestionResponse{
		Question:  request.Question,
		Answer:    answer,
		SessionID: request.SessionID,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	loaded := false
	if h.ModelsLoaded != nil {
		loaded = h.ModelsLoaded()
	}
	c.JSON(http.StatusOK, HealthResponse{Status: StatusHealthy, ModelsLoaded: loaded})
}
