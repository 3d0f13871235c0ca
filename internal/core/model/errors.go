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

// Package model defines the core data structures for the application.
// This file defines the error taxonomy shared by every layer of the service.
// Commands record a *model.Error in the workflow context, and the API layer
// maps the error's Kind to an HTTP status without inspecting message text.
//
// Kinds:
//   - KindValidation: bad or missing input, the caller's fault.
//   - KindNotFound: an unknown session identifier.
//   - KindMediaRead: an unreadable or unsupported video or audio stream.
//   - KindModel: a transcription or answer engine failure.
//   - KindInternal: anything else (disk, configuration, programming errors).
package model

import (
	"errors"
	"fmt"
)

// ErrorKind tags an error with the category the request boundary needs in
// order to choose a response status.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindMediaRead
	KindModel
)

// String returns the wire name of the kind, used in error response bodies.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindMediaRead:
		return "media_read"
	case KindModel:
		return "model"
	default:
		return "internal"
	}
}

// Error is the typed error carried through workflows.
type Error struct {
	Kind ErrorKind // The category of the failure.
	Op   string    // The operation or command that failed, e.g. "video-info".
	Err  error     // The underlying cause.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *model.Error found in err's chain,
// or KindInternal when err carries no kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Cause returns the innermost message for a typed error, dropping the
// operation prefix. It is used when the boundary embeds a failure
// description in a response body.
func Cause(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func newError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewValidationError reports input the caller must fix.
func NewValidationError(op string, format string, args ...any) error {
	return newError(KindValidation, op, fmt.Errorf(format, args...))
}

// NewNotFoundError reports a lookup miss.
func NewNotFoundError(op string, format string, args ...any) error {
	return newError(KindNotFound, op, fmt.Errorf(format, args...))
}

// NewMediaReadError wraps a failure to read or decode media.
func NewMediaReadError(op string, err error) error {
	return newError(KindMediaRead, op, err)
}

// NewModelError wraps a failure of an external model collaborator.
func NewModelError(op string, err error) error {
	return newError(KindModel, op, err)
}

// NewInternalError wraps any other failure.
func NewInternalError(op string, err error) error {
	return newError(KindInternal, op, err)
}
