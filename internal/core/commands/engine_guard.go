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
// command that stops the upload chain when a required model is not loaded.
// It runs after validation, so malformed uploads are still reported as
// client errors.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// EngineGuard records a model error for an engine that is not loaded.
type EngineGuard struct {
	cor.BaseCommand
	engine string
}

// NewEngineGuard is the constructor for the EngineGuard command. engine names
// the missing engine in the error.
func NewEngineGuard(name string, engine string) *EngineGuard {
	return &EngineGuard{BaseCommand: *cor.NewBaseCommand(name), engine: engine}
}

// IsExecutable only requires a live request context.
func (g *EngineGuard) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute always fails the chain.
func (g *EngineGuard) Execute(context cor.Context) {
	g.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(g.GetName(), model.NewModelError(g.GetName(), fmt.Errorf("%s engine is not loaded", g.engine)))
}
