// Copyright 2025 CompyMac
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toolkit is the single source of truth for which operations the
// LLM may request and in which modes (spec §4.2). It is deliberately a
// static registry keyed by name rather than a reflection-based dispatcher
// (spec §9's "dynamic runtime reflection" re-architecture note): unknown
// names become ToolMasked errors, never a runtime lookup failure.
package toolkit

import (
	"context"
	"time"
)

// SideEffect classifies the observable consequence of invoking a tool.
type SideEffect string

const (
	SideEffectPure        SideEffect = "pure"
	SideEffectReadOnly    SideEffect = "read-only"
	SideEffectMutating    SideEffect = "mutating"
	SideEffectDestructive SideEffect = "destructive"
)

// Category buckets tools for phase-mask purposes (spec §4.5's "allowed
// categories" column). A tool may belong to more than one category (e.g.
// a read-only bash wrapper is both "bash" and "read").
type Category string

const (
	CategoryRead       Category = "read"
	CategoryWrite      Category = "write"
	CategoryEdit       Category = "edit"
	CategorySearch     Category = "search"
	CategoryGlob       Category = "glob"
	CategoryBashRead   Category = "bash-read"
	CategoryBash       Category = "bash"
	CategoryBashTest   Category = "bash-test"
	CategoryThink      Category = "think"
	CategoryComplete   Category = "complete"
	// CategoryTodo marks the todo_* tools (create/start/claim/list/get):
	// spec §4.3's todo lifecycle is agent-driven throughout LOCALIZE..
	// REGRESSION_CHECK, not just once VERIFY is reached, so this category
	// is part of every phase's allowed set (see internal/phase.phase.go),
	// unlike the other categories here which are phase-specific.
	CategoryTodo Category = "todo"
)

// ToolCall represents an LLM's request to invoke a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult represents the outcome of a tool invocation recorded into the
// conversation history fed back to the LLM.
type ToolResult struct {
	ToolCallID string
	Content    string
	Err        *Error
	Metadata   map[string]any
}

// Tool is the base interface every registry entry implements.
type Tool interface {
	// Name is the unique, stable name the LLM calls this tool by.
	Name() string

	// Description is surfaced to the LLM in the tool catalog.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters, or nil if
	// the tool takes none.
	Schema() map[string]any

	// SideEffect classifies this tool for logging/policy purposes.
	SideEffect() SideEffect

	// Categories lists the phase-mask categories this tool belongs to.
	Categories() []Category

	// ConflictKeys returns the exclusive resource keys this invocation
	// would acquire, derived from its arguments (e.g. "fs:/path/to/file",
	// "net:api.example.com", "browser:tab-3"). Two calls conflict iff
	// their key sets intersect (spec §4.2/§4.4).
	ConflictKeys(args map[string]any) []string

	// Deadline is the default timeout applied by the Rollout Orchestrator
	// unless overridden per call. Zero means the orchestrator's global
	// default (60s, spec §4.4) applies.
	Deadline() time.Duration

	// Invoke executes the tool. Implementations must be cancellable via
	// ctx, must not mutate args, and must return within Deadline().
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}
