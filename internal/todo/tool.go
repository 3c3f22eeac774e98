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

package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/compymac/agentcore/internal/toolkit"
)

type criterionArg struct {
	Text    string `json:"text" jsonschema:"required,description=human-readable statement of what must be true"`
	Kind    string `json:"kind" jsonschema:"required,description=one of command-exit-zero|file-exists|test-passes|regex-matches|verifier-callback"`
	Command string `json:"command,omitempty" jsonschema:"description=shell command to run, for command-exit-zero and test-passes kinds"`
	Path    string `json:"path,omitempty" jsonschema:"description=filesystem path, for file-exists"`
	Pattern string `json:"pattern,omitempty" jsonschema:"description=regular expression, for regex-matches"`
}

type createArgs struct {
	Title              string         `json:"title" jsonschema:"required,description=short description of the task"`
	AcceptanceCriteria []criterionArg `json:"acceptance_criteria" jsonschema:"required,description=non-empty list of machine-checkable criteria that must each be bound to evidence before verification,minItems=1"`
}

type idArgs struct {
	ID string `json:"id" jsonschema:"required,description=todo identifier"`
}

type evidenceRef struct {
	CriterionIndex int    `json:"criterion_index" jsonschema:"required,description=index into the todo's acceptance_criteria"`
	ArtifactID     string `json:"artifact_id" jsonschema:"required,description=content-addressed artifact id recorded in this session"`
	EventRef       string `json:"event_ref" jsonschema:"required,description=trace event reference supporting this criterion"`
}

type claimArgs struct {
	ID       string        `json:"id" jsonschema:"required,description=todo identifier"`
	Evidence []evidenceRef `json:"evidence" jsonschema:"required,description=one binding per acceptance criterion,minItems=1"`
}

// Tools returns the five agent-callable todo_* tools bound to this
// manager: todo_create, todo_start, todo_claim, todo_list and todo_get.
// todo_verify is intentionally absent here; it is wired directly by the
// Verification Harness, never exposed to the agent's tool catalog (spec
// §4.3 invariant (b)).
func (m *Manager) Tools() ([]toolkit.Tool, error) {
	create, err := toolkit.NewTyped(
		"todo_create",
		"Create a new todo with acceptance criteria. Returns its id.",
		toolkit.SideEffectMutating,
		[]toolkit.Category{toolkit.CategoryTodo},
		5*time.Second,
		nil,
		func(ctx context.Context, a createArgs) (map[string]any, error) {
			criteria := make([]Criterion, len(a.AcceptanceCriteria))
			for i, c := range a.AcceptanceCriteria {
				criteria[i] = Criterion{
					Text:    c.Text,
					Kind:    CriterionKind(c.Kind),
					Command: c.Command,
					Path:    c.Path,
					Pattern: c.Pattern,
				}
			}
			item, err := m.Create(ActorAgent, a.Title, criteria)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": item.ID, "status": string(item.Status)}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("todo: build todo_create: %w", err)
	}

	start, err := toolkit.NewTyped(
		"todo_start",
		"Mark a pending todo in_progress.",
		toolkit.SideEffectMutating,
		[]toolkit.Category{toolkit.CategoryTodo},
		5*time.Second,
		nil,
		func(ctx context.Context, a idArgs) (map[string]any, error) {
			item, err := m.Start(ActorAgent, a.ID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": item.ID, "status": string(item.Status)}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("todo: build todo_start: %w", err)
	}

	claim, err := toolkit.NewTyped(
		"todo_claim",
		"Claim an in_progress todo as done, binding evidence to each acceptance criterion.",
		toolkit.SideEffectMutating,
		[]toolkit.Category{toolkit.CategoryTodo},
		5*time.Second,
		nil,
		func(ctx context.Context, a claimArgs) (map[string]any, error) {
			evidence := make([]Evidence, len(a.Evidence))
			for i, e := range a.Evidence {
				evidence[i] = Evidence{
					CriterionIndex: e.CriterionIndex,
					ArtifactID:     e.ArtifactID,
					EventRef:       e.EventRef,
				}
			}
			item, err := m.Claim(ActorAgent, a.ID, evidence)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": item.ID, "status": string(item.Status)}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("todo: build todo_claim: %w", err)
	}

	list, err := toolkit.NewTyped(
		"todo_list",
		"List every todo in this session with its current status.",
		toolkit.SideEffectPure,
		[]toolkit.Category{toolkit.CategoryTodo},
		5*time.Second,
		nil,
		func(ctx context.Context, a struct{}) (map[string]any, error) {
			items := m.List()
			out := make([]map[string]any, len(items))
			for i, item := range items {
				out[i] = map[string]any{"id": item.ID, "title": item.Title, "status": string(item.Status)}
			}
			return map[string]any{"todos": out}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("todo: build todo_list: %w", err)
	}

	get, err := toolkit.NewTyped(
		"todo_get",
		"Fetch one todo's full state, including bound evidence and any rejection reasons.",
		toolkit.SideEffectPure,
		[]toolkit.Category{toolkit.CategoryTodo},
		5*time.Second,
		nil,
		func(ctx context.Context, a idArgs) (map[string]any, error) {
			item, err := m.Get(a.ID)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"id":                item.ID,
				"title":             item.Title,
				"status":            string(item.Status),
				"rejection_reasons": item.RejectionReasons,
			}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("todo: build todo_get: %w", err)
	}

	return []toolkit.Tool{create, start, claim, list, get}, nil
}
