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

package toolkit

import (
	"context"
	"time"
)

// TypedFunc is the shape of a tool body once its arguments have been
// decoded into a Go struct.
type TypedFunc[Args any] func(ctx context.Context, args Args) (map[string]any, error)

// typedTool adapts a TypedFunc into the Tool interface, decoding the
// incoming map[string]any into Args via a JSON round-trip before calling
// the typed body. This mirrors the teacher's functiontool package, which
// hands authors a typed signature while the registry keeps dealing in
// maps.
type typedTool[Args any] struct {
	name        string
	description string
	sideEffect  SideEffect
	categories  []Category
	conflictFn  func(Args) []string
	deadline    time.Duration
	schema      map[string]any
	fn          TypedFunc[Args]
}

// NewTyped builds a Tool whose Invoke decodes arguments into Args before
// calling fn, and whose Schema is derived from Args's struct tags via
// GenerateSchema. conflictFn may be nil for tools that never contend for
// exclusive resources.
func NewTyped[Args any](
	name, description string,
	sideEffect SideEffect,
	categories []Category,
	deadline time.Duration,
	conflictFn func(Args) []string,
	fn TypedFunc[Args],
) (Tool, error) {
	schema, err := GenerateSchema[Args]()
	if err != nil {
		return nil, err
	}
	return &typedTool[Args]{
		name:        name,
		description: description,
		sideEffect:  sideEffect,
		categories:  categories,
		conflictFn:  conflictFn,
		deadline:    deadline,
		schema:      schema,
		fn:          fn,
	}, nil
}

func (t *typedTool[Args]) Name() string             { return t.name }
func (t *typedTool[Args]) Description() string      { return t.description }
func (t *typedTool[Args]) Schema() map[string]any   { return t.schema }
func (t *typedTool[Args]) SideEffect() SideEffect   { return t.sideEffect }
func (t *typedTool[Args]) Categories() []Category   { return t.categories }
func (t *typedTool[Args]) Deadline() time.Duration  { return t.deadline }

func (t *typedTool[Args]) ConflictKeys(args map[string]any) []string {
	if t.conflictFn == nil {
		return nil
	}
	decoded, err := DecodeArgs[Args](args)
	if err != nil {
		return nil
	}
	return t.conflictFn(decoded)
}

func (t *typedTool[Args]) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	decoded, err := DecodeArgs[Args](args)
	if err != nil {
		return nil, ErrSchemaViolation(t.name, err)
	}
	return t.fn(ctx, decoded)
}
