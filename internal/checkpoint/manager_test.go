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

package checkpoint_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/agentloop"
	"github.com/compymac/agentcore/internal/checkpoint"
	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/rollout"
	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

type stubTool struct {
	name       string
	categories []toolkit.Category
}

func (s *stubTool) Name() string                             { return s.name }
func (s *stubTool) Description() string                      { return "" }
func (s *stubTool) Schema() map[string]any                   { return nil }
func (s *stubTool) SideEffect() toolkit.SideEffect            { return toolkit.SideEffectReadOnly }
func (s *stubTool) Categories() []toolkit.Category            { return s.categories }
func (s *stubTool) ConflictKeys(args map[string]any) []string { return nil }
func (s *stubTool) Deadline() time.Duration                   { return time.Second }
func (s *stubTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

type harness struct {
	store    *trace.Store
	registry *toolkit.Registry
	orch     *rollout.Orchestrator
	phaseCtl *phase.Controller
	todos    *todo.Manager
	loop     *agentloop.Loop
}

func newHarness(t *testing.T, sessionID string, script []llmprovider.Response) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := trace.Open(filepath.Join(dir, sessionID+".db"), filepath.Join(dir, sessionID+"-blobs"))
	require.NoError(t, err)
	_, err = store.CreateSession(context.Background(), sessionID, "fix the bug", dir, "LOCALIZE", "explore")
	require.NoError(t, err)

	registry := toolkit.NewRegistry()
	readTool := &stubTool{name: "read_file", categories: []toolkit.Category{toolkit.CategoryRead}}
	require.NoError(t, registry.Register(readTool))
	require.NoError(t, registry.AddToMode("explore", "read_file"))

	orch := rollout.New(store, 2)
	phaseCtl := phase.New()
	todos := todo.NewManager(sessionID, nil)
	fake := &llmprovider.Fake{Script: script}

	loop := agentloop.New(store, registry, orch, phaseCtl, todos, fake, sessionID, "explore",
		func(mode string, ph phase.Name, items []*todo.Item) string { return "mode=" + mode + " phase=" + string(ph) },
		nil,
	)
	return &harness{store: store, registry: registry, orch: orch, phaseCtl: phaseCtl, todos: todos, loop: loop}
}

func TestPauseWritesCheckpointAndMarksSessionPaused(t *testing.T) {
	h := newHarness(t, "s1", []llmprovider.Response{
		{ToolCalls: []llmprovider.ToolCallRequest{{ID: "c1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}}},
	})
	ctx := context.Background()

	_, err := h.loop.RunTurn(ctx)
	require.NoError(t, err)

	mgr := checkpoint.New(h.store)
	artifactID, err := mgr.Pause(ctx, "s1", h.loop)
	require.NoError(t, err)
	assert.NotEmpty(t, artifactID)

	manifest, err := h.store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "paused", manifest.Status)

	latest, err := mgr.LatestCheckpoint(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, artifactID, latest)
}

func TestLatestCheckpointFailsWithoutAnyRecorded(t *testing.T) {
	h := newHarness(t, "s1", nil)
	mgr := checkpoint.New(h.store)

	_, err := mgr.LatestCheckpoint(context.Background(), "s1")
	assert.ErrorIs(t, err, checkpoint.ErrNoCheckpoint)
}

func TestResumeRestoresLoopPhaseAndTodosFromCheckpoint(t *testing.T) {
	h := newHarness(t, "s1", []llmprovider.Response{
		{ToolCalls: []llmprovider.ToolCallRequest{{ID: "c1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}}},
	})
	ctx := context.Background()

	_, err := h.loop.RunTurn(ctx)
	require.NoError(t, err)
	require.Equal(t, phase.Understand, h.phaseCtl.Current())

	_, err = h.todos.Create(todo.ActorAgent, "fix the thing", []todo.Criterion{{Text: "tests pass"}})
	require.NoError(t, err)

	mgr := checkpoint.New(h.store)
	artifactID, err := mgr.Pause(ctx, "s1", h.loop)
	require.NoError(t, err)

	// Build a fresh loop/phase/todos trio as a resuming session would,
	// and restore them from the checkpoint just written.
	freshPhase := phase.New()
	freshTodos := todo.NewManager("s1", nil)
	freshLoop := agentloop.New(h.store, h.registry, h.orch, freshPhase, freshTodos,
		&llmprovider.Fake{Script: nil}, "s1", "explore",
		func(mode string, ph phase.Name, items []*todo.Item) string { return "" }, nil)

	require.NoError(t, mgr.Resume(ctx, "s1", artifactID, freshLoop, freshPhase, freshTodos))

	assert.Equal(t, phase.Understand, freshPhase.Current())
	assert.Len(t, freshTodos.List(), 1)

	manifest, err := h.store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "running", manifest.Status)
}

func TestResumeDefaultsToLatestCheckpointWhenNoneSpecified(t *testing.T) {
	h := newHarness(t, "s1", nil)
	ctx := context.Background()

	mgr := checkpoint.New(h.store)
	artifactID, err := mgr.Pause(ctx, "s1", h.loop)
	require.NoError(t, err)

	freshPhase := phase.New()
	freshTodos := todo.NewManager("s1", nil)
	freshLoop := agentloop.New(h.store, h.registry, h.orch, freshPhase, freshTodos,
		&llmprovider.Fake{Script: nil}, "s1", "explore",
		func(mode string, ph phase.Name, items []*todo.Item) string { return "" }, nil)

	require.NoError(t, mgr.Resume(ctx, "s1", "", freshLoop, freshPhase, freshTodos))
	assert.Equal(t, phase.Localize, freshPhase.Current())
	_ = artifactID
}

func TestForkSeedsNewSessionAndRecordsLineageEdge(t *testing.T) {
	h := newHarness(t, "s1", nil)
	ctx := context.Background()

	mgr := checkpoint.New(h.store)
	artifactID, err := mgr.Pause(ctx, "s1", h.loop)
	require.NoError(t, err)

	forkedManifest, snap, err := mgr.Fork(ctx, "s1", artifactID, "s1-fork")
	require.NoError(t, err)
	assert.Equal(t, "s1-fork", forkedManifest.ID)
	assert.Equal(t, "fix the bug", forkedManifest.Goal)
	assert.Equal(t, phase.Localize, snap.Phase)

	events, err := h.store.Iterate(ctx, "s1-fork", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, trace.KindStateTransition, events[0].Kind)
	assert.Equal(t, "s1", events[0].Payload["forked_from"])
	assert.Equal(t, artifactID, events[0].Payload["checkpoint_artifact"])
}

func TestReplayReturnsEventsUpToSequenceWithoutInvokingProvider(t *testing.T) {
	h := newHarness(t, "s1", []llmprovider.Response{
		{ToolCalls: []llmprovider.ToolCallRequest{{ID: "c1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}}},
	})
	ctx := context.Background()

	_, err := h.loop.RunTurn(ctx)
	require.NoError(t, err)

	all, err := h.store.Iterate(ctx, "s1", 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	mgr := checkpoint.New(h.store)
	replayed, err := mgr.Replay(ctx, "s1", all[len(all)-1].Seq)
	require.NoError(t, err)
	assert.Equal(t, len(all), len(replayed))
}
