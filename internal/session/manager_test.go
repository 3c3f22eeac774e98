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

package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/agentloop"
	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/session"
	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string                             { return s.name }
func (s *stubTool) Description() string                      { return "" }
func (s *stubTool) Schema() map[string]any                   { return nil }
func (s *stubTool) SideEffect() toolkit.SideEffect            { return toolkit.SideEffectReadOnly }
func (s *stubTool) Categories() []toolkit.Category            { return []toolkit.Category{toolkit.CategoryRead} }
func (s *stubTool) ConflictKeys(args map[string]any) []string { return nil }
func (s *stubTool) Deadline() time.Duration                   { return time.Second }
func (s *stubTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := trace.Open(filepath.Join(dir, "trace.db"), filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	registry := toolkit.NewRegistry()
	require.NoError(t, registry.Register(&stubTool{name: "read_file"}))
	require.NoError(t, registry.AddToMode("explore", "read_file"))

	return session.New(store, registry, 2)
}

func buildPrompt(mode string, ph phase.Name, items []*todo.Item) string {
	return "mode=" + mode + " phase=" + string(ph)
}

func TestCreateRegistersALiveSessionWithFreshState(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "s1", "fix the bug", t.TempDir(), "explore", &llmprovider.Fake{}, buildPrompt)
	require.NoError(t, err)
	assert.Equal(t, phase.Localize, sess.Phase.Current())
	assert.Empty(t, sess.Todos.List())

	got, ok := mgr.Get("s1")
	require.True(t, ok)
	assert.Same(t, sess, got)
}

func TestListReturnsManifestsRegardlessOfLiveness(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "s1", "goal", t.TempDir(), "explore", &llmprovider.Fake{}, buildPrompt)
	require.NoError(t, err)
	mgr.Terminate("s1")

	_, ok := mgr.Get("s1")
	assert.False(t, ok)

	manifests, err := mgr.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "s1", manifests[0].ID)
}

func TestResumeRehydratesFromPauseCheckpoint(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "s1", "goal", t.TempDir(), "explore",
		&llmprovider.Fake{Script: []llmprovider.Response{
			{ToolCalls: []llmprovider.ToolCallRequest{{ID: "c1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}}},
		}}, buildPrompt)
	require.NoError(t, err)

	_, err = sess.Loop.RunTurn(ctx)
	require.NoError(t, err)
	require.Equal(t, phase.Understand, sess.Phase.Current())

	artifactID, err := sess.Checkpoint.Pause(ctx, "s1", sess.Loop)
	require.NoError(t, err)
	require.NotEmpty(t, artifactID)
	mgr.Terminate("s1")

	resumed, err := mgr.Resume(ctx, "s1", "", "explore", &llmprovider.Fake{}, buildPrompt)
	require.NoError(t, err)
	assert.Equal(t, phase.Understand, resumed.Phase.Current())

	_, ok := mgr.Get("s1")
	assert.True(t, ok)
}

func TestArtifactLookupRejectsUnknownEventReference(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "s1", "goal", t.TempDir(), "explore", &llmprovider.Fake{}, buildPrompt)
	require.NoError(t, err)

	item, err := sess.Todos.Create(todo.ActorAgent, "do a thing", []todo.Criterion{{Text: "x"}})
	require.NoError(t, err)
	_, err = sess.Todos.Start(todo.ActorAgent, item.ID)
	require.NoError(t, err)

	_, err = sess.Todos.Claim(todo.ActorAgent, item.ID, []todo.Evidence{
		{CriterionIndex: 0, ArtifactID: "fake-artifact", EventRef: "999999"},
	})
	assert.ErrorIs(t, err, todo.ErrForeignEvidence)
}
