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

package verify_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/trace"
	"github.com/compymac/agentcore/internal/verify"
)

func newStoreAndTodos(t *testing.T) (*trace.Store, *todo.Manager) {
	t.Helper()
	dir := t.TempDir()
	store, err := trace.Open(filepath.Join(dir, "trace.db"), filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	_, err = store.CreateSession(context.Background(), "s1", "goal", dir, "VERIFY", "explore")
	require.NoError(t, err)

	lookup := func(sessionID, artifactID, eventRef string) bool { return sessionID == "s1" }
	todos := todo.NewManager("s1", lookup)
	return store, todos
}

func TestRegexMatchesCriterionVerifiesWhenEvidenceMatches(t *testing.T) {
	store, todos := newStoreAndTodos(t)
	ctx := context.Background()

	artifactID, err := store.PutArtifact([]byte("PASS: all 12 tests"))
	require.NoError(t, err)

	item, err := todos.Create(todo.ActorAgent, "run the suite", []todo.Criterion{
		{Text: "suite output says PASS", Kind: todo.CriterionRegexMatches, Pattern: "^PASS"},
	})
	require.NoError(t, err)
	_, err = todos.Start(todo.ActorAgent, item.ID)
	require.NoError(t, err)
	_, err = todos.Claim(todo.ActorAgent, item.ID, []todo.Evidence{
		{CriterionIndex: 0, ArtifactID: artifactID, EventRef: "evt-1"},
	})
	require.NoError(t, err)

	h := verify.New(store, todos, store.GetArtifact)
	promoted, err := h.RunOnce(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, promoted)

	got, err := todos.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusVerified, got.Status)
}

func TestRegexMismatchRejectsBackToInProgress(t *testing.T) {
	store, todos := newStoreAndTodos(t)
	ctx := context.Background()

	artifactID, err := store.PutArtifact([]byte("FAIL: 2 tests failed"))
	require.NoError(t, err)

	item, err := todos.Create(todo.ActorAgent, "run the suite", []todo.Criterion{
		{Text: "suite output says PASS", Kind: todo.CriterionRegexMatches, Pattern: "^PASS"},
	})
	require.NoError(t, err)
	_, err = todos.Start(todo.ActorAgent, item.ID)
	require.NoError(t, err)
	_, err = todos.Claim(todo.ActorAgent, item.ID, []todo.Evidence{
		{CriterionIndex: 0, ArtifactID: artifactID, EventRef: "evt-1"},
	})
	require.NoError(t, err)

	h := verify.New(store, todos, store.GetArtifact)
	promoted, err := h.RunOnce(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, promoted)

	got, err := todos.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusInProgress, got.Status)
	assert.NotEmpty(t, got.RejectionReasons)
}

func TestVerifierCallbackKindFailsClosedWithoutConfiguredCallback(t *testing.T) {
	store, todos := newStoreAndTodos(t)
	ctx := context.Background()

	artifactID, err := store.PutArtifact([]byte("anything"))
	require.NoError(t, err)

	item, err := todos.Create(todo.ActorAgent, "custom check", []todo.Criterion{
		{Text: "passes a bespoke check", Kind: todo.CriterionVerifierCallback},
	})
	require.NoError(t, err)
	_, err = todos.Start(todo.ActorAgent, item.ID)
	require.NoError(t, err)
	_, err = todos.Claim(todo.ActorAgent, item.ID, []todo.Evidence{
		{CriterionIndex: 0, ArtifactID: artifactID, EventRef: "evt-1"},
	})
	require.NoError(t, err)

	h := verify.New(store, todos, store.GetArtifact)
	promoted, err := h.RunOnce(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, promoted)

	got, err := todos.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusInProgress, got.Status)
}

func TestVerifierCallbackKindUsesConfiguredCallback(t *testing.T) {
	store, todos := newStoreAndTodos(t)
	ctx := context.Background()

	artifactID, err := store.PutArtifact([]byte("anything"))
	require.NoError(t, err)

	item, err := todos.Create(todo.ActorAgent, "custom check", []todo.Criterion{
		{Text: "passes a bespoke check", Kind: todo.CriterionVerifierCallback},
	})
	require.NoError(t, err)
	_, err = todos.Start(todo.ActorAgent, item.ID)
	require.NoError(t, err)
	_, err = todos.Claim(todo.ActorAgent, item.ID, []todo.Evidence{
		{CriterionIndex: 0, ArtifactID: artifactID, EventRef: "evt-1"},
	})
	require.NoError(t, err)

	called := false
	h := verify.New(store, todos, store.GetArtifact, verify.WithCallback(
		func(ctx context.Context, criterion todo.Criterion, evidence todo.Evidence) error {
			called = true
			return nil
		}))
	promoted, err := h.RunOnce(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{item.ID}, promoted)
}

func TestRunOnceIgnoresTodosNotInClaimedState(t *testing.T) {
	store, todos := newStoreAndTodos(t)
	ctx := context.Background()

	_, err := todos.Create(todo.ActorAgent, "not yet claimed", []todo.Criterion{
		{Text: "anything", Kind: todo.CriterionVerifierCallback},
	})
	require.NoError(t, err)

	h := verify.New(store, todos, store.GetArtifact)
	promoted, err := h.RunOnce(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, promoted)
}

func TestFileExistsCriterionFailsWhenArtifactReaderErrors(t *testing.T) {
	store, todos := newStoreAndTodos(t)
	ctx := context.Background()

	artifactID, err := store.PutArtifact([]byte("contents"))
	require.NoError(t, err)

	item, err := todos.Create(todo.ActorAgent, "wrote the file", []todo.Criterion{
		{Text: "output file exists", Kind: todo.CriterionFileExists, Path: "out.txt"},
	})
	require.NoError(t, err)
	_, err = todos.Start(todo.ActorAgent, item.ID)
	require.NoError(t, err)
	_, err = todos.Claim(todo.ActorAgent, item.ID, []todo.Evidence{
		{CriterionIndex: 0, ArtifactID: artifactID, EventRef: "evt-1"},
	})
	require.NoError(t, err)

	failingReader := func(id string) ([]byte, error) { return nil, errors.New("not found") }
	h := verify.New(store, todos, failingReader)
	promoted, err := h.RunOnce(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, promoted)
}
