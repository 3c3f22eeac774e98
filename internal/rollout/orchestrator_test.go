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

package rollout_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/rollout"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

type fakeTool struct {
	name       string
	conflict   []string
	deadline   time.Duration
	delay      time.Duration
	fail       bool
	blockUntil <-chan struct{}
	calls      *atomic.Int32
}

func (f *fakeTool) Name() string                                   { return f.name }
func (f *fakeTool) Description() string                            { return "" }
func (f *fakeTool) Schema() map[string]any                         { return nil }
func (f *fakeTool) SideEffect() toolkit.SideEffect                  { return toolkit.SideEffectMutating }
func (f *fakeTool) Categories() []toolkit.Category                 { return nil }
func (f *fakeTool) Deadline() time.Duration                        { return f.deadline }
func (f *fakeTool) ConflictKeys(args map[string]any) []string      { return f.conflict }

func (f *fakeTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	if f.blockUntil != nil {
		select {
		case <-f.blockUntil:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, assertErr{}
	}
	return map[string]any{"ok": true}, nil
}

type assertErr struct{}

func (assertErr) Error() string { return "tool failed" }

func newTestStore(t *testing.T) *trace.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := trace.Open(filepath.Join(dir, "trace.db"), filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store })
	_, err = store.CreateSession(context.Background(), "s1", "goal", dir, "explore", "normal")
	require.NoError(t, err)
	return store
}

func TestSingleCallRunsInlineWithoutForkJoin(t *testing.T) {
	store := newTestStore(t)
	orch := rollout.New(store, 4)

	tool := &fakeTool{name: "read_file", deadline: time.Second}
	spec := rollout.CallSpec{Call: toolkit.ToolCall{ID: "c1", Name: "read_file"}, Tool: tool}

	result, err := orch.Run(context.Background(), "s1", "", []rollout.CallSpec{spec}, rollout.ModeWaitAll)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Nil(t, result.Outcomes[0].Err)
}

func TestConflictingCallsAreSerializedAcrossWaves(t *testing.T) {
	store := newTestStore(t)
	orch := rollout.New(store, 4)

	var calls atomic.Int32
	specs := []rollout.CallSpec{
		{Call: toolkit.ToolCall{ID: "a", Name: "write"}, Tool: &fakeTool{name: "write", conflict: []string{"fs:/x"}, deadline: time.Second, calls: &calls}, ConflictKeys: []string{"fs:/x"}},
		{Call: toolkit.ToolCall{ID: "b", Name: "write"}, Tool: &fakeTool{name: "write", conflict: []string{"fs:/x"}, deadline: time.Second, calls: &calls}, ConflictKeys: []string{"fs:/x"}},
	}

	result, err := orch.Run(context.Background(), "s1", "", specs, rollout.ModeWaitAll)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.Nil(t, result.Outcomes[0].Err)
	assert.Nil(t, result.Outcomes[1].Err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIndependentCallsResultsPreserveSubmissionOrder(t *testing.T) {
	store := newTestStore(t)
	orch := rollout.New(store, 4)

	specs := []rollout.CallSpec{
		{Call: toolkit.ToolCall{ID: "slow", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second, delay: 30 * time.Millisecond}},
		{Call: toolkit.ToolCall{ID: "fast", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second}},
	}

	result, err := orch.Run(context.Background(), "s1", "", specs, rollout.ModeWaitAll)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, "slow", result.Outcomes[0].CallID)
	assert.Equal(t, "fast", result.Outcomes[1].CallID)
}

func TestBatchFailsOnlyWhenEveryCallFails(t *testing.T) {
	store := newTestStore(t)
	orch := rollout.New(store, 4)

	specs := []rollout.CallSpec{
		{Call: toolkit.ToolCall{ID: "ok", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second}},
		{Call: toolkit.ToolCall{ID: "bad", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second, fail: true}},
	}

	result, err := orch.Run(context.Background(), "s1", "", specs, rollout.ModeWaitAll)
	require.NoError(t, err)
	assert.False(t, result.AllFailed())

	specs[0].Tool.(*fakeTool).fail = true
	result2, err := orch.Run(context.Background(), "s1", "", specs, rollout.ModeWaitAll)
	require.NoError(t, err)
	assert.True(t, result2.AllFailed())
}

func TestTimeoutProducesTimeoutErrorAndOthersContinue(t *testing.T) {
	store := newTestStore(t)
	orch := rollout.New(store, 4)

	specs := []rollout.CallSpec{
		{Call: toolkit.ToolCall{ID: "slow", Name: "t"}, Tool: &fakeTool{name: "t", deadline: 20 * time.Millisecond, delay: time.Second}},
		{Call: toolkit.ToolCall{ID: "fast", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second}},
	}

	result, err := orch.Run(context.Background(), "s1", "", specs, rollout.ModeWaitAll)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	require.NotNil(t, result.Outcomes[0].Err)
	assert.Equal(t, toolkit.ErrorTimeout, result.Outcomes[0].Err.Category)
	assert.Nil(t, result.Outcomes[1].Err)
}

func TestFirstSuccessModeCancelsRemainingCalls(t *testing.T) {
	store := newTestStore(t)
	orch := rollout.New(store, 4)

	block := make(chan struct{})
	specs := []rollout.CallSpec{
		{Call: toolkit.ToolCall{ID: "winner", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second}},
		{Call: toolkit.ToolCall{ID: "loser", Name: "t"}, Tool: &fakeTool{name: "t", deadline: time.Second, blockUntil: block}},
	}
	defer close(block)

	result, err := orch.Run(context.Background(), "s1", "", specs, rollout.ModeFirstSuccess)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.Nil(t, result.Outcomes[0].Err)
	require.NotNil(t, result.Outcomes[1].Err)
	assert.Equal(t, toolkit.ErrorCancelled, result.Outcomes[1].Err.Category)
}
