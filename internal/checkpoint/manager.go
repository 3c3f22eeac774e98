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

// Package checkpoint implements pause/resume, fork and replay (spec
// §4.7) on top of the content-addressed snapshot artifacts the trace
// store already knows how to write. A checkpoint is just another
// artifact; what makes this package special is restoring a Loop's
// in-memory state from one and maintaining the session-lineage edge a
// fork records.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/compymac/agentcore/internal/agentloop"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/trace"
)

// Manager writes and restores checkpoints against a trace store.
type Manager struct {
	store *trace.Store
}

// New builds a Manager bound to a trace store.
func New(store *trace.Store) *Manager {
	return &Manager{store: store}
}

// Pause snapshots the loop's state, writes it as a checkpoint artifact,
// and transitions the session's manifest to paused. Called at the next
// turn boundary after a pause signal (spec §4.7's pause operation).
func (m *Manager) Pause(ctx context.Context, sessionID string, loop *agentloop.Loop) (string, error) {
	snap := loop.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("checkpoint: marshal snapshot: %w", err)
	}
	artifactID, err := m.store.WriteCheckpoint(ctx, sessionID, data)
	if err != nil {
		return "", err
	}
	if err := m.store.UpdateSessionState(ctx, sessionID, string(snap.Phase), snap.Mode, "paused"); err != nil {
		return "", err
	}
	return artifactID, nil
}

// LatestCheckpoint returns the artifact id of the most recently recorded
// checkpoint for a session.
func (m *Manager) LatestCheckpoint(ctx context.Context, sessionID string) (string, error) {
	events, err := m.store.QueryByKind(ctx, sessionID, []trace.Kind{trace.KindCheckpoint}, nil)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", ErrNoCheckpoint
	}
	last := events[len(events)-1]
	artifactID, _ := last.Payload["artifact_id"].(string)
	if artifactID == "" {
		return "", ErrNoCheckpoint
	}
	return artifactID, nil
}

// loadSnapshot fetches and decodes a checkpoint artifact.
func (m *Manager) loadSnapshot(artifactID string) (agentloop.Snapshot, error) {
	data, err := m.store.GetArtifact(artifactID)
	if err != nil {
		return agentloop.Snapshot{}, err
	}
	var snap agentloop.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return agentloop.Snapshot{}, fmt.Errorf("checkpoint: decode snapshot: %w", err)
	}
	return snap, nil
}

// Resume restores loop/phaseCtl/todos from a checkpoint (defaulting to
// the latest) and marks the session running again.
func (m *Manager) Resume(ctx context.Context, sessionID, fromCheckpoint string, loop *agentloop.Loop, phaseCtl *phase.Controller, todos *todo.Manager) error {
	artifactID := fromCheckpoint
	if artifactID == "" {
		var err error
		artifactID, err = m.LatestCheckpoint(ctx, sessionID)
		if err != nil {
			return err
		}
	}

	snap, err := m.loadSnapshot(artifactID)
	if err != nil {
		return err
	}

	loop.Restore(snap)
	phaseCtl.SetPhase(snap.Phase)
	todos.Restore(snap.Todos, snap.RejectionCount)

	return m.store.UpdateSessionState(ctx, sessionID, string(snap.Phase), snap.Mode, "running")
}

// Fork creates a new, independent session seeded from a checkpoint,
// recording a lineage edge to the parent (spec §4.7's fork operation
// and the GLOSSARY's session-fork definition). The forked session gets
// its own trace store rows; callers are responsible for wiring a fresh
// agentloop.Loop/phase.Controller/todo.Manager against the returned
// manifest using the same checkpoint snapshot.
func (m *Manager) Fork(ctx context.Context, parentSessionID, checkpointArtifact, newSessionID string) (*trace.Manifest, agentloop.Snapshot, error) {
	snap, err := m.loadSnapshot(checkpointArtifact)
	if err != nil {
		return nil, agentloop.Snapshot{}, err
	}

	parent, err := m.store.GetSession(ctx, parentSessionID)
	if err != nil {
		return nil, agentloop.Snapshot{}, err
	}

	manifest, err := m.store.CreateSession(ctx, newSessionID, parent.Goal, parent.WorkspaceRoot, string(snap.Phase), snap.Mode)
	if err != nil {
		return nil, agentloop.Snapshot{}, err
	}

	if _, err := m.store.AppendEvent(ctx, newSessionID, trace.KindStateTransition,
		map[string]any{"forked_from": parentSessionID, "checkpoint_artifact": checkpointArtifact}, "", ""); err != nil {
		return nil, agentloop.Snapshot{}, err
	}

	return manifest, snap, nil
}

// Replay recreates a session's conversation and tool outputs by
// re-reading events up to upToSeq, without re-invoking the LLM (spec
// §4.7's replay operation and §8 property 6's determinism guarantee).
func (m *Manager) Replay(ctx context.Context, sessionID string, upToSeq int64) ([]trace.Event, error) {
	return m.store.Iterate(ctx, sessionID, 0, upToSeq)
}
