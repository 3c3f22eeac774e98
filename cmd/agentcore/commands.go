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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compymac/agentcore/internal/agentloop"
	"github.com/compymac/agentcore/internal/checkpoint"
	"github.com/compymac/agentcore/internal/config"
	"github.com/compymac/agentcore/internal/verify"
)

// Every command's Run method takes (ctx, cfg) and returns error, matching
// kong's ctx.Run(bindings...) dispatch (see the teacher's cmd/hector
// ServeCmd.Run(cli *CLI) error): kong resolves each bound value by type
// against the method's parameters. A non-nil, non-exit-code error maps to
// exitInternal in main's exitCodeOf; commands that need a specific spec §6
// exit code wrap it with exitCode(code, err).

// RunCmd starts a brand-new session for a goal and drives it to
// completion, pause, or failure.
type RunCmd struct {
	Goal      string `arg:"" help:"The goal the agent should accomplish."`
	Workspace string `short:"w" help:"Workspace root the agent may read/write." default:"."`
	Mode      string `help:"Starting toolkit mode." default:"swe"`
	MaxTurns  int    `help:"Maximum number of agent-loop turns before giving up." default:"200"`
}

func (c *RunCmd) Run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	defer store.Close()

	mgr, err := buildSessionManager(cfg, store, c.Workspace)
	if err != nil {
		return exitCode(exitInternal, err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return exitCode(exitUserError, err)
	}

	id := newSessionID()
	sess, err := mgr.Create(ctx, id, c.Goal, c.Workspace, c.Mode, provider, defaultPromptBuilder)
	if err != nil {
		return exitCode(exitInternal, err)
	}

	return runToCompletion(ctx, sess.Loop, id, c.MaxTurns)
}

// ResumeCmd rehydrates a paused session from a checkpoint and continues
// driving it.
type ResumeCmd struct {
	SessionID      string `arg:"" help:"Session to resume."`
	FromCheckpoint string `help:"Checkpoint artifact id; empty means the latest." default:""`
	Mode           string `help:"Toolkit mode to resume into." default:"swe"`
	MaxTurns       int    `help:"Maximum number of agent-loop turns before giving up." default:"200"`
}

func (c *ResumeCmd) Run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	defer store.Close()

	manifest, err := store.GetSession(ctx, c.SessionID)
	if err != nil {
		return exitCode(exitUserError, err)
	}

	mgr, err := buildSessionManager(cfg, store, manifest.WorkspaceRoot)
	if err != nil {
		return exitCode(exitInternal, err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return exitCode(exitUserError, err)
	}

	sess, err := mgr.Resume(ctx, c.SessionID, c.FromCheckpoint, c.Mode, provider, defaultPromptBuilder)
	if err != nil {
		return exitCode(exitUserError, err)
	}

	return runToCompletion(ctx, sess.Loop, c.SessionID, c.MaxTurns)
}

// runToCompletion drives the agent loop while a background verification
// harness polls for claimed todos, the same division of labor as spec
// §4.8: the harness is an independent loop, never called directly by the
// agent.
func runToCompletion(ctx context.Context, loop *agentloop.Loop, sessionID string, maxTurns int) error {
	harnessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	harness := verify.New(loop.Store, loop.Todos, loop.Store.GetArtifact)
	go pollVerification(harnessCtx, harness, sessionID)
	go traceMetricsMirror(harnessCtx, loop.Store, metrics, sessionID)

	outcome, err := loop.Run(ctx, maxTurns)
	cancel()

	if err != nil {
		return exitCode(exitInternal, err)
	}

	switch outcome {
	case agentloop.OutcomeCompleted:
		if !loop.Todos.AllVerified() {
			return exitCode(exitVerifierRejected, fmt.Errorf("session %s completed with unverified todos", sessionID))
		}
		return nil
	case agentloop.OutcomePaused:
		fmt.Printf("session %s paused\n", sessionID)
		return nil
	default:
		return exitCode(exitSessionFailed, fmt.Errorf("session %s ended in outcome %s", sessionID, outcome))
	}
}

func pollVerification(ctx context.Context, harness *verify.Harness, sessionID string) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = harness.RunOnce(ctx, sessionID)
		}
	}
}

// PauseCmd checkpoints a live session and marks it paused. It only acts
// on sessions this process currently holds live; a session live in
// another process must be paused there (spec §4.7's pause is a
// checkpoint-and-stop, not a cross-process signal).
type PauseCmd struct {
	SessionID string `arg:"" help:"Session to pause."`
}

func (c *PauseCmd) Run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	defer store.Close()

	manifest, err := store.GetSession(ctx, c.SessionID)
	if err != nil {
		return exitCode(exitUserError, err)
	}

	mgr, err := buildSessionManager(cfg, store, manifest.WorkspaceRoot)
	if err != nil {
		return exitCode(exitInternal, err)
	}

	sess, ok := mgr.Get(c.SessionID)
	if !ok {
		return exitCode(exitUserError, fmt.Errorf("session %s is not live in this process", c.SessionID))
	}

	artifactID, err := sess.Checkpoint.Pause(ctx, c.SessionID, sess.Loop)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	fmt.Printf("checkpoint %s\n", artifactID)
	return nil
}

// ListCmd lists session manifests, optionally filtered by status.
type ListCmd struct {
	Status string `help:"Filter by status (running, paused, interrupted, completed, failed)." default:""`
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	defer store.Close()

	manifests, err := store.ListSessions(ctx, c.Status)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	for _, m := range manifests {
		fmt.Printf("%s\t%s\t%s\t%s\n", m.ID, m.Status, m.Phase, m.Goal)
	}
	return nil
}

// InspectCmd replays a session's recorded trace from a sequence number.
type InspectCmd struct {
	SessionID string `arg:"" help:"Session to inspect."`
	FromSeq   int64  `help:"Sequence number to replay from." default:"0"`
	ToSeq     int64  `help:"Sequence number to replay to; 0 means the latest." default:"0"`
}

func (c *InspectCmd) Run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	defer store.Close()

	events, err := store.Iterate(ctx, c.SessionID, c.FromSeq, c.ToSeq)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	for _, e := range events {
		payload, _ := json.Marshal(e.Payload)
		fmt.Printf("%d\t%s\t%s\n", e.Seq, e.Kind, string(payload))
	}
	return nil
}

// ForkCmd seeds a new session from an existing checkpoint, preserving
// lineage (spec §4.7's fork operation).
type ForkCmd struct {
	ParentSessionID string `arg:"" help:"Session to fork from."`
	CheckpointID    string `arg:"" help:"Checkpoint artifact id to fork from."`
}

func (c *ForkCmd) Run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return exitCode(exitInternal, err)
	}
	defer store.Close()

	cp := checkpoint.New(store)
	manifest, _, err := cp.Fork(ctx, c.ParentSessionID, c.CheckpointID, newSessionID())
	if err != nil {
		return exitCode(exitInternal, err)
	}
	fmt.Printf("forked session %s\n", manifest.ID)
	return nil
}
