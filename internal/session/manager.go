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

// Package session wires the Trace Store, Tool Registry, Rollout
// Orchestrator, Phase Controller, Todo Manager, Agent Loop and
// Checkpoint Manager together into one session lifecycle (SPEC_FULL.md
// §4.9), the way the teacher's v2/session/factory.go assembles a
// session's dependent services from configuration. Unlike the teacher's
// SQL-backed chat history service, a CompyMac session's durable state is
// the trace store itself; this package only owns the in-memory registry
// of live sessions on top of it.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/compymac/agentcore/internal/agentloop"
	"github.com/compymac/agentcore/internal/checkpoint"
	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/rollout"
	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

// Session bundles one session's live, in-memory services. The trace
// store and registry are process-wide and shared across sessions; the
// rest are per-session.
type Session struct {
	ID         string
	Phase      *phase.Controller
	Todos      *todo.Manager
	Loop       *agentloop.Loop
	Checkpoint *checkpoint.Manager
}

// Manager owns the process-wide registry of live sessions plus the
// shared Trace Store and Tool Registry they run against, mirroring how
// the teacher's factory assembles a Service from a shared *config.DBPool.
type Manager struct {
	mu       sync.Mutex
	store    *trace.Store
	registry *toolkit.Registry
	workers  int
	live     map[string]*Session
}

// New builds a Manager bound to a shared trace store and tool registry.
// workers bounds the rollout orchestrator's parallel tool dispatch for
// every session this Manager creates.
func New(store *trace.Store, registry *toolkit.Registry, workers int) *Manager {
	return &Manager{
		store:    store,
		registry: registry,
		workers:  workers,
		live:     make(map[string]*Session),
	}
}

// Create starts a brand-new session: a fresh manifest row, Phase
// Controller, Todo Manager, Rollout Orchestrator and Agent Loop, wired
// together and registered as live.
func (m *Manager) Create(ctx context.Context, id, goal, workspaceRoot, startMode string, provider llmprovider.Provider, buildPrompt agentloop.PromptBuilder) (*Session, error) {
	if _, err := m.store.CreateSession(ctx, id, goal, workspaceRoot, string(phase.Localize), startMode); err != nil {
		return nil, fmt.Errorf("session: create manifest: %w", err)
	}

	phaseCtl := phase.New()
	todos := todo.NewManager(id, m.artifactLookup)
	registry, err := m.sessionRegistry(todos, startMode)
	if err != nil {
		return nil, err
	}
	orch := rollout.New(m.store, m.workers)
	loop := agentloop.New(m.store, registry, orch, phaseCtl, todos, provider, id, startMode, buildPrompt, nil)
	cp := checkpoint.New(m.store)

	sess := &Session{ID: id, Phase: phaseCtl, Todos: todos, Loop: loop, Checkpoint: cp}

	m.mu.Lock()
	m.live[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// sessionRegistry derives a per-session tool registry: a copy of the
// shared process-wide registry with this session's own todo_* tools
// added and bound to startMode, since those tools close over a single
// session's Todo Manager and so cannot be registered once under a
// shared name the way builtin tools are.
func (m *Manager) sessionRegistry(todos *todo.Manager, startMode string) (*toolkit.Registry, error) {
	registry := m.registry.Clone()
	tools, err := todos.Tools()
	if err != nil {
		return nil, fmt.Errorf("session: build todo tools: %w", err)
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("session: register todo tool: %w", err)
		}
		if err := registry.AddToMode(startMode, t.Name()); err != nil {
			return nil, fmt.Errorf("session: bind todo tool to mode: %w", err)
		}
	}
	if orphans := registry.CheckCoverage(); len(orphans) > 0 {
		return nil, fmt.Errorf("session: tools registered but not bound to any mode: %v", orphans)
	}
	return registry, nil
}

// Get returns a live session by id, if the process currently holds one.
// A session with a manifest row but no live entry (e.g. after a process
// restart) must be rehydrated via Resume first.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[id]
	return s, ok
}

// List returns every session's durable manifest, optionally filtered by
// status, regardless of whether it is currently live in this process.
func (m *Manager) List(ctx context.Context, status string) ([]*trace.Manifest, error) {
	return m.store.ListSessions(ctx, status)
}

// Resume rehydrates a session from its latest (or a named) checkpoint
// into a fresh, live Phase Controller / Todo Manager / Agent Loop trio
// and registers it as live.
func (m *Manager) Resume(ctx context.Context, id, fromCheckpoint, startMode string, provider llmprovider.Provider, buildPrompt agentloop.PromptBuilder) (*Session, error) {
	manifest, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: resume: %w", err)
	}

	phaseCtl := phase.New()
	todos := todo.NewManager(id, m.artifactLookup)
	registry, err := m.sessionRegistry(todos, startMode)
	if err != nil {
		return nil, err
	}
	orch := rollout.New(m.store, m.workers)
	loop := agentloop.New(m.store, registry, orch, phaseCtl, todos, provider, id, startMode, buildPrompt, nil)
	cp := checkpoint.New(m.store)

	if err := cp.Resume(ctx, id, fromCheckpoint, loop, phaseCtl, todos); err != nil {
		return nil, err
	}
	_ = manifest

	sess := &Session{ID: id, Phase: phaseCtl, Todos: todos, Loop: loop, Checkpoint: cp}

	m.mu.Lock()
	m.live[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// Terminate drops a session's live entry. It does not delete the
// session's durable trace; inspect/replay remain available afterward.
func (m *Manager) Terminate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
}

// artifactLookup backs todo.ArtifactLookup: a claim's evidence is
// legitimate only if the artifact exists at all and the referenced event
// was actually recorded in this session (spec §4.3 invariant (c) — no
// evidence borrowed from another session or fabricated out of band).
func (m *Manager) artifactLookup(sessionID, artifactID, eventRef string) bool {
	if _, err := m.store.GetArtifact(artifactID); err != nil {
		return false
	}
	seq, err := strconv.ParseInt(eventRef, 10, 64)
	if err != nil {
		return false
	}
	events, err := m.store.Iterate(context.Background(), sessionID, seq, seq)
	if err != nil {
		return false
	}
	return len(events) == 1
}
