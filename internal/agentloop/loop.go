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

// Package agentloop drives the LLM turn-by-turn until completion, pause
// or failure (spec §4.6). It is the conductor tying together the tool
// mask (internal/toolkit), the phase mask and budgets
// (internal/phase), the todo state machine (internal/todo), the rollout
// orchestrator (internal/rollout) and the trace store
// (internal/trace).
package agentloop

import (
	"log/slog"

	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/rollout"
	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

// Outcome reports what happened after a turn or a full Run.
type Outcome string

const (
	OutcomeContinue  Outcome = "continue"
	OutcomeCompleted Outcome = "completed"
	OutcomePaused    Outcome = "paused"
	OutcomeFailed    Outcome = "failed"
)

// stuckWindow is k from spec §4.6's stuckness detection.
const stuckWindow = 6

// PromptBuilder renders the mode- and phase-specific system prompt for a
// turn. The session package supplies the concrete implementation; the
// loop stays agnostic of prompt text.
type PromptBuilder func(mode string, ph phase.Name, todos []*todo.Item) string

// Loop drives one session's turns.
type Loop struct {
	Store        *trace.Store
	Registry     *toolkit.Registry
	Orchestrator *rollout.Orchestrator
	Phase        *phase.Controller
	Todos        *todo.Manager
	Provider     llmprovider.Provider
	SessionID    string
	BuildPrompt  PromptBuilder
	Logger       *slog.Logger

	// Mode is the current toolkit mask mode. menu_enter/menu_exit mutate
	// it but the change only takes effect on the NEXT call to RunTurn,
	// since the effective tool set for the in-flight turn was already
	// computed (spec §4.2).
	Mode string

	// BaseMode is what menu_exit returns to.
	BaseMode string

	history            []llmprovider.Message
	window             [][]string // ring buffer of per-turn call fingerprints, most recent last
	noNovel            int
	degraded           bool
	lastRejectionCount int
}

// New builds a Loop starting in toolkit mode startMode.
func New(
	store *trace.Store,
	registry *toolkit.Registry,
	orchestrator *rollout.Orchestrator,
	phaseCtl *phase.Controller,
	todos *todo.Manager,
	provider llmprovider.Provider,
	sessionID string,
	startMode string,
	buildPrompt PromptBuilder,
	logger *slog.Logger,
) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		Store:        store,
		Registry:     registry,
		Orchestrator: orchestrator,
		Phase:        phaseCtl,
		Todos:        todos,
		Provider:     provider,
		SessionID:    sessionID,
		Mode:         startMode,
		BaseMode:     startMode,
		BuildPrompt:  buildPrompt,
		Logger:       logger,
	}
}

// Degraded reports whether any rollout batch had to detach a worker.
func (l *Loop) Degraded() bool { return l.degraded }
