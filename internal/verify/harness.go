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

// Package verify implements the Verification Harness (spec §4.8): the
// sole authority that may promote a todo to verified. It is deliberately
// independent of the agent loop — its own logger, its own process of
// re-evaluating acceptance criteria against bound evidence — so that it
// cannot inherit the agent's context and rubber-stamp its own claims.
package verify

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/trace"
)

// ArtifactReader resolves a criterion's bound evidence to an
// artifact's bytes, so file-backed kinds (test-passes output,
// regex-matches) can inspect what the agent actually captured rather
// than trusting its description of it.
type ArtifactReader func(artifactID string) ([]byte, error)

// VerifierCallback is the escape hatch for criteria whose kind is
// verifier-callback: a caller-supplied predicate outside the four
// mechanical kinds (spec §3's "verifier-callback" criterion kind).
type VerifierCallback func(ctx context.Context, criterion todo.Criterion, evidence todo.Evidence) error

// Harness re-evaluates claimed todos and writes the session's sole
// verified/rejected transitions. One Harness instance is stateless
// across todos: each RunOnce call starts from nothing but the todo's
// recorded evidence, by design.
type Harness struct {
	store      *trace.Store
	todos      *todo.Manager
	readArtifact ArtifactReader
	callback   VerifierCallback
	logger     hclog.Logger
	runCmd     func(ctx context.Context, command string) error
}

// Option configures a Harness.
type Option func(*Harness)

// WithCallback installs the verifier-callback evaluator for
// verifier-callback criteria. Without one, that kind always fails
// closed (spec invariant (d): every criterion must be independently
// evaluated true, never assumed).
func WithCallback(cb VerifierCallback) Option {
	return func(h *Harness) { h.callback = cb }
}

// WithLogger overrides the default hclog logger.
func WithLogger(l hclog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New builds a Harness bound to a session's trace store and todo
// manager.
func New(store *trace.Store, todos *todo.Manager, readArtifact ArtifactReader, opts ...Option) *Harness {
	h := &Harness{
		store:        store,
		todos:        todos,
		readArtifact: readArtifact,
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "verify",
			Level: hclog.Info,
		}),
		runCmd: runShell,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RunOnce re-evaluates every todo currently in claimed state for a
// session (spec §4.8's "picks up todos in claimed state"), writing
// verified or the in_progress rollback with rejection reasons for each.
// Returns the ids that were promoted to verified.
func (h *Harness) RunOnce(ctx context.Context, sessionID string) ([]string, error) {
	var promoted []string
	for _, item := range h.todos.List() {
		if item.Status != todo.StatusClaimed {
			continue
		}

		h.logger.Info("evaluating claimed todo", "session", sessionID, "todo", item.ID)

		result, err := h.todos.Verify(todo.ActorVerifier, item.ID, h.predicate(ctx))
		if err != nil {
			return promoted, fmt.Errorf("verify: %s: %w", item.ID, err)
		}

		payload := map[string]any{
			"todo_id": result.ID,
			"status":  string(result.Status),
		}
		if len(result.RejectionReasons) > 0 {
			payload["reasons"] = result.RejectionReasons
		}
		if _, err := h.store.AppendEvent(ctx, sessionID, trace.KindStateTransition, payload, "", ""); err != nil {
			return promoted, fmt.Errorf("verify: record transition for %s: %w", item.ID, err)
		}

		if result.Status == todo.StatusVerified {
			promoted = append(promoted, result.ID)
			h.logger.Info("todo verified", "session", sessionID, "todo", item.ID)
		} else {
			h.logger.Warn("todo rejected", "session", sessionID, "todo", item.ID, "reasons", result.RejectionReasons)
		}
	}
	return promoted, nil
}

// predicate adapts the Harness's per-kind evaluators into the
// todo.PredicateFunc shape the state machine calls back into.
func (h *Harness) predicate(ctx context.Context) todo.PredicateFunc {
	return func(criterion todo.Criterion, evidence todo.Evidence) error {
		switch criterion.Kind {
		case todo.CriterionCommandExitZero, todo.CriterionTestPasses:
			return h.runCmd(ctx, criterion.Command)
		case todo.CriterionFileExists:
			if h.readArtifact == nil {
				return fmt.Errorf("no artifact reader configured")
			}
			if _, err := h.readArtifact(evidence.ArtifactID); err != nil {
				return fmt.Errorf("file-exists: %s: %w", criterion.Path, err)
			}
			return nil
		case todo.CriterionRegexMatches:
			if h.readArtifact == nil {
				return fmt.Errorf("no artifact reader configured")
			}
			data, err := h.readArtifact(evidence.ArtifactID)
			if err != nil {
				return fmt.Errorf("regex-matches: %w", err)
			}
			re, err := regexp.Compile(criterion.Pattern)
			if err != nil {
				return fmt.Errorf("regex-matches: invalid pattern %q: %w", criterion.Pattern, err)
			}
			if !re.Match(data) {
				return fmt.Errorf("regex-matches: pattern %q not found in evidence", criterion.Pattern)
			}
			return nil
		case todo.CriterionVerifierCallback:
			if h.callback == nil {
				return fmt.Errorf("verifier-callback: no callback configured")
			}
			return h.callback(ctx, criterion, evidence)
		default:
			return fmt.Errorf("unknown criterion kind %q", criterion.Kind)
		}
	}
}

// runShell executes command and fails if it does not exit zero,
// serving both command-exit-zero and test-passes kinds (a test suite
// invocation is, mechanically, just a command expected to exit zero).
func runShell(ctx context.Context, command string) error {
	if command == "" {
		return fmt.Errorf("empty command")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q: %w", command, err)
	}
	return nil
}
