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

package agentloop

import (
	"context"

	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/trace"
)

// advancePhase implements spec §4.5's transition rule as part of the
// per-turn procedure: a transition fires the moment the current phase's
// exit criteria are satisfied, rather than waiting on a dedicated
// LLM-invoked tool. There is nothing resembling "propose a phase
// transition" in the tool catalog (spec §4.6's nine numbered steps name
// no such call either), so the loop itself is the only actor in a
// position to notice the criteria became true and a forward move to
// attempt.
//
// The single VERIFY -> FIX back-edge is driven the same way: the
// Verification Harness runs out-of-band from the loop (it is "external
// to the agent" per spec §4.8) and can only demote a todo's status, not
// reach into the Phase Controller. RejectionCount lets the loop detect
// that a demotion happened since the phase was last (re-)entered and
// take the back-edge on its own next turn.
//
// A transition attempt that does not yet qualify is not an error
// condition here: CheckCall already rejects any tool call outside the
// current phase's mask with a structured error on the turn it is tried
// (spec §4.5's "otherwise the LLM receives a structured error"), so
// advancePhase only needs to move forward silently when it can.
func (l *Loop) advancePhase(ctx context.Context) error {
	current := l.Phase.Current()

	if current == phase.Verify {
		if rejections := l.Todos.RejectionCount(); rejections > l.lastRejectionCount {
			l.lastRejectionCount = rejections
			if err := l.Phase.Transition(phase.Fix); err != nil {
				return nil
			}
			return l.recordPhaseTransition(ctx, current, phase.Fix)
		}
	}

	next, ok := phase.Next(current)
	if !ok {
		return nil
	}
	if err := l.Phase.Transition(next); err != nil {
		return nil
	}
	return l.recordPhaseTransition(ctx, current, next)
}

// recordPhaseTransition appends an unambiguous record of a fired phase
// transition. KindStateTransition is also used by complete() ("to":
// "completed", no "from") and by the Verification Harness (a "todo_id"/
// "status" pair, no "to" at all); the "phase_transition" marker lets a
// reader (or a trace mirror) tell these apart without guessing from
// shape alone.
func (l *Loop) recordPhaseTransition(ctx context.Context, from, to phase.Name) error {
	_, err := l.Store.AppendEvent(ctx, l.SessionID, trace.KindStateTransition, map[string]any{
		"phase_transition": true,
		"from":             string(from),
		"to":               string(to),
	}, "", "")
	return err
}
