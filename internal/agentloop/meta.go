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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

// handleMeta executes one of the six always-available meta tools. It
// returns the structured result to feed back to the LLM plus the
// resulting Outcome — only "complete" can move the loop out of
// OutcomeContinue.
func (l *Loop) handleMeta(ctx context.Context, tc llmprovider.ToolCallRequest) (toolkit.ToolResult, Outcome) {
	switch tc.Name {
	case "think":
		if err := l.Phase.CheckCall([]toolkit.Category{toolkit.CategoryThink}); err != nil {
			return toolkit.ToolResult{ToolCallID: tc.ID, Err: &toolkit.Error{
				Category: toolkit.ErrorSchemaViolation, Message: err.Error(), Recoverable: true,
			}}, OutcomeContinue
		}
		l.Phase.RecordCall([]toolkit.Category{toolkit.CategoryThink})
		return toolkit.ToolResult{ToolCallID: tc.ID, Content: "acknowledged"}, OutcomeContinue

	case "complete":
		if unmet := l.unmetCompletionPreconditions(); len(unmet) > 0 {
			data, _ := json.Marshal(unmet)
			return toolkit.ToolResult{ToolCallID: tc.ID, Err: &toolkit.Error{
				Category:    toolkit.ErrorSchemaViolation,
				Message:     fmt.Sprintf("session is not complete: %s", string(data)),
				Recoverable: true,
				Hint:        "resolve every listed precondition, then call complete again",
			}}, OutcomeContinue
		}
		if _, err := l.Store.AppendEvent(ctx, l.SessionID, trace.KindStateTransition, map[string]any{"to": "completed"}, "", ""); err != nil {
			return toolkit.ToolResult{ToolCallID: tc.ID, Err: &toolkit.Error{Category: toolkit.ErrorToolException, Message: err.Error()}}, OutcomeFailed
		}
		return toolkit.ToolResult{ToolCallID: tc.ID, Content: "completed"}, OutcomeCompleted

	case "message_user":
		message, _ := tc.Arguments["message"].(string)
		if _, err := l.Store.AppendEvent(ctx, l.SessionID, trace.KindHumanInput, map[string]any{"message": message}, "", ""); err != nil {
			return toolkit.ToolResult{ToolCallID: tc.ID, Err: &toolkit.Error{Category: toolkit.ErrorToolException, Message: err.Error()}}, OutcomeContinue
		}
		return toolkit.ToolResult{ToolCallID: tc.ID, Content: "delivered"}, OutcomeContinue

	case "menu_list":
		return toolkit.ToolResult{ToolCallID: tc.ID, Content: l.menuListing()}, OutcomeContinue

	case "menu_enter":
		mode, _ := tc.Arguments["mode"].(string)
		l.Mode = mode
		return toolkit.ToolResult{ToolCallID: tc.ID, Content: fmt.Sprintf("mode %q will take effect next turn", mode)}, OutcomeContinue

	case "menu_exit":
		l.Mode = l.BaseMode
		return toolkit.ToolResult{ToolCallID: tc.ID, Content: "returned to base mode, effective next turn"}, OutcomeContinue

	default:
		return toolkit.ToolResult{ToolCallID: tc.ID, Err: &toolkit.Error{
			Category: toolkit.ErrorSchemaViolation, Message: fmt.Sprintf("unknown meta tool %q", tc.Name),
		}}, OutcomeContinue
	}
}

func (l *Loop) menuListing() string {
	modes := l.Registry.Modes()
	sort.Strings(modes)
	data, _ := json.Marshal(map[string]any{"modes": modes, "current_mode": l.Mode})
	return string(data)
}

// unmetCompletionPreconditions implements complete()'s semantics (spec
// §4.6 step 8): every todo must be verified and every phase's exit
// criteria satisfied. Since phases gate forward transitions on their own
// exit criteria, reaching VERIFY already implies LOCALIZE..REGRESSION_CHECK
// were each satisfied; completion additionally requires VERIFY's own
// exit criteria to hold right now.
func (l *Loop) unmetCompletionPreconditions() []string {
	var unmet []string
	if !l.Todos.AllVerified() {
		for _, id := range l.Todos.PendingSummary() {
			unmet = append(unmet, fmt.Sprintf("todo %s is not verified", id))
		}
	}
	if l.Phase.Current() != phase.Verify {
		unmet = append(unmet, fmt.Sprintf("session is in phase %s, not VERIFY", l.Phase.Current()))
	} else if err := l.Phase.CheckExitCriteria(); err != nil {
		unmet = append(unmet, err.Error())
	}
	return unmet
}
