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

	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/rollout"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

// visibleTool pairs a registered tool with its LLM-facing definition,
// computed fresh each turn from the current mode and phase masks.
type visibleTool struct {
	tool toolkit.Tool
	def  llmprovider.ToolDefinition
}

// RunTurn executes one full turn of the per-turn procedure (spec §4.6).
func (l *Loop) RunTurn(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return OutcomePaused, nil
	default:
	}

	mask := toolkit.NewMask(l.Registry, l.Mode)
	visible := l.effectiveTools(mask)

	toolDefs := append([]llmprovider.ToolDefinition(nil), metaToolDefinitions()...)
	for _, v := range visible {
		toolDefs = append(toolDefs, v.def)
	}

	req := llmprovider.Request{
		SystemPrompt: l.BuildPrompt(l.Mode, l.Phase.Current(), l.Todos.List()),
		Tools:        toolDefs,
		Messages:     append([]llmprovider.Message(nil), l.history...),
	}

	if err := l.recordArtifactEvent(ctx, trace.KindLLMRequest, req); err != nil {
		return OutcomeFailed, err
	}

	resp, err := l.Provider.Complete(ctx, req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("agentloop: llm completion: %w", err)
	}

	if _, err := l.Store.AppendEvent(ctx, l.SessionID, trace.KindLLMResponse, map[string]any{"raw": resp.Raw}, "", ""); err != nil {
		return OutcomeFailed, err
	}

	if len(resp.ToolCalls) == 0 {
		l.history = append(l.history,
			llmprovider.Message{Role: "assistant", Content: resp.Text},
			llmprovider.Message{Role: "user", Content: "every turn must include at least one tool call; reply with a tool call, not prose"},
		)
		l.Phase.EndTurn(false)
		return OutcomeContinue, nil
	}

	l.history = append(l.history, llmprovider.Message{Role: "assistant", Content: resp.Text, ToolCalls: resp.ToolCalls})

	byName := make(map[string]*visibleTool, len(visible))
	for i := range visible {
		byName[visible[i].tool.Name()] = &visible[i]
	}

	var specs []rollout.CallSpec
	var metaCalls []llmprovider.ToolCallRequest
	results := make(map[string]toolkit.ToolResult)
	var turnStateChanging bool

	for _, tc := range resp.ToolCalls {
		if toolkit.IsMeta(tc.Name) {
			metaCalls = append(metaCalls, tc)
			continue
		}
		vt, ok := byName[tc.Name]
		if !ok {
			results[tc.ID] = toolkit.ToolResult{ToolCallID: tc.ID, Err: l.classify(tc.Name)}
			continue
		}
		if err := l.Phase.CheckCall(vt.tool.Categories()); err != nil {
			results[tc.ID] = toolkit.ToolResult{ToolCallID: tc.ID, Err: &toolkit.Error{
				Category: toolkit.ErrorSchemaViolation, Message: err.Error(), Recoverable: true,
			}}
			continue
		}
		specs = append(specs, rollout.CallSpec{
			Call:         toolkit.ToolCall{ID: tc.ID, Name: tc.Name, Args: tc.Arguments},
			Tool:         vt.tool,
			ConflictKeys: vt.tool.ConflictKeys(tc.Arguments),
		})
		l.Phase.RecordCall(vt.tool.Categories())
		if phase.IsStateChanging(vt.tool.Categories()) {
			turnStateChanging = true
		}
	}

	if len(specs) > 0 {
		batch, err := l.Orchestrator.Run(ctx, l.SessionID, "", specs, rollout.ModeWaitAll)
		if err != nil {
			return OutcomeFailed, err
		}
		if batch.Degraded {
			l.degraded = true
		}
		for _, o := range batch.Outcomes {
			results[o.CallID] = toolkit.ToolResult{ToolCallID: o.CallID, Content: resultContent(o), Err: o.Err}
		}
	}

	for _, tc := range metaCalls {
		result, outcome := l.handleMeta(ctx, tc)
		results[tc.ID] = result
		if outcome != OutcomeContinue {
			l.appendResults(resp.ToolCalls, results)
			l.recordFingerprints(resp.ToolCalls)
			return outcome, nil
		}
	}

	l.appendResults(resp.ToolCalls, results)
	stuck := l.checkStuckness(resp.ToolCalls)
	l.recordFingerprints(resp.ToolCalls)

	if stuck {
		if _, err := l.Store.AppendEvent(ctx, l.SessionID, trace.KindError, map[string]any{"kind": "stuckness_detected"}, "", ""); err != nil {
			return OutcomeFailed, err
		}
		l.history = append(l.history, llmprovider.Message{
			Role:    "user",
			Content: "no new information has been produced in the last turns; try a different approach or call message_user for help",
		})
	}

	l.Phase.EndTurn(turnStateChanging)

	if err := l.advancePhase(ctx); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeContinue, nil
}

func (l *Loop) effectiveTools(mask *toolkit.Mask) []visibleTool {
	var out []visibleTool
	for _, t := range mask.EffectiveSet() {
		if !toolkit.IsMeta(t.Name()) && !phase.Permits(l.Phase.Current(), t.Categories()) {
			continue
		}
		out = append(out, visibleTool{
			tool: t,
			def:  llmprovider.ToolDefinition{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()},
		})
	}
	return out
}

func (l *Loop) recordArtifactEvent(ctx context.Context, kind trace.Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	artifactID, err := l.Store.PutArtifact(data)
	if err != nil {
		return err
	}
	_, err = l.Store.AppendEvent(ctx, l.SessionID, kind, map[string]any{"artifact_id": artifactID}, "", "")
	return err
}

func (l *Loop) classify(name string) *toolkit.Error {
	return toolkit.ErrToolMasked(name)
}

func (l *Loop) appendResults(calls []llmprovider.ToolCallRequest, results map[string]toolkit.ToolResult) {
	for _, tc := range calls {
		r := results[tc.ID]
		content := r.Content
		if r.Err != nil {
			content = r.Err.Error()
		}
		l.history = append(l.history, llmprovider.Message{Role: "tool", ToolCallID: tc.ID, Name: tc.Name, Content: content})
	}
}

func resultContent(o rollout.Outcome) string {
	if o.Err != nil {
		return ""
	}
	data, _ := json.Marshal(o.Result)
	return string(data)
}
