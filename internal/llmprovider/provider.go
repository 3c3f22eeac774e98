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

// Package llmprovider defines the provider-agnostic LLM interface the
// Agent Loop drives turn-by-turn. Concrete providers (Anthropic, OpenAI,
// local models) live behind this interface; the loop itself never knows
// which one it is talking to.
package llmprovider

import "context"

// Message is one turn of conversation history, in the universal format
// fed to every provider.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	ToolCalls  []ToolCallRequest
	ToolCallID string
	Name       string
}

// ToolDefinition is a tool's name, description and JSON Schema as handed
// to the LLM for this turn's effective (masked) tool set.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCallRequest is one tool invocation the LLM asked for.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments map[string]any
	RawArgs   string // the exact JSON substring the model emitted, for replay fidelity
}

// Request bundles everything the Agent Loop assembles for one turn
// (spec §4.6 step 1).
type Request struct {
	SystemPrompt string
	Tools        []ToolDefinition
	Messages     []Message
}

// Response is a single turn's LLM output. Raw is the verbatim response
// text/JSON as received from the wire — the Agent Loop records this
// unmodified for deterministic replay (spec §4.6 step 3); Text and
// ToolCalls are the parsed projection of it.
type Response struct {
	Raw       string
	Text      string
	ToolCalls []ToolCallRequest
	Tokens    int
}

// Provider is the interface every concrete LLM backend implements.
type Provider interface {
	// Complete performs one non-streaming request/response turn.
	Complete(ctx context.Context, req Request) (Response, error)

	// ModelName identifies the backing model for logging/tracing.
	ModelName() string
}
