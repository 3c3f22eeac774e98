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

import "github.com/compymac/agentcore/internal/llmprovider"

// metaToolDefinitions are the six always-available meta tools' catalog
// entries. They never go through toolkit.Registry — a Tool implements
// Invoke against the full toolkit.Tool interface, while these are
// handled directly by handleMeta — but the LLM still needs their
// schemas to call them.
func metaToolDefinitions() []llmprovider.ToolDefinition {
	return []llmprovider.ToolDefinition{
		{
			Name:        "menu_list",
			Description: "List the modes and tools currently available.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "menu_enter",
			Description: "Switch to a different mode, effective next turn.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"mode": map[string]any{"type": "string"}},
				"required":   []string{"mode"},
			},
		},
		{
			Name:        "menu_exit",
			Description: "Return to the base mode, effective next turn.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "complete",
			Description: "Declare the session finished. Fails with the list of unmet preconditions if any todo is unverified or the current phase's exit criteria are unmet.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "think",
			Description: "Record a reasoning step without taking any action. At most three in a row are permitted.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"thought": map[string]any{"type": "string"}},
				"required":   []string{"thought"},
			},
		},
		{
			Name:        "message_user",
			Description: "Ask the user a question or report something that needs their attention.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"message": map[string]any{"type": "string"}},
				"required":   []string{"message"},
			},
		},
	}
}
