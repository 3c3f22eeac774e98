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

package toolkit

// Mask computes the effective tool set for a mode: meta tools union the
// tools registered in that mode (spec §4.2's mask rule). Phase-level
// restriction is layered on top by the phase package, which additionally
// requires category membership — Mask only answers "is this tool visible
// in the current mode at all".
type Mask struct {
	registry *Registry
	mode     string
}

// NewMask builds a Mask bound to a specific mode.
func NewMask(registry *Registry, mode string) *Mask {
	return &Mask{registry: registry, mode: mode}
}

// Mode returns the mode this mask was built for.
func (m *Mask) Mode() string { return m.mode }

// Visible reports whether a tool name is in the effective set for this
// mode: a meta tool, or registered as a member of the mode.
func (m *Mask) Visible(name string) bool {
	if IsMeta(name) {
		return true
	}
	_, ok := m.registry.Lookup(name)
	if !ok {
		return false
	}
	for _, t := range m.registry.ToolsInMode(m.mode) {
		if t.Name() == name {
			return true
		}
	}
	return false
}

// EffectiveSet returns the definitions the LLM should see this turn: meta
// tools plus the current mode's tools. Mode changes requested via
// menu_enter/menu_exit during this turn must not affect the set returned
// here — they take effect starting the next turn (spec §4.2).
func (m *Mask) EffectiveSet() []Tool {
	out := make([]Tool, 0, len(m.registry.ToolsInMode(m.mode))+len(MetaTools))
	for _, name := range MetaTools {
		if t, ok := m.registry.Lookup(name); ok {
			out = append(out, t)
		}
	}
	out = append(out, m.registry.ToolsInMode(m.mode)...)
	return out
}

// Check validates a requested tool call against the mask, returning a
// structured ToolMasked error if it falls outside the effective set.
func (m *Mask) Check(name string) *Error {
	if !m.Visible(name) {
		return ErrToolMasked(name)
	}
	return nil
}

// ConflictsWith reports whether two tool calls (by name + resolved
// conflict keys) share an exclusive resource key, the foundation the
// rollout orchestrator uses to partition a batch (spec §4.2/§4.4).
func ConflictsWith(aKeys, bKeys []string) bool {
	set := make(map[string]bool, len(aKeys))
	for _, k := range aKeys {
		set[k] = true
	}
	for _, k := range bKeys {
		if set[k] {
			return true
		}
	}
	return false
}
