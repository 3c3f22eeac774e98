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

import "errors"

// ErrNoToolCall names the condition of a response that carried no tool
// calls. RunTurn neither returns nor records it: it appends a reminder to
// the history and ends the turn with OutcomeContinue, reinviting the LLM
// on the next turn (spec §4.6 step 4).
var ErrNoToolCall = errors.New("agentloop: response carried no tool call")

// ErrIncomplete is returned by complete() when some precondition is
// unmet; Unmet lists the structured reasons surfaced to the LLM.
type ErrIncomplete struct {
	Unmet []string
}

func (e *ErrIncomplete) Error() string {
	return "agentloop: session is not complete"
}
