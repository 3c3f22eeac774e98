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

import "fmt"

// Category of structured error returned to the LLM (spec §4.4, §7).
// These never leak as Go panics/exceptions across the orchestrator
// boundary; every failure path normalizes into an Error value.
type ErrorCategory string

const (
	ErrorTimeout          ErrorCategory = "timeout"
	ErrorToolException    ErrorCategory = "tool-exception"
	ErrorSchemaViolation  ErrorCategory = "schema-violation"
	ErrorResourceConflict ErrorCategory = "resource-conflict"
	ErrorMasked           ErrorCategory = "masked"
	ErrorCancelled        ErrorCategory = "cancelled"
)

// Error is the structured error envelope handed back to the LLM so it can
// self-correct, per spec §4.4's failure semantics and §7's propagation
// policy. *Error implements the error interface, so a tool body may
// return one directly; the rollout orchestrator passes it through as the
// call's structured error instead of wrapping it as a tool exception.
type Error struct {
	Category    ErrorCategory
	Message     string
	Recoverable bool
	Hint        string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// ErrToolMasked builds the structured error for a tool call rejected
// because it falls outside the effective (mode ∪ meta) tool set.
func ErrToolMasked(name string) *Error {
	return &Error{
		Category:    ErrorMasked,
		Message:     fmt.Sprintf("tool %q is not visible in the current mode", name),
		Recoverable: true,
		Hint:        "call menu_list to see tools available in the current mode, or menu_enter to switch modes",
	}
}

// ErrSchemaViolation builds the structured error for arguments that fail
// validation against a tool's parameter schema.
func ErrSchemaViolation(name string, cause error) *Error {
	return &Error{
		Category:    ErrorSchemaViolation,
		Message:     fmt.Sprintf("arguments for %q failed schema validation: %v", name, cause),
		Recoverable: true,
		Hint:        "re-check the tool's parameter schema and retry with corrected arguments",
	}
}
