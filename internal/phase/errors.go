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

package phase

import "errors"

var (
	// ErrInvalidTransition is returned for any attempted transition other
	// than the next phase in order or the single VERIFY -> FIX back-edge.
	ErrInvalidTransition = errors.New("phase: transition not permitted")

	// ErrExitCriteriaNotMet is returned when the current phase's exit
	// predicate has not yet been satisfied.
	ErrExitCriteriaNotMet = errors.New("phase: exit criteria not yet satisfied")

	// ErrCategoryNotPermitted is returned when a tool's categories do not
	// intersect the current phase's allowed set.
	ErrCategoryNotPermitted = errors.New("phase: tool category not permitted in this phase")

	// ErrThinkBudgetExhausted is returned when a fourth consecutive think
	// call is attempted.
	ErrThinkBudgetExhausted = errors.New("phase: think budget exhausted, a non-think tool is required")

	// ErrLatencyBudgetExceeded is returned when a state-changing call is
	// required but was not made.
	ErrLatencyBudgetExceeded = errors.New("phase: two turns passed without a state-changing tool call, one is required now")
)
