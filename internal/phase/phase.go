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

// Package phase implements the Phase Controller (spec §4.5): a linear
// five-phase state machine, with one permitted back-edge, that restricts
// which tool categories the agent may reach for at each point in a task
// and enforces the think- and tool-latency budgets.
package phase

import "github.com/compymac/agentcore/internal/toolkit"

// Name is one of the five phases.
type Name string

const (
	Localize         Name = "LOCALIZE"
	Understand       Name = "UNDERSTAND"
	Fix              Name = "FIX"
	RegressionCheck  Name = "REGRESSION_CHECK"
	Verify           Name = "VERIFY"
)

// order is the linear forward sequence; Verify has the one permitted
// back-edge to Fix, handled specially in Transition.
var order = []Name{Localize, Understand, Fix, RegressionCheck, Verify}

// allowedCategories is restrictive, not additive to a mode's mask: a
// tool call must be both in the current mode and allowed here.
// CategoryTodo is included in every phase: the todo lifecycle
// (todo_create/todo_start/todo_claim/todo_list/todo_get) is agent-driven
// from early in the task, not gated behind reaching VERIFY (spec §4.3,
// scenario S1).
var allowedCategories = map[Name][]toolkit.Category{
	Localize: {
		toolkit.CategoryRead, toolkit.CategorySearch, toolkit.CategoryGlob, toolkit.CategoryBashRead, toolkit.CategoryTodo,
	},
	Understand: {
		toolkit.CategoryRead, toolkit.CategorySearch, toolkit.CategoryGlob, toolkit.CategoryBashRead, toolkit.CategoryThink, toolkit.CategoryTodo,
	},
	Fix: {
		toolkit.CategoryRead, toolkit.CategoryWrite, toolkit.CategoryEdit, toolkit.CategoryBash, toolkit.CategoryThink, toolkit.CategoryTodo,
	},
	RegressionCheck: {
		toolkit.CategoryBashTest, toolkit.CategoryRead, toolkit.CategoryThink, toolkit.CategoryTodo,
	},
	Verify: {
		toolkit.CategoryBashTest, toolkit.CategoryRead, toolkit.CategoryThink, toolkit.CategoryComplete, toolkit.CategoryTodo,
	},
}

// AllowedCategories returns the categories permitted in a phase.
func AllowedCategories(p Name) []toolkit.Category {
	return allowedCategories[p]
}

// Permits reports whether a tool with the given categories may be
// invoked in phase p: at least one of its categories must be in the
// phase's allowed set.
func Permits(p Name, categories []toolkit.Category) bool {
	allowed := allowedCategories[p]
	for _, c := range categories {
		for _, a := range allowed {
			if c == a {
				return true
			}
		}
	}
	return false
}

// Next returns the phase that follows p in the linear order, if any.
// VERIFY has no forward successor — its onward move is complete(), not
// a further Transition — so Next(Verify) reports ok=false.
func Next(p Name) (Name, bool) {
	idx := indexOf(p)
	if idx < 0 || idx+1 >= len(order) {
		return "", false
	}
	return order[idx+1], true
}

func indexOf(p Name) int {
	for i, n := range order {
		if n == p {
			return i
		}
	}
	return -1
}
