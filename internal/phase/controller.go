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

import (
	"sync"

	"github.com/compymac/agentcore/internal/toolkit"
)

// stateChanging are the categories that count toward the tool-latency
// budget and reset it when exercised.
var stateChanging = map[toolkit.Category]bool{
	toolkit.CategoryEdit: true,
	toolkit.CategoryBash: true,
	toolkit.CategoryWrite: true,
}

// activityFlags records which categories have been exercised in the
// current phase, the basis for each phase's exit-criteria predicate.
type activityFlags struct {
	read     bool
	thought  bool
	edited   bool
	testsRun bool
}

// Controller tracks the current phase plus the think- and latency-budget
// counters for one session. Not safe for concurrent Record* and Check*
// calls from different goroutines within the same turn; the Agent Loop
// serializes tool dispatch per turn, so a single mutex is enough.
type Controller struct {
	mu              sync.Mutex
	current         Name
	activity        activityFlags
	thinkStreak     int
	turnsIdle       int // consecutive turns with no state-changing tool call
}

// New creates a Controller starting in LOCALIZE.
func New() *Controller {
	return &Controller{current: Localize}
}

// SetPhase forces the controller into p, bypassing transition validation
// and resetting budget/activity counters. Used only by checkpoint
// restore, which re-establishes a previously validated phase rather than
// performing a fresh transition.
func (c *Controller) SetPhase(p Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = p
	c.activity = activityFlags{}
	c.thinkStreak = 0
	c.turnsIdle = 0
}

// Current returns the active phase.
func (c *Controller) Current() Name {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CheckCall validates a proposed tool call against the phase mask and
// both budgets, without mutating state. Callers invoke this before
// dispatch and call RecordCall after a successful dispatch.
func (c *Controller) CheckCall(categories []toolkit.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !Permits(c.current, categories) {
		return ErrCategoryNotPermitted
	}

	isThink := containsCategory(categories, toolkit.CategoryThink)
	if isThink && c.thinkStreak >= 3 {
		return ErrThinkBudgetExhausted
	}

	if c.turnsIdle >= 2 && !containsAny(categories, stateChanging) {
		return ErrLatencyBudgetExceeded
	}

	return nil
}

// RecordCall updates the think-budget counter and exit-criteria activity
// flags after a tool call categorized by categories has been dispatched
// (regardless of success/failure — the attempt itself counts toward
// activity and the think budget per spec §4.5). The tool-latency budget
// is turn-scoped, not call-scoped, so it is not touched here — see
// EndTurn.
func (c *Controller) RecordCall(categories []toolkit.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if containsCategory(categories, toolkit.CategoryThink) {
		c.thinkStreak++
	} else {
		c.thinkStreak = 0
	}

	for _, cat := range categories {
		switch cat {
		case toolkit.CategoryRead, toolkit.CategorySearch, toolkit.CategoryGlob, toolkit.CategoryBashRead:
			c.activity.read = true
		case toolkit.CategoryThink:
			c.activity.thought = true
		case toolkit.CategoryEdit, toolkit.CategoryWrite:
			c.activity.edited = true
		case toolkit.CategoryBashTest:
			c.activity.testsRun = true
		}
	}
}

// EndTurn closes out the tool-latency budget for one turn (spec §4.5:
// "two consecutive turns passed without a state-changing tool call").
// stateChanging reports whether any tool call dispatched this turn fell
// in the stateChanging category set; the Agent Loop calls this exactly
// once per turn, after the turn's whole batch has been dispatched, never
// per call — a turn that issues several non-state-changing calls (e.g.
// parallel reads) must not trip the budget mid-turn.
func (c *Controller) EndTurn(stateChangingTurn bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stateChangingTurn {
		c.turnsIdle = 0
	} else {
		c.turnsIdle++
	}
}

// IsStateChanging reports whether categories contains at least one
// category that counts toward the tool-latency budget. Exported so the
// Agent Loop can decide, per dispatched call, what to fold into the
// turn-level argument it passes to EndTurn.
func IsStateChanging(categories []toolkit.Category) bool {
	return containsAny(categories, stateChanging)
}

// exitSatisfied evaluates the declarative exit predicate for the current
// phase (spec §4.5: "at least one file read"/"at least one edit"/"at
// least one test run" style criteria).
func (c *Controller) exitSatisfied() bool {
	switch c.current {
	case Localize:
		return c.activity.read
	case Understand:
		return c.activity.thought
	case Fix:
		return c.activity.edited
	case RegressionCheck:
		return c.activity.testsRun
	case Verify:
		return c.activity.testsRun
	default:
		return false
	}
}

// CheckExitCriteria reports whether the current phase's exit predicate
// holds right now, without attempting a transition. complete() uses this
// to validate VERIFY's own criteria (spec §4.6 step 8).
func (c *Controller) CheckExitCriteria() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.exitSatisfied() {
		return ErrExitCriteriaNotMet
	}
	return nil
}

// Transition attempts to move to target. Only the next phase in linear
// order, or the single VERIFY -> FIX back-edge, is permitted, and only
// once the current phase's exit criteria are satisfied.
func (c *Controller) Transition(target Name) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == Verify && target == Fix {
		c.current = Fix
		c.activity = activityFlags{}
		return nil
	}

	curIdx := indexOf(c.current)
	tgtIdx := indexOf(target)
	if curIdx < 0 || tgtIdx != curIdx+1 {
		return ErrInvalidTransition
	}
	if !c.exitSatisfied() {
		return ErrExitCriteriaNotMet
	}

	c.current = target
	c.activity = activityFlags{}
	return nil
}

func containsCategory(categories []toolkit.Category, target toolkit.Category) bool {
	for _, c := range categories {
		if c == target {
			return true
		}
	}
	return false
}

func containsAny(categories []toolkit.Category, set map[toolkit.Category]bool) bool {
	for _, c := range categories {
		if set[c] {
			return true
		}
	}
	return false
}
