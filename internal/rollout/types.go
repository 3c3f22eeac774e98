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

// Package rollout implements the Rollout Orchestrator (spec §4.4): it
// dispatches one or more tool calls, partitioning a batch by conflict
// class to maximize safe parallelism, and records the full fork/join
// span structure into the trace store.
package rollout

import (
	"time"

	"github.com/compymac/agentcore/internal/toolkit"
)

// Mode selects how a batch's completion is determined.
type Mode string

const (
	// ModeWaitAll waits for every call in the batch to finish.
	ModeWaitAll Mode = "wait-all"

	// ModeFirstSuccess terminates the batch as soon as any call returns a
	// successful result, cancelling the rest. Used for speculative
	// parallel strategies; partial effects of cancelled calls are still
	// recorded but their todos are not marked claimed.
	ModeFirstSuccess Mode = "first-success"
)

// DefaultDeadline is applied to a call whose tool reports a zero
// Deadline().
const DefaultDeadline = 60 * time.Second

// gracePeriod is how long a cancelled call is given to yield before its
// worker is detached and the session is marked degraded.
const gracePeriod = 2 * time.Second

// CallSpec is one tool call queued for dispatch, already resolved to a
// concrete Tool and its conflict keys.
type CallSpec struct {
	Call         toolkit.ToolCall
	Tool         toolkit.Tool
	ConflictKeys []string
}

// Outcome is the recorded result of one dispatched call.
type Outcome struct {
	CallID    string
	Result    map[string]any
	Err       *toolkit.Error
	Cancelled bool
}

// BatchResult is the aggregate outcome of a batch, outcomes listed in the
// same order the calls were submitted regardless of completion order
// (spec §4.4 ordering guarantee (b)).
type BatchResult struct {
	Outcomes []Outcome
	Degraded bool // true if any call's worker had to be detached
}

// AllFailed reports whether every call in the batch failed — the only
// condition under which a batch itself counts as failed (spec §4.4).
func (b *BatchResult) AllFailed() bool {
	for _, o := range b.Outcomes {
		if o.Err == nil {
			return false
		}
	}
	return len(b.Outcomes) > 0
}
