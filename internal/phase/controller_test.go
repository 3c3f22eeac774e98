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

package phase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/toolkit"
)

func TestCategoryMaskIsRestrictive(t *testing.T) {
	c := phase.New()
	require.NoError(t, c.CheckCall([]toolkit.Category{toolkit.CategoryRead}))
	assert.ErrorIs(t, c.CheckCall([]toolkit.Category{toolkit.CategoryEdit}), phase.ErrCategoryNotPermitted)
}

func TestTransitionRequiresExitCriteria(t *testing.T) {
	c := phase.New()
	require.ErrorIs(t, c.Transition(phase.Understand), phase.ErrExitCriteriaNotMet)

	require.NoError(t, c.CheckCall([]toolkit.Category{toolkit.CategoryRead}))
	c.RecordCall([]toolkit.Category{toolkit.CategoryRead})
	require.NoError(t, c.Transition(phase.Understand))
	assert.Equal(t, phase.Understand, c.Current())
}

func TestOnlyLinearForwardAndVerifyFixBackEdgeAllowed(t *testing.T) {
	c := phase.New()
	require.ErrorIs(t, c.Transition(phase.Fix), phase.ErrInvalidTransition)

	c.RecordCall([]toolkit.Category{toolkit.CategoryRead})
	require.NoError(t, c.Transition(phase.Understand))
	c.RecordCall([]toolkit.Category{toolkit.CategoryThink})
	require.NoError(t, c.Transition(phase.Fix))
	c.RecordCall([]toolkit.Category{toolkit.CategoryEdit})
	require.NoError(t, c.Transition(phase.RegressionCheck))
	c.RecordCall([]toolkit.Category{toolkit.CategoryBashTest})
	require.NoError(t, c.Transition(phase.Verify))

	require.ErrorIs(t, c.Transition(phase.Localize), phase.ErrInvalidTransition)

	require.NoError(t, c.Transition(phase.Fix))
	assert.Equal(t, phase.Fix, c.Current())
}

func TestThinkBudgetExhaustedAfterThreeConsecutive(t *testing.T) {
	c := phase.New()
	c.RecordCall([]toolkit.Category{toolkit.CategoryRead})
	require.NoError(t, c.Transition(phase.Understand))

	think := []toolkit.Category{toolkit.CategoryThink}
	for i := 0; i < 3; i++ {
		require.NoError(t, c.CheckCall(think))
		c.RecordCall(think)
	}
	assert.ErrorIs(t, c.CheckCall(think), phase.ErrThinkBudgetExhausted)

	require.NoError(t, c.CheckCall([]toolkit.Category{toolkit.CategoryRead}))
	c.RecordCall([]toolkit.Category{toolkit.CategoryRead})
	assert.NoError(t, c.CheckCall(think))
}

func TestLatencyBudgetRequiresStateChangeAfterTwoIdleTurns(t *testing.T) {
	c := phase.New()
	c.RecordCall([]toolkit.Category{toolkit.CategoryRead})
	require.NoError(t, c.Transition(phase.Understand))
	c.RecordCall([]toolkit.Category{toolkit.CategoryThink})
	require.NoError(t, c.Transition(phase.Fix))

	read := []toolkit.Category{toolkit.CategoryRead}
	c.EndTurn(false)
	c.EndTurn(false)
	assert.ErrorIs(t, c.CheckCall(read), phase.ErrLatencyBudgetExceeded)

	edit := []toolkit.Category{toolkit.CategoryEdit}
	assert.NoError(t, c.CheckCall(edit))
}

// TestLatencyBudgetIsPerTurnNotPerCall covers spec's scenario S3: a
// single turn issuing several non-state-changing calls (e.g. three
// parallel reads) must not trip the budget mid-turn, since the budget is
// defined over consecutive turns, not consecutive calls.
func TestLatencyBudgetIsPerTurnNotPerCall(t *testing.T) {
	c := phase.New()

	read := []toolkit.Category{toolkit.CategoryRead}
	for i := 0; i < 3; i++ {
		require.NoError(t, c.CheckCall(read))
		c.RecordCall(read)
	}
	c.EndTurn(false)
	assert.NoError(t, c.CheckCall(read), "a single idle turn, however many calls it made, must not exhaust the latency budget")
}
