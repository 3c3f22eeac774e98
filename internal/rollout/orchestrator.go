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

package rollout

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
)

// Orchestrator dispatches batches of tool calls against a bounded worker
// pool, recording fork/join span structure into a trace store.
type Orchestrator struct {
	store   *trace.Store
	workers int
}

// New builds an Orchestrator with the given worker pool size.
func New(store *trace.Store, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{store: store, workers: workers}
}

// callResult is the outcome of one dispatched call plus bookkeeping used
// to preserve submission order.
type callResult struct {
	index     int
	outcome   Outcome
	degraded  bool
}

// Run dispatches calls against the session's trace. A single call runs
// inline: its own span is a child of parentSpan and no fork or join span
// is opened, matching spec §4.4's "single tool call runs inline in the
// current span". A multi-call batch is partitioned into waves by conflict
// class; each wave gets a fork span parenting its calls' spans, and after
// the last wave a join span under parentSpan carries the BATCH_RESULT
// event.
func (o *Orchestrator) Run(ctx context.Context, sessionID, parentSpan string, calls []CallSpec, mode Mode) (*BatchResult, error) {
	if len(calls) == 0 {
		return &BatchResult{}, nil
	}
	if len(calls) == 1 {
		outcome, degraded := o.invoke(ctx, sessionID, parentSpan, calls[0])
		return &BatchResult{Outcomes: []Outcome{outcome}, Degraded: degraded}, nil
	}

	result := &BatchResult{Outcomes: make([]Outcome, len(calls))}
	waves := partition(calls)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var succeeded atomic.Bool

	for _, wave := range waves {
		if batchCtx.Err() != nil {
			for _, idx := range wave {
				result.Outcomes[idx] = Outcome{CallID: calls[idx].Call.ID, Cancelled: true}
			}
			continue
		}

		forkSpan, err := o.store.OpenSpan(ctx, sessionID, "rollout.fork", parentSpan, nil)
		if err != nil {
			return nil, err
		}

		resultsChan := make(chan callResult, len(wave))
		var eg errgroup.Group
		sem := make(chan struct{}, o.workers)

		for _, idx := range wave {
			idx := idx
			spec := calls[idx]
			eg.Go(func() error {
				sem <- struct{}{}
				defer func() { <-sem }()

				outcome, degraded := o.invokeInWave(batchCtx, sessionID, forkSpan, spec)
				resultsChan <- callResult{index: idx, outcome: outcome, degraded: degraded}

				if outcome.Err == nil && mode == ModeFirstSuccess && succeeded.CompareAndSwap(false, true) {
					cancel()
				}
				return nil
			})
		}

		go func() {
			_ = eg.Wait()
			close(resultsChan)
		}()

		for r := range resultsChan {
			result.Outcomes[r.index] = r.outcome
			if r.degraded {
				result.Degraded = true
			}
		}

		if err := o.store.CloseSpan(ctx, sessionID, forkSpan, "joined", map[string]any{"wave_size": len(wave)}); err != nil {
			return nil, err
		}
	}

	joinSpan, err := o.store.OpenSpan(ctx, sessionID, "rollout.join", parentSpan, map[string]any{"batch_size": len(calls)})
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"outcomes": outcomesPayload(result.Outcomes), "degraded": result.Degraded}
	if _, err := o.store.AppendEvent(ctx, sessionID, trace.KindBatchResult, payload, joinSpan, ""); err != nil {
		return nil, err
	}
	if err := o.store.CloseSpan(ctx, sessionID, joinSpan, "joined", nil); err != nil {
		return nil, err
	}

	return result, nil
}

// invoke runs a single call inline, its own span opened and closed by
// invokeInWave as a child of parentSpan. The second result reports
// whether the call's worker had to be detached.
func (o *Orchestrator) invoke(ctx context.Context, sessionID, parentSpan string, spec CallSpec) (Outcome, bool) {
	return o.invokeInWave(ctx, sessionID, parentSpan, spec)
}

// invokeInWave executes one call under a deadline, opening a child span
// of forkSpan (a wave's fork span, or the caller's span for a single
// inline call) and closing it with the outcome's status.
func (o *Orchestrator) invokeInWave(ctx context.Context, sessionID, forkSpan string, spec CallSpec) (Outcome, bool) {
	childSpan, err := o.store.OpenSpan(ctx, sessionID, "tool:"+spec.Call.Name, forkSpan, map[string]any{"tool_call_id": spec.Call.ID})
	if err != nil {
		return Outcome{CallID: spec.Call.ID, Err: &toolkit.Error{Category: toolkit.ErrorToolException, Message: err.Error()}}, false
	}

	deadline := spec.Tool.Deadline()
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type invokeResult struct {
		out map[string]any
		err error
	}
	done := make(chan invokeResult, 1)
	go func() {
		out, err := spec.Tool.Invoke(callCtx, spec.Call.Args)
		done <- invokeResult{out: out, err: err}
	}()

	var outcome Outcome
	var degraded bool

	select {
	case r := <-done:
		outcome = Outcome{CallID: spec.Call.ID, Result: r.out, Err: toOrchestratorError(r.err, false)}
	case <-callCtx.Done():
		select {
		case r := <-done:
			outcome = Outcome{CallID: spec.Call.ID, Result: r.out, Err: toOrchestratorError(r.err, false)}
		case <-time.After(gracePeriod):
			outcome = Outcome{
				CallID: spec.Call.ID,
				Err: &toolkit.Error{
					Category:    toolkit.ErrorTimeout,
					Message:     "tool did not yield within the grace period after cancellation",
					Recoverable: false,
				},
			}
			degraded = true
		}
	}

	status := "ok"
	if outcome.Err != nil {
		status = string(outcome.Err.Category)
	}
	_ = o.store.CloseSpan(ctx, sessionID, childSpan, status, nil)

	return outcome, degraded
}

func toOrchestratorError(err error, cancelled bool) *toolkit.Error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*toolkit.Error); ok {
		return te
	}
	category := toolkit.ErrorToolException
	if cancelled || err == context.Canceled {
		category = toolkit.ErrorCancelled
	} else if err == context.DeadlineExceeded {
		category = toolkit.ErrorTimeout
	}
	return &toolkit.Error{Category: category, Message: err.Error(), Recoverable: true}
}

func outcomesPayload(outcomes []Outcome) []map[string]any {
	out := make([]map[string]any, len(outcomes))
	for i, o := range outcomes {
		entry := map[string]any{"call_id": o.CallID, "cancelled": o.Cancelled}
		if o.Err != nil {
			entry["error_category"] = string(o.Err.Category)
		}
		out[i] = entry
	}
	return out
}
