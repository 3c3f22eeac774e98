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

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/compymac/agentcore/internal/config"
	"github.com/compymac/agentcore/internal/observability"
	"github.com/compymac/agentcore/internal/trace"
)

// initObservability installs the OTel tracer provider and, if enabled,
// starts the Prometheus scrape endpoint. Per internal/observability's own
// design (see its package doc), neither the agent loop, rollout
// orchestrator nor checkpoint manager import this package directly: the
// trace store's spans are already the authoritative record, so metrics
// and mirrored spans are derived from trace events after the fact by
// traceMetricsMirror below, not recorded inline on the hot path.
func initObservability(ctx context.Context, cfg *config.Config) (*observability.Metrics, func()) {
	tracerCfg := observability.TracerConfig{
		Enabled:      cfg.Observability.TracingEnabled,
		ExporterType: cfg.Observability.ExporterType,
		EndpointURL:  cfg.Observability.EndpointURL,
		SamplingRate: cfg.Observability.SamplingRate,
		ServiceName:  cfg.Observability.ServiceName,
	}
	if _, err := observability.InitTracer(ctx, tracerCfg); err != nil {
		slog.Warn("observability: tracer init failed, continuing without tracing", "error", err)
	}

	if !cfg.Observability.MetricsEnabled {
		return nil, func() {}
	}

	metrics := observability.NewMetrics(cfg.Observability.ServiceName)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("observability: metrics server stopped", "error", err)
		}
	}()

	return metrics, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// traceMetricsMirror polls a session's trace for events appended since
// the last poll and folds them into metrics, run alongside
// pollVerification for the session's lifetime. Mirroring from the
// durable trace rather than from inline hooks keeps the Agent Loop,
// Rollout Orchestrator and Checkpoint Manager free of an observability
// dependency.
func traceMetricsMirror(ctx context.Context, store *trace.Store, metrics *observability.Metrics, sessionID string) {
	if metrics == nil {
		return
	}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var fromSeq int64 = 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events, err := store.Iterate(ctx, sessionID, fromSeq, 0)
			if err != nil || len(events) == 0 {
				continue
			}
			for _, e := range events {
				applyTraceEvent(metrics, e)
				fromSeq = e.Seq + 1
			}
		}
	}
}

func applyTraceEvent(metrics *observability.Metrics, e trace.Event) {
	switch e.Kind {
	case trace.KindStateTransition:
		// KindStateTransition is shared by three producers with distinct
		// payload shapes: agentloop's own phase advancement (marked
		// "phase_transition"), complete() ({"to": "completed"}, no
		// "from"), and the Verification Harness's todo rollback/promotion
		// ({"todo_id", "status"}, no "to"). Only the first is a phase
		// transition proper.
		if transition, _ := e.Payload["phase_transition"].(bool); transition {
			to, _ := e.Payload["to"].(string)
			if to != "" {
				metrics.RecordPhaseTransition(to)
			}
		} else if status, ok := e.Payload["status"].(string); ok {
			metrics.RecordToolCall("verify", status)
		}
	case trace.KindBatchResult:
		outcomes, _ := e.Payload["outcomes"].([]any)
		for _, raw := range outcomes {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			errKind, _ := entry["error_category"].(string)
			metrics.RecordToolCall("batch", errKind)
		}
		if degraded, _ := e.Payload["degraded"].(bool); degraded {
			metrics.RecordBatchDegraded()
		}
	case trace.KindCheckpoint:
		metrics.RecordCheckpoint("pause")
	}
}
