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

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters/histograms/gauges for the parts
// of the execution core an operator actually watches: turns, tool
// dispatch, phase transitions and checkpoint writes. Narrowed from the
// teacher's sprawling Metrics struct (agent/LLM/RAG/HTTP/memory
// subsystems this module does not have) down to the domains
// SPEC_FULL.md's components actually emit.
type Metrics struct {
	registry *prometheus.Registry

	turnsTotal      *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
	toolCallErrors  *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	checkpointsTotal *prometheus.CounterVec
	sessionsActive  *prometheus.GaugeVec
	batchDegraded   *prometheus.CounterVec
}

// NewMetrics builds and registers a fresh Metrics collector.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.turnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "loop", Name: "turns_total",
		Help: "Total agent loop turns, by outcome.",
	}, []string{"outcome"})

	m.turnDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "loop", Name: "turn_duration_seconds",
		Help:    "Wall-clock duration of one RunTurn call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	m.toolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "rollout", Name: "tool_calls_total",
		Help: "Total tool invocations dispatched by the rollout orchestrator.",
	}, []string{"tool"})

	m.toolCallErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "rollout", Name: "tool_call_errors_total",
		Help: "Total tool invocation failures, by error kind.",
	}, []string{"tool", "kind"})

	m.phaseTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "phase", Name: "transitions_total",
		Help: "Total phase transitions, by destination phase.",
	}, []string{"phase"})

	m.checkpointsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "checkpoint", Name: "writes_total",
		Help: "Total checkpoints written, by trigger (pause/periodic).",
	}, []string{"trigger"})

	m.sessionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "session", Name: "active",
		Help: "Currently live sessions held by the session manager.",
	}, []string{"status"})

	m.batchDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "rollout", Name: "batches_degraded_total",
		Help: "Total rollout batches that had to detach a worker past its grace period.",
	}, []string{})

	m.registry.MustRegister(
		m.turnsTotal, m.turnDuration, m.toolCallsTotal, m.toolCallErrors,
		m.phaseTransitions, m.checkpointsTotal, m.sessionsActive, m.batchDegraded,
	)
	return m
}

// RecordTurn observes a completed turn's outcome and duration.
func (m *Metrics) RecordTurn(outcome, phase string, d time.Duration) {
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordToolCall observes one tool invocation, incrementing the error
// counter too when kind is non-empty.
func (m *Metrics) RecordToolCall(tool, errKind string) {
	m.toolCallsTotal.WithLabelValues(tool).Inc()
	if errKind != "" {
		m.toolCallErrors.WithLabelValues(tool, errKind).Inc()
	}
}

// RecordPhaseTransition observes a successful phase transition.
func (m *Metrics) RecordPhaseTransition(phase string) {
	m.phaseTransitions.WithLabelValues(phase).Inc()
}

// RecordCheckpoint observes a checkpoint write.
func (m *Metrics) RecordCheckpoint(trigger string) {
	m.checkpointsTotal.WithLabelValues(trigger).Inc()
}

// RecordBatchDegraded observes a rollout batch that detached a worker.
func (m *Metrics) RecordBatchDegraded() {
	m.batchDegraded.WithLabelValues().Inc()
}

// SetActiveSessions reports the current live-session count for a status.
func (m *Metrics) SetActiveSessions(status string, count int) {
	m.sessionsActive.WithLabelValues(status).Set(float64(count))
}

// Handler exposes the registry's scrape endpoint for wiring into an
// HTTP mux (e.g. under /metrics).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
