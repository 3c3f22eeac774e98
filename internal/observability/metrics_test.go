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

package observability_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/observability"
)

func TestMetricsHandlerExposesRecordedCounters(t *testing.T) {
	m := observability.NewMetrics("agentcore_test")
	m.RecordTurn("continue", "LOCALIZE", 50*time.Millisecond)
	m.RecordToolCall("read_file", "")
	m.RecordToolCall("bash", "timeout")
	m.RecordPhaseTransition("UNDERSTAND")
	m.RecordCheckpoint("pause")
	m.RecordBatchDegraded()
	m.SetActiveSessions("running", 3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "agentcore_test_loop_turns_total")
	assert.Contains(t, body, "agentcore_test_rollout_tool_call_errors_total")
	assert.Contains(t, body, "agentcore_test_phase_transitions_total")
	assert.Contains(t, body, "agentcore_test_checkpoint_writes_total")
	assert.Contains(t, body, "agentcore_test_rollout_batches_degraded_total")
	assert.Contains(t, body, "agentcore_test_session_active")
}

func TestInitTracerReturnsNoopProviderWhenDisabled(t *testing.T) {
	tp, err := observability.InitTracer(context.Background(), observability.TracerConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestInitTracerBuildsStdoutProviderWhenEnabled(t *testing.T) {
	tp, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		Enabled:      true,
		ExporterType: "stdout",
		SamplingRate: 1.0,
		ServiceName:  "agentcore-test",
	})
	require.NoError(t, err)
	require.NotNil(t, tp)
}
