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

package bridge_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compymac/agentcore/internal/bridge"
)

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	reg := bridge.NewRegistry()
	reg.Register("pause", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return map[string]any{"session_id": payload["session_id"]}, nil
	})

	resp := reg.Dispatch(context.Background(), bridge.Request{Action: "pause", Payload: map[string]any{"session_id": "s1"}})
	assert.Equal(t, bridge.StatusSuccess, resp.Status)
	assert.Equal(t, "s1", resp.Result["session_id"])
}

func TestDispatchUnknownActionReturnsErrorEnvelope(t *testing.T) {
	reg := bridge.NewRegistry()
	resp := reg.Dispatch(context.Background(), bridge.Request{Action: "nonexistent"})
	assert.Equal(t, bridge.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "unknown action")
}

func TestDispatchHandlerErrorBecomesErrorEnvelope(t *testing.T) {
	reg := bridge.NewRegistry()
	reg.Register("fail", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return nil, errors.New("boom")
	})
	resp := reg.Dispatch(context.Background(), bridge.Request{Action: "fail"})
	assert.Equal(t, bridge.StatusError, resp.Status)
	assert.Equal(t, "boom", resp.Message)
}

func TestHandlerIsIdempotentAcrossRepeatedDelivery(t *testing.T) {
	var calls atomic.Int32
	reg := bridge.NewRegistry()
	reg.Register("ack", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		calls.Add(1)
		return map[string]any{"acked": true}, nil
	})

	for i := 0; i < 3; i++ {
		resp := reg.Dispatch(context.Background(), bridge.Request{Action: "ack"})
		assert.Equal(t, bridge.StatusSuccess, resp.Status)
		assert.Equal(t, true, resp.Result["acked"])
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestRegisterReplacesPreviousHandlerForSameAction(t *testing.T) {
	reg := bridge.NewRegistry()
	reg.Register("action", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return map[string]any{"v": 1}, nil
	})
	reg.Register("action", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return map[string]any{"v": 2}, nil
	})

	resp := reg.Dispatch(context.Background(), bridge.Request{Action: "action"})
	assert.Equal(t, 2, resp.Result["v"])
}
