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

// Package bridge defines the request/response envelope an external
// collaborator (e.g. a desktop host) uses to talk to a session, and an
// idempotent action-handler registry (spec §6, SPEC_FULL.md §4.10). It
// is deliberately transport-agnostic: no WebSocket, pipe or HTTP code
// lives here, only the envelope shape and dispatch, the way the
// teacher's pkg/a2a package separates its protocol types from its
// concrete HTTP/gRPC transports.
package bridge

import (
	"context"
	"fmt"
	"sync"
)

// Status is the outcome discriminator on a Response envelope.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request is the envelope an external collaborator sends in.
type Request struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

// Response is the envelope sent back. Result is populated on success,
// Message on error; exactly one is ever set.
type Response struct {
	Action  string         `json:"action"`
	Status  Status         `json:"status"`
	Result  map[string]any `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Handler processes one action's payload and returns a result, or an
// error to be reported as a StatusError response. Handlers must be
// idempotent: the bridge's delivery guarantee is at-least-once, so the
// same Request may arrive more than once (spec §6).
type Handler func(ctx context.Context, payload map[string]any) (map[string]any, error)

// ErrUnknownAction is returned by Dispatch when no handler is registered
// for a Request's action.
var ErrUnknownAction = fmt.Errorf("bridge: unknown action")

// Registry maps action names to idempotent handlers and dispatches
// incoming requests to them, turning ordinary Go errors into the
// envelope's error-status shape.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry builds an empty action registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an action name. Registering the same
// action twice replaces the previous handler.
func (r *Registry) Register(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Dispatch routes req to its registered handler and always returns a
// well-formed Response, never a bare Go error — callers on the transport
// side only ever need to serialize what Dispatch returns.
func (r *Registry) Dispatch(ctx context.Context, req Request) Response {
	r.mu.RLock()
	h, ok := r.handlers[req.Action]
	r.mu.RUnlock()

	if !ok {
		return Response{Action: req.Action, Status: StatusError, Message: ErrUnknownAction.Error()}
	}

	result, err := h(ctx, req.Payload)
	if err != nil {
		return Response{Action: req.Action, Status: StatusError, Message: err.Error()}
	}
	return Response{Action: req.Action, Status: StatusSuccess, Result: result}
}
