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

// Package trace implements the append-only, content-addressed Trace Store:
// the durable record of everything that happens in a session, plus the
// blob storage that backs large artifacts (prompts, tool output, snapshots).
package trace

import "time"

// Kind enumerates the event kinds recorded in a session's trace.
type Kind string

const (
	KindSpanStart       Kind = "SPAN_START"
	KindSpanEnd         Kind = "SPAN_END"
	KindToolCall        Kind = "TOOL_CALL"
	KindToolResult      Kind = "TOOL_RESULT"
	KindLLMRequest      Kind = "LLM_REQUEST"
	KindLLMResponse     Kind = "LLM_RESPONSE"
	KindStateTransition Kind = "STATE_TRANSITION"
	KindError           Kind = "ERROR"
	KindCheckpoint      Kind = "CHECKPOINT"
	KindHumanInput      Kind = "HUMAN_INPUT"
	KindBatchResult     Kind = "BATCH_RESULT"
)

// Event is an immutable record appended to a session's trace.
// Events are never modified or deleted once appended; the sequence number
// assigned by the store is gap-free and strictly monotonic per session.
type Event struct {
	SessionID    string
	Seq          int64
	WallClock    time.Time
	Monotonic    int64 // nanoseconds since store process start, for local ordering under clock skew
	ParentSpan   string // span ID this event belongs to, empty for session-root events
	Kind         Kind
	Payload      map[string]any
	CorrelationID string // binds TOOL_CALL to its TOOL_RESULT/ERROR
}

// Span is a named, parent-linked range of events. Every tool call opens its
// own span; parallel tool calls produce sibling spans sharing a fork parent
// and a single join span at fan-in.
type Span struct {
	ID         string
	SessionID  string
	Name       string
	ParentID   string // empty for a root span
	StartSeq   int64
	EndSeq     int64 // 0 until closed
	Status     string
	Attributes map[string]any
	Closed     bool
}

// Artifact is a content-addressed opaque blob. Identical content always
// yields the identical identifier, and artifacts are never mutated once
// written.
type Artifact struct {
	ID   string // hex-encoded content hash
	Size int64
}
