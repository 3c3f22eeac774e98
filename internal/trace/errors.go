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

package trace

import "errors"

var (
	// ErrSessionClosed is returned by AppendEvent when the session has
	// already reached a terminal status (completed/failed).
	ErrSessionClosed = errors.New("trace: session is closed")

	// ErrNotFound is returned by GetArtifact and GetSession for unknown
	// ids. CloseSpan on an unknown span id returns a wrapped lookup error
	// instead.
	ErrNotFound = errors.New("trace: not found")

	// ErrSpanNotClosed is returned by CloseSpan's invariant check when a
	// child span is still open.
	ErrSpanNotClosed = errors.New("trace: child span still open")

	// ErrSpanAlreadyClosed guards against double-closing a span.
	ErrSpanAlreadyClosed = errors.New("trace: span already closed")
)
