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

package todo

import "errors"

var (
	// ErrNotFound is returned when an operation names an unknown todo id.
	ErrNotFound = errors.New("todo: not found")

	// ErrUnauthorizedTransition is returned when something other than the
	// expected actor attempts a transition reserved to one role — most
	// importantly, when anything but the Verification Harness calls
	// Verify.
	ErrUnauthorizedTransition = errors.New("todo: transition not authorized for this actor")

	// ErrWrongState is returned when an operation's required precondition
	// on Status is not met (e.g. Start on a todo that is not pending).
	ErrWrongState = errors.New("todo: item is not in the required state for this operation")

	// ErrInsufficientEvidence is returned by Claim when the supplied
	// evidence does not bind every acceptance criterion.
	ErrInsufficientEvidence = errors.New("todo: evidence does not cover every acceptance criterion")

	// ErrForeignEvidence is returned when a claim binds an artifact or
	// event reference that does not belong to the claiming session.
	ErrForeignEvidence = errors.New("todo: evidence references another session")

	// ErrEmptyTitle / ErrNoCriteria guard todo_create's inputs.
	ErrEmptyTitle  = errors.New("todo: title must not be empty")
	ErrNoCriteria  = errors.New("todo: at least one acceptance criterion is required")
)
