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

package agentloop

import "context"

// Run drives turns until the loop completes, pauses, fails, or maxTurns
// is exhausted (a safety backstop for tests and CLI invocations; zero
// means unbounded).
func (l *Loop) Run(ctx context.Context, maxTurns int) (Outcome, error) {
	for turn := 0; maxTurns == 0 || turn < maxTurns; turn++ {
		outcome, err := l.RunTurn(ctx)
		if err != nil {
			return OutcomeFailed, err
		}
		if outcome != OutcomeContinue {
			return outcome, nil
		}
	}
	return OutcomeContinue, nil
}
