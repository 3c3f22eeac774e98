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

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/compymac/agentcore/internal/llmprovider"
)

// fingerprint hashes a tool call's name and arguments so repeated,
// argument-identical calls collapse to the same token (spec §4.6:
// "identical tool-call argument hashes").
func fingerprint(tc llmprovider.ToolCallRequest) string {
	data, _ := json.Marshal(tc.Arguments)
	sum := sha256.Sum256(append([]byte(tc.Name+":"), data...))
	return hex.EncodeToString(sum[:])
}

// recordFingerprints appends this turn's call fingerprints to the
// sliding window, capped at stuckWindow entries.
func (l *Loop) recordFingerprints(calls []llmprovider.ToolCallRequest) {
	fps := make([]string, len(calls))
	for i, tc := range calls {
		fps[i] = fingerprint(tc)
	}
	sort.Strings(fps)
	l.window = append(l.window, fps)
	if len(l.window) > stuckWindow {
		l.window = l.window[len(l.window)-stuckWindow:]
	}
}

// checkStuckness reports whether this turn's calls contributed nothing
// novel relative to the preceding stuckWindow turns, and the window is
// already full — i.e. at least stuckWindow consecutive turns produced no
// new information.
func (l *Loop) checkStuckness(calls []llmprovider.ToolCallRequest) bool {
	if len(l.window) < stuckWindow {
		l.noNovel = 0
		return false
	}

	prior := make(map[string]bool)
	// checkStuckness is called before recordFingerprints in the turn
	// procedure, so window here holds only prior turns, not this one.
	for _, turn := range l.window {
		for _, fp := range turn {
			prior[fp] = true
		}
	}

	novel := false
	for _, tc := range calls {
		if !prior[fingerprint(tc)] {
			novel = true
			break
		}
	}

	if novel {
		l.noNovel = 0
		return false
	}
	l.noNovel++
	if l.noNovel >= stuckWindow {
		l.noNovel = 0
		return true
	}
	return false
}
