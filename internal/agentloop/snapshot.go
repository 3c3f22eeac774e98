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
	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/todo"
)

// Snapshot is everything the checkpoint package needs to serialize and
// later restore a Loop's in-memory state (spec §4.7's checkpoint
// contents, minus what is already durable in the trace store — the
// event log itself is never duplicated into a snapshot).
type Snapshot struct {
	History        []llmprovider.Message
	Phase          phase.Name
	Mode           string
	Todos          []*todo.Item
	Window         [][]string
	NoNovel        int
	RejectionCount int
}

// Snapshot captures the Loop's current in-memory state.
func (l *Loop) Snapshot() Snapshot {
	return Snapshot{
		History:        append([]llmprovider.Message(nil), l.history...),
		Phase:          l.Phase.Current(),
		Mode:           l.Mode,
		Todos:          l.Todos.List(),
		Window:         append([][]string(nil), l.window...),
		NoNovel:        l.noNovel,
		RejectionCount: l.lastRejectionCount,
	}
}

// Restore puts the Loop back into the state recorded by a Snapshot. The
// phase and todo state themselves are restored by the caller (the
// checkpoint package), since Phase.Controller and todo.Manager do not
// expose setters here by design — only session.Manager, which owns
// their construction, rebuilds them from the snapshot's todo/phase data.
// RejectionCount must be restored alongside lastRejectionCount: it is
// the Agent Loop's own last-seen value of todo.Manager.RejectionCount,
// compared against the manager's restored counter to detect a fresh
// rejection (see advancePhase); losing it on resume would make a
// rejection recorded just before a pause invisible to the VERIFY->FIX
// back-edge check.
func (l *Loop) Restore(snap Snapshot) {
	l.history = append([]llmprovider.Message(nil), snap.History...)
	l.Mode = snap.Mode
	l.window = append([][]string(nil), snap.Window...)
	l.noNovel = snap.NoNovel
	l.lastRejectionCount = snap.RejectionCount
}
