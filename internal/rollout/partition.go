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

package rollout

import "github.com/compymac/agentcore/internal/toolkit"

// partition groups call indices into waves: within a wave no two calls
// share an exclusive conflict key, and waves run strictly one after
// another. It is a greedy first-fit bin-pack over submission order,
// which maximizes parallelism for the common case of mostly-independent
// calls without the overhead of computing an optimal partition (spec
// §4.4 step 1).
func partition(calls []CallSpec) [][]int {
	var waves [][]int
	var waveKeys []map[string]bool

	for i, c := range calls {
		placed := false
		for w := range waves {
			if !toolkit.ConflictsWith(c.ConflictKeys, keysSlice(waveKeys[w])) {
				waves[w] = append(waves[w], i)
				for _, k := range c.ConflictKeys {
					waveKeys[w][k] = true
				}
				placed = true
				break
			}
		}
		if !placed {
			waves = append(waves, []int{i})
			m := make(map[string]bool, len(c.ConflictKeys))
			for _, k := range c.ConflictKeys {
				m[k] = true
			}
			waveKeys = append(waveKeys, m)
		}
	}
	return waves
}

func keysSlice(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
