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

import "github.com/google/uuid"

// newID returns an opaque, prefixed identifier. Prefixing by kind (e.g.
// "span", "sess") keeps ids self-describing in logs without requiring a
// lookup, the same convention the teacher uses for its A2A task/context ids.
func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewID exposes newID to sibling packages (session, checkpoint) that need
// to mint ids of their own kind through the same convention.
func NewID(prefix string) string {
	return newID(prefix)
}
