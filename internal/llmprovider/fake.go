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

package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"
)

// Fake is a scripted Provider for tests and replay fixtures: each call to
// Complete returns the next entry in Script, in order. It never talks to
// a network, so the Agent Loop's turn-by-turn procedure can be driven
// deterministically without a real model behind it.
type Fake struct {
	Script []Response
	calls  int
}

// Complete returns the next scripted response, wrapping it in a verbatim
// Raw JSON rendering if the caller did not set one.
func (f *Fake) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	if f.calls >= len(f.Script) {
		return Response{}, fmt.Errorf("llmprovider: fake script exhausted after %d calls", f.calls)
	}
	resp := f.Script[f.calls]
	f.calls++

	if resp.Raw == "" {
		data, _ := json.Marshal(resp)
		resp.Raw = string(data)
	}
	return resp, nil
}

// ModelName identifies this provider in traces.
func (f *Fake) ModelName() string { return "fake-script" }

// Calls reports how many turns have been consumed so far.
func (f *Fake) Calls() int { return f.calls }
