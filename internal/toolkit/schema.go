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

package toolkit

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema derives a JSON Schema for a typed argument struct using
// its `json`/`jsonschema` struct tags. Typed tools built with NewTyped
// call this once at construction time rather than hand-writing a schema
// map, the same division of labor as the teacher's functiontool package.
func GenerateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("toolkit: marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("toolkit: unmarshal schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")

	if out["type"] == "object" {
		result := map[string]any{"type": "object", "properties": out["properties"]}
		if req, ok := out["required"]; ok {
			result["required"] = req
		}
		if ap, ok := out["additionalProperties"]; ok {
			result["additionalProperties"] = ap
		}
		return result, nil
	}
	return out, nil
}

// DecodeArgs converts the LLM-supplied arguments map into a typed struct
// via a JSON round-trip, so field types (numbers, nested objects, slices)
// convert the same way they would over the wire.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var target T
	if args == nil {
		return target, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return target, fmt.Errorf("toolkit: marshal args: %w", err)
	}
	if err := json.Unmarshal(data, &target); err != nil {
		return target, fmt.Errorf("toolkit: unmarshal args: %w", err)
	}
	return target, nil
}
