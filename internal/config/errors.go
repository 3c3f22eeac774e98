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

package config

import "fmt"

// ValidationError reports one or more problems found while validating a
// loaded Config, mirroring the teacher's FieldError/StrictValidationResult
// shape without the typo-suggestion machinery this module doesn't need.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("config: %s", e.Problems[0])
	}
	msg := fmt.Sprintf("config: %d problems:", len(e.Problems))
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// Validate checks the config for internally inconsistent or missing
// required values, after defaults have been applied.
func (c *Config) Validate() error {
	var problems []string

	if c.Rollout.Workers < 1 {
		problems = append(problems, "rollout.workers must be >= 1")
	}
	if c.Rollout.DefaultDeadline <= 0 {
		problems = append(problems, "rollout.default_deadline must be positive")
	}
	if c.Observability.SamplingRate < 0 || c.Observability.SamplingRate > 1 {
		problems = append(problems, "observability.sampling_rate must be between 0 and 1")
	}
	switch c.Logger.Format {
	case "simple", "verbose", "json":
	default:
		problems = append(problems, fmt.Sprintf("logger.format %q is not one of simple|verbose|json", c.Logger.Format))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
