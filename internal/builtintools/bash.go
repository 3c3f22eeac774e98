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

package builtintools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/compymac/agentcore/internal/toolkit"
)

type bashArgs struct {
	Command string `json:"command" jsonschema:"required,description=shell command to run via sh -c"`
}

// NewBashRun builds a shell-out tool under the given category (bash,
// bash-read, or bash-test per spec §4.5's phase table) so the same
// mechanics can be registered under different names/conflict scopes for
// FIX's general commands versus REGRESSION_CHECK/VERIFY's test runs.
// Grounded on the teacher's tools.CommandTool.executeCommand, minus its
// allow-list (phase-category gating already restricts when this tool is
// reachable, per the orchestrator's mode-aware tool selection).
func NewBashRun(name, description, workspaceRoot string, category toolkit.Category, deadline time.Duration) (toolkit.Tool, error) {
	return toolkit.NewTyped(
		name,
		description,
		toolkit.SideEffectMutating,
		[]toolkit.Category{category},
		deadline,
		func(a bashArgs) []string { return []string{"workspace:" + workspaceRoot} },
		func(ctx context.Context, a bashArgs) (map[string]any, error) {
			cmd := exec.CommandContext(ctx, "sh", "-c", a.Command)
			cmd.Dir = workspaceRoot

			start := time.Now()
			output, err := cmd.CombinedOutput()
			elapsed := time.Since(start)

			exitCode := 0
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if err != nil {
				return nil, fmt.Errorf("run command: %w", err)
			}

			return map[string]any{
				"command":       a.Command,
				"output":        strings.TrimSuffix(string(output), "\n"),
				"exit_code":     exitCode,
				"duration_ms":   elapsed.Milliseconds(),
				"command_ok":    exitCode == 0,
			}, nil
		},
	)
}
