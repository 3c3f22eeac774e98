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
	"fmt"
	"time"

	"github.com/compymac/agentcore/internal/toolkit"
)

// SWEMode is the tool mode bundling every builtin tool — the spec's
// worked example mode name (§3 "Mode": "swe, library, browser, ...").
const SWEMode = "swe"

// Register builds every builtin tool rooted at workspaceRoot, adds each
// to the registry, and grants them all membership in SWEMode. Returns
// the first build, registration or mode-binding error; it does not run
// the registry's coverage check.
func Register(registry *toolkit.Registry, workspaceRoot string) error {
	tools := []struct {
		build func() (toolkit.Tool, error)
	}{
		{func() (toolkit.Tool, error) { return NewReadFile(workspaceRoot) }},
		{func() (toolkit.Tool, error) { return NewWriteFile(workspaceRoot) }},
		{func() (toolkit.Tool, error) { return NewEditFile(workspaceRoot) }},
		{func() (toolkit.Tool, error) { return NewGlobSearch(workspaceRoot) }},
		{func() (toolkit.Tool, error) { return NewGrepSearch(workspaceRoot) }},
		{func() (toolkit.Tool, error) {
			return NewBashRun("bash_run", "Run a shell command in the workspace.", workspaceRoot, toolkit.CategoryBash, 60*time.Second)
		}},
		{func() (toolkit.Tool, error) {
			return NewBashRun("bash_read", "Run a read-only shell command (e.g. ls, cat, find) in the workspace.", workspaceRoot, toolkit.CategoryBashRead, 30*time.Second)
		}},
		{func() (toolkit.Tool, error) {
			return NewBashRun("bash_test", "Run the project's test suite or a specific test command in the workspace.", workspaceRoot, toolkit.CategoryBashTest, 5*time.Minute)
		}},
	}

	for _, t := range tools {
		tool, err := t.build()
		if err != nil {
			return fmt.Errorf("builtintools: build tool: %w", err)
		}
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("builtintools: register tool: %w", err)
		}
		if err := registry.AddToMode(SWEMode, tool.Name()); err != nil {
			return fmt.Errorf("builtintools: add tool to mode: %w", err)
		}
	}
	return nil
}
