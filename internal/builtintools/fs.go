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
	"os"
	"strings"
	"time"

	"github.com/compymac/agentcore/internal/toolkit"
)

type readFileArgs struct {
	Path      string `json:"path" jsonschema:"required,description=file path relative to the workspace root"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"description=starting line number (1-indexed),minimum=1"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"description=ending line number (inclusive),minimum=1"`
}

// NewReadFile builds the read_file tool rooted at workspaceRoot.
func NewReadFile(workspaceRoot string) (toolkit.Tool, error) {
	return toolkit.NewTyped(
		"read_file",
		"Read a file's contents, optionally restricted to a line range. Use to understand code before editing it.",
		toolkit.SideEffectReadOnly,
		[]toolkit.Category{toolkit.CategoryRead},
		10*time.Second,
		func(a readFileArgs) []string { return []string{"fs:" + a.Path} },
		func(ctx context.Context, a readFileArgs) (map[string]any, error) {
			abs, err := resolvePath(workspaceRoot, a.Path, true)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", a.Path, err)
			}
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			start, end := 1, len(lines)
			if a.StartLine > 0 {
				start = a.StartLine
			}
			if a.EndLine > 0 && a.EndLine < end {
				end = a.EndLine
			}
			if start > len(lines) {
				return nil, fmt.Errorf("start_line %d exceeds file length %d", start, len(lines))
			}
			if end > len(lines) {
				end = len(lines)
			}
			var b strings.Builder
			for i := start - 1; i < end; i++ {
				fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
			}
			return map[string]any{
				"path":        a.Path,
				"content":     b.String(),
				"total_lines": len(lines),
			}, nil
		},
	)
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=file path relative to the workspace root"`
	Content string `json:"content" jsonschema:"required,description=full file contents to write"`
}

// NewWriteFile builds the write_file tool rooted at workspaceRoot.
func NewWriteFile(workspaceRoot string) (toolkit.Tool, error) {
	return toolkit.NewTyped(
		"write_file",
		"Write (creating or overwriting) a file's full contents.",
		toolkit.SideEffectMutating,
		[]toolkit.Category{toolkit.CategoryWrite},
		10*time.Second,
		func(a writeFileArgs) []string { return []string{"fs:" + a.Path} },
		func(ctx context.Context, a writeFileArgs) (map[string]any, error) {
			abs, err := resolvePath(workspaceRoot, a.Path, false)
			if err != nil {
				return nil, err
			}
			if err := os.WriteFile(abs, []byte(a.Content), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", a.Path, err)
			}
			return map[string]any{"path": a.Path, "bytes_written": len(a.Content)}, nil
		},
	)
}

type editFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=file path relative to the workspace root"`
	Find    string `json:"find" jsonschema:"required,description=exact substring to replace, must appear exactly once"`
	Replace string `json:"replace" jsonschema:"required,description=replacement text"`
}

// NewEditFile builds the edit_file tool, a single-occurrence
// find/replace modeled on the teacher's filetool.search_replace.
func NewEditFile(workspaceRoot string) (toolkit.Tool, error) {
	return toolkit.NewTyped(
		"edit_file",
		"Replace one exact occurrence of a substring in a file. Fails if the substring is missing or appears more than once.",
		toolkit.SideEffectMutating,
		[]toolkit.Category{toolkit.CategoryEdit},
		10*time.Second,
		func(a editFileArgs) []string { return []string{"fs:" + a.Path} },
		func(ctx context.Context, a editFileArgs) (map[string]any, error) {
			abs, err := resolvePath(workspaceRoot, a.Path, true)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", a.Path, err)
			}
			content := string(data)
			count := strings.Count(content, a.Find)
			if count == 0 {
				return nil, fmt.Errorf("find text not present in %s", a.Path)
			}
			if count > 1 {
				return nil, fmt.Errorf("find text appears %d times in %s, must be unique", count, a.Path)
			}
			updated := strings.Replace(content, a.Find, a.Replace, 1)
			if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", a.Path, err)
			}
			return map[string]any{"path": a.Path}, nil
		},
	)
}
