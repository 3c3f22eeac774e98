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
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/compymac/agentcore/internal/toolkit"
)

type globSearchArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=glob pattern matched against a file's name or its path relative to the workspace root (filepath.Match syntax, e.g. *.go); '*' does not cross a directory separator"`
}

// NewGlobSearch builds the glob_search tool, a filepath.Match/WalkDir
// based file-name matcher grounded on the teacher's filetool search
// tools' directory-walking style (pkg/context/indexing/pattern_filter.go
// and pkg/tool/filetool's own filepath.Match usage), including the same
// single-segment-only matching filepath.Match gives: neither this tool
// nor the teacher's own supports a recursive "**" glob.
func NewGlobSearch(workspaceRoot string) (toolkit.Tool, error) {
	return toolkit.NewTyped(
		"glob_search",
		"Find files by name using a filepath.Match glob pattern (e.g. '*.go'). Matches against the relative path and the base name; '*' does not cross directories. Use to discover candidate files before reading them.",
		toolkit.SideEffectReadOnly,
		[]toolkit.Category{toolkit.CategoryGlob},
		10*time.Second,
		func(a globSearchArgs) []string { return nil },
		func(ctx context.Context, a globSearchArgs) (map[string]any, error) {
			absRoot, err := filepath.Abs(workspaceRoot)
			if err != nil {
				return nil, fmt.Errorf("invalid workspace root: %w", err)
			}

			var matches []string
			err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(absRoot, path)
				if err != nil {
					return nil
				}
				ok, err := filepath.Match(a.Pattern, rel)
				if err != nil {
					return fmt.Errorf("invalid glob pattern: %w", err)
				}
				if !ok {
					ok, _ = filepath.Match(a.Pattern, filepath.Base(rel))
				}
				if ok {
					matches = append(matches, rel)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			sort.Strings(matches)
			return map[string]any{"matches": matches, "count": len(matches)}, nil
		},
	)
}

type grepSearchArgs struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=regular expression to search for (Go regex syntax)"`
	Path            string `json:"path,omitempty" jsonschema:"description=directory to search, relative to the workspace root,default=."`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=perform a case-insensitive search"`
	MaxResults      int    `json:"max_results,omitempty" jsonschema:"description=maximum number of matches to return,default=200"`
}

type grepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// NewGrepSearch builds the grep_search tool, a regex-over-file-tree
// search grounded on the teacher's filetool.GrepSearchArgs/grepSearchImpl,
// narrowed to drop context-line rendering (the agent can follow up with
// read_file once it has a line number).
func NewGrepSearch(workspaceRoot string) (toolkit.Tool, error) {
	return toolkit.NewTyped(
		"grep_search",
		"Search file contents for a regular expression across the workspace. Returns matching file paths and line numbers.",
		toolkit.SideEffectReadOnly,
		[]toolkit.Category{toolkit.CategorySearch},
		15*time.Second,
		func(a grepSearchArgs) []string { return nil },
		func(ctx context.Context, a grepSearchArgs) (map[string]any, error) {
			pattern := a.Pattern
			if a.CaseInsensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid regex pattern: %w", err)
			}

			searchRoot := a.Path
			if searchRoot == "" {
				searchRoot = "."
			}
			abs, err := resolvePath(workspaceRoot, searchRoot, true)
			if err != nil {
				return nil, err
			}

			maxResults := a.MaxResults
			if maxResults <= 0 {
				maxResults = 200
			}

			var matches []grepMatch
			err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if len(matches) >= maxResults {
					return fs.SkipAll
				}
				if d.IsDir() {
					return nil
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return nil
				}
				rel, err := filepath.Rel(workspaceRoot, path)
				if err != nil {
					rel = path
				}
				lines := splitLines(data)
				for i, line := range lines {
					if len(matches) >= maxResults {
						break
					}
					if re.MatchString(line) {
						matches = append(matches, grepMatch{Path: rel, Line: i + 1, Text: line})
					}
				}
				return nil
			})
			if err != nil && err != fs.SkipAll {
				return nil, err
			}

			return map[string]any{"matches": matches, "count": len(matches)}, nil
		},
	)
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}
