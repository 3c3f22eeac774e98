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

package builtintools_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compymac/agentcore/internal/builtintools"
	"github.com/compymac/agentcore/internal/toolkit"
)

func TestGlobSearchFindsMatchingFilesByExtension(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("not go"), 0o644))

	tool, err := builtintools.NewGlobSearch(root)
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), map[string]any{"pattern": "*.go"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out["count"])
}

func TestGrepSearchFindsMatchingLineAndNumber(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("line one\nfunc target() {}\nline three\n"), 0o644))

	tool, err := builtintools.NewGrepSearch(root)
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), map[string]any{"pattern": "func target"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out["count"])
}

func TestGrepSearchStopsWalkingOnceMaxResultsReached(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		name := filepath.Join(root, fmt.Sprintf("f%d.go", i))
		require.NoError(t, os.WriteFile(name, []byte("needle\n"), 0o644))
	}

	tool, err := builtintools.NewGrepSearch(root)
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), map[string]any{"pattern": "needle", "max_results": 3})
	require.NoError(t, err)
	assert.EqualValues(t, 3, out["count"], "the walk must stop as soon as max_results is reached, not merely stop appending")
}

func TestGrepSearchRejectsInvalidRegexPattern(t *testing.T) {
	root := t.TempDir()
	tool, err := builtintools.NewGrepSearch(root)
	require.NoError(t, err)

	_, err = tool.Invoke(context.Background(), map[string]any{"pattern": "("})
	assert.Error(t, err)
}

func TestBashRunReportsExitCodeAndOutput(t *testing.T) {
	root := t.TempDir()
	tool, err := builtintools.NewBashRun("bash_run", "run a command", root, toolkit.CategoryBash, 5*time.Second)
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, out["exit_code"])
	assert.Equal(t, "hi", out["output"])
}

func TestBashRunCapturesNonZeroExitWithoutInvokeError(t *testing.T) {
	root := t.TempDir()
	tool, err := builtintools.NewBashRun("bash_test", "run tests", root, toolkit.CategoryBashTest, 5*time.Second)
	require.NoError(t, err)

	out, err := tool.Invoke(context.Background(), map[string]any{"command": "exit 7"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, out["exit_code"])
	assert.Equal(t, false, out["command_ok"])
}
