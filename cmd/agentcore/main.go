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

// Command agentcore is the CLI front end for the agent execution core
// (spec §6), modeled on the teacher's cmd/hector/main.go: a kong command
// tree, global logging flags resolved with CLI > env > config-file
// precedence, and a process-wide slog logger installed before any
// subcommand runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/compymac/agentcore/internal/builtintools"
	"github.com/compymac/agentcore/internal/config"
	"github.com/compymac/agentcore/internal/llmprovider"
	"github.com/compymac/agentcore/internal/observability"
	"github.com/compymac/agentcore/internal/phase"
	"github.com/compymac/agentcore/internal/session"
	"github.com/compymac/agentcore/internal/todo"
	"github.com/compymac/agentcore/internal/toolkit"
	"github.com/compymac/agentcore/internal/trace"
	"github.com/compymac/agentcore/pkg/corelog"
)

// exit codes per spec §6.
const (
	exitSuccess          = 0
	exitUserError        = 1
	exitSessionFailed    = 2
	exitVerifierRejected = 3
	exitInternal         = 4
)

// CLI is the root command tree.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Start a new session with a goal."`
	Resume  ResumeCmd  `cmd:"" help:"Resume a paused session from its latest checkpoint."`
	Pause   PauseCmd   `cmd:"" help:"Pause a running session, writing a checkpoint."`
	List    ListCmd    `cmd:"" help:"List sessions."`
	Inspect InspectCmd `cmd:"" help:"Replay a session's trace from a sequence number."`
	Fork    ForkCmd    `cmd:"" help:"Fork a new session from an existing checkpoint."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

func main() {
	var cli CLI
	parser := kong.Must(&cli, kong.Name("agentcore"), kong.Description("CompyMac agent execution core"))
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, logCfg := loadConfig(cli)
	corelog.Init(corelog.ParseLevel(logCfg.Level), openLogOutput(logCfg.File), corelog.Format(logCfg.Format))

	ctx := context.Background()
	metrics, shutdownObservability = initObservability(ctx, cfg)

	err = kctx.Run(ctx, cfg)
	// os.Exit below does not run deferred calls, so the metrics server is
	// shut down explicitly rather than via defer.
	shutdownObservability()
	os.Exit(exitCodeOf(err))
}

// metrics is process-wide: every command in one invocation shares the
// single Prometheus registry and tracer provider installed by
// initObservability, mirroring the teacher's single process-wide
// metrics.Registry rather than one per command.
var (
	metrics               *observability.Metrics
	shutdownObservability func()
)

// codeError carries one of spec §6's five exit codes out of a command's
// Run method; kong's ctx.Run only plumbs back an error, so this is the
// vehicle. A plain error (or none) from Run maps to exitInternal/
// exitSuccess via exitCodeOf.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func exitCode(code int, err error) error {
	if code == exitSuccess {
		return nil
	}
	return &codeError{code: code, err: err}
}

func exitCodeOf(err error) int {
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(os.Stderr, err.Error())
	if ce, ok := err.(*codeError); ok {
		return ce.code
	}
	return exitInternal
}

func loadConfig(cli CLI) (*config.Config, config.LoggerConfig) {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "agentcore: %v\n", err)
		os.Exit(exitUserError)
	}

	cfg := &config.Config{}
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentcore: %v\n", err)
			os.Exit(exitUserError)
		}
		cfg = loaded
	} else {
		cfg.SetDefaults()
	}
	logCfg := config.ResolveLoggerSettings(cli.LogLevel, cli.LogFile, cli.LogFormat, cfg.Logger)
	cfg.Logger = logCfg
	return cfg, logCfg
}

func openLogOutput(path string) *os.File {
	if path == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentcore: open log file %s: %v\n", path, err)
		return os.Stderr
	}
	return f
}

func openStore(cfg *config.Config) (*trace.Store, error) {
	store, err := trace.Open(cfg.Store.DatabasePath, cfg.Store.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}
	return store, nil
}

// buildSessionManager wires a session.Manager whose builtin tools are
// rooted at workspaceRoot. Commands that operate on an existing session
// (resume/pause) resolve workspaceRoot from that session's manifest
// first, since the workspace root is fixed at session creation and isn't
// repeated on every subsequent CLI invocation.
func buildSessionManager(cfg *config.Config, store *trace.Store, workspaceRoot string) (*session.Manager, error) {
	registry, err := defaultRegistry(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	return session.New(store, registry, cfg.Rollout.Workers), nil
}

// defaultRegistry builds the process-wide builtin-tool registry. Per-
// session todo_* tools are layered on top of a clone of this registry by
// session.Manager, since they close over one session's Todo Manager
// (see session.Manager.sessionRegistry); CheckCoverage is deferred to
// that per-session registry for the same reason — the builtin-only
// registry built here is deliberately not coverage-checked.
func defaultRegistry(workspaceRoot string) (*toolkit.Registry, error) {
	registry := toolkit.NewRegistry()
	if err := builtintools.Register(registry, workspaceRoot); err != nil {
		return nil, err
	}
	return registry, nil
}

func buildProvider(cfg *config.Config) (llmprovider.Provider, error) {
	switch cfg.Provider.Kind {
	case "", "fake":
		return &llmprovider.Fake{}, nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q (only %q is wired in this build)", cfg.Provider.Kind, "fake")
	}
}

func newSessionID() string {
	return "sess_" + uuid.NewString()
}

func defaultPromptBuilder(mode string, ph phase.Name, items []*todo.Item) string {
	return fmt.Sprintf("mode=%s phase=%s open_todos=%d", mode, ph, len(items))
}
