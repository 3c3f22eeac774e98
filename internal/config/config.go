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

// Package config loads the agent execution core's YAML configuration,
// grounded on the teacher's pkg/config/loader.go (YAML-then-env-expand
// -then-mapstructure-decode pipeline, strict about typos). Unlike the
// teacher's config-first agent assembly, this module's config only
// governs the ambient stack (logging, storage locations, provider
// wiring, concurrency bounds, observability) — agent behavior itself
// comes from SPEC_FULL.md's fixed component set, not a user-authored
// agent graph.
package config

import (
	"time"
)

// Config is the root of the agent execution core's configuration file.
type Config struct {
	Logger        LoggerConfig        `yaml:"logger"`
	Store         StoreConfig         `yaml:"store"`
	Rollout       RolloutConfig       `yaml:"rollout"`
	Provider      ProviderConfig      `yaml:"provider"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LoggerConfig selects the process-wide slog configuration (see
// pkg/corelog).
type LoggerConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// StoreConfig locates the trace store's sqlite file and blob directory.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	BlobDir      string `yaml:"blob_dir"`
}

// RolloutConfig holds the rollout orchestrator's settings. Only Workers
// reaches the orchestrator (through session.New); DefaultDeadline and
// GracePeriod are defaulted and validated here but not read by it, which
// applies its own rollout.DefaultDeadline (60s) and a 2s grace period.
type RolloutConfig struct {
	Workers         int           `yaml:"workers"`
	DefaultDeadline time.Duration `yaml:"default_deadline"`
	GracePeriod     time.Duration `yaml:"grace_period"`
}

// ProviderConfig selects and authenticates the LLM provider. APIKey is
// expected to arrive via ${ENV_VAR} expansion, never written in plaintext.
type ProviderConfig struct {
	Kind   string `yaml:"kind"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// ObservabilityConfig wires internal/observability's tracer and metrics.
type ObservabilityConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled"`
	ExporterType   string  `yaml:"exporter_type"`
	EndpointURL    string  `yaml:"endpoint_url"`
	SamplingRate   float64 `yaml:"sampling_rate"`
	ServiceName    string  `yaml:"service_name"`
	MetricsEnabled bool    `yaml:"metrics_enabled"`
	MetricsAddr    string  `yaml:"metrics_addr"`
}

// SetDefaults fills in zero-valued fields with the core's defaults,
// mirroring the teacher's per-section SetDefaults cascade.
func (c *Config) SetDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "simple"
	}
	if c.Store.DatabasePath == "" {
		c.Store.DatabasePath = ".agentcore/trace.db"
	}
	if c.Store.BlobDir == "" {
		c.Store.BlobDir = ".agentcore/blobs"
	}
	if c.Rollout.Workers <= 0 {
		c.Rollout.Workers = 4
	}
	if c.Rollout.DefaultDeadline <= 0 {
		c.Rollout.DefaultDeadline = 60 * time.Second
	}
	if c.Rollout.GracePeriod <= 0 {
		c.Rollout.GracePeriod = 2 * time.Second
	}
	if c.Observability.ExporterType == "" {
		c.Observability.ExporterType = "stdout"
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "agentcore"
	}
	if c.Observability.MetricsAddr == "" {
		c.Observability.MetricsAddr = ":9090"
	}
	if c.Observability.SamplingRate == 0 {
		c.Observability.SamplingRate = 1.0
	}
}
