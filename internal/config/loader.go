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

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadEnvFiles loads .env.local then .env into the process environment,
// mirroring the teacher's pkg/config.LoadEnvFiles: a missing file is not
// an error, but a malformed one is. Callers run this once, before Load,
// so that ${VAR} references in the config file can see variables the
// project keeps in a .env file rather than the shell environment.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads a YAML config file at path, expands ${VAR}/${VAR:-default}
// environment references, decodes it strictly into a Config, applies
// defaults and validates the result — the same five-step pipeline as
// the teacher's Loader.Load, narrowed to a single YAML provider since
// this module has no config hot-reload or multi-provider story.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	expanded := expandEnvVars(raw)

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envVarPattern matches ${VAR}, ${VAR:-default} and bare $VAR.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = expandValue(v)
	}
	return out
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return expandEnvVars(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx != -1 {
				name, def := inner[:idx], inner[idx+2:]
				if val, ok := os.LookupEnv(name); ok {
					return val
				}
				return def
			}
			return os.Getenv(inner)
		}
		return os.Getenv(strings.TrimPrefix(match, "$"))
	})
}

// ResolveLoggerSettings applies CLI flag > environment variable >
// config-file > default precedence for the three logger knobs,
// mirroring the teacher's initLoggerFromCLI/determineLogFormat
// precedence chain.
func ResolveLoggerSettings(cliLevel, cliFile, cliFormat string, fromFile LoggerConfig) LoggerConfig {
	level := firstNonEmpty(cliLevel, os.Getenv("AGENTCORE_LOG_LEVEL"), fromFile.Level, "info")
	file := firstNonEmpty(cliFile, os.Getenv("AGENTCORE_LOG_FILE"), fromFile.File)
	format := firstNonEmpty(cliFormat, os.Getenv("AGENTCORE_LOG_FORMAT"), fromFile.Format, "simple")
	return LoggerConfig{Level: level, File: file, Format: format}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
