/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog, with
// optional export of log records and metrics over OTLP.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// ResolveLevel returns the level described by config. Debug wins over Level;
// an empty config means info.
func ResolveLevel(config *Config) (zerolog.Level, error) {
	switch {
	case config == nil:
		return zerolog.InfoLevel, nil
	case config.Debug:
		return zerolog.DebugLevel, nil
	case config.Level == "":
		return zerolog.InfoLevel, nil
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	return level, nil
}

// Prepare resolves the output writer and level described by config. When OTel
// export is enabled and an endpoint is set, records are also shipped to the
// OTLP collector.
func Prepare(ctx context.Context, config *Config) (io.Writer, zerolog.Level, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := ResolveLevel(config)
	if err != nil {
		return nil, level, err
	}

	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := NewOTelWriter(ctx, config.OTel)
		if err != nil {
			return nil, level, err
		}

		output = zerolog.MultiLevelWriter(output, otelWriter)
	}

	return output, level, nil
}

// Shutdown flushes the OTel log and metric pipelines.
func Shutdown() error {
	return ShutdownOTel()
}
