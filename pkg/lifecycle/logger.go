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

// Package lifecycle builds the process-level logger and wires its shutdown.
package lifecycle

import (
	"context"

	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/rs/zerolog"
)

// CreateLogger builds an injectable logger from config without touching the
// package-level logger. The level is applied process-wide so ApplyLevel can
// change it later.
func CreateLogger(ctx context.Context, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	output, level, err := logger.Prepare(ctx, config)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(level)

	return logger.New(zerolog.New(output).With().Timestamp().Logger()), nil
}

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	base, err := CreateLogger(ctx, config)
	if err != nil {
		return nil, err
	}

	return logger.Component(base, component), nil
}

// ApplyLevel switches loggers built by CreateLogger to the level described
// by config and returns it. Output and OTel settings are not reloaded.
func ApplyLevel(config *logger.Config) (zerolog.Level, error) {
	level, err := logger.ResolveLevel(config)
	if err != nil {
		return zerolog.GlobalLevel(), err
	}

	zerolog.SetGlobalLevel(level)

	return level, nil
}

// ShutdownLogger shuts down the logger, flushing any pending logs.
func ShutdownLogger() error {
	return logger.Shutdown()
}
