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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the structured logger injected into every component.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
	WithFields(fields map[string]interface{}) zerolog.Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

// New wraps a zerolog.Logger so it satisfies Logger.
func New(z zerolog.Logger) Logger {
	return &zeroLogger{z: z}
}

// Component returns a child of l tagged with the component name.
func Component(l Logger, component string) Logger {
	return &zeroLogger{z: l.WithComponent(component)}
}

type zeroLogger struct {
	z zerolog.Logger
}

func (l *zeroLogger) Trace() *zerolog.Event { return l.z.Trace() }
func (l *zeroLogger) Debug() *zerolog.Event { return l.z.Debug() }
func (l *zeroLogger) Info() *zerolog.Event  { return l.z.Info() }
func (l *zeroLogger) Warn() *zerolog.Event  { return l.z.Warn() }
func (l *zeroLogger) Error() *zerolog.Event { return l.z.Error() }
func (l *zeroLogger) Fatal() *zerolog.Event { return l.z.Fatal() }
func (l *zeroLogger) Panic() *zerolog.Event { return l.z.Panic() }
func (l *zeroLogger) With() zerolog.Context { return l.z.With() }

func (l *zeroLogger) WithComponent(component string) zerolog.Logger {
	return l.z.With().Str("component", component).Logger()
}

func (l *zeroLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.z.With().Fields(fields).Logger()
}

func (l *zeroLogger) SetLevel(level zerolog.Level) { l.z = l.z.Level(level) }

func (l *zeroLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return &zeroLogger{z: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}
