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

type Logger interface {
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
}

// singletonLogger adapts the package-level Init/Info/Warn/... functions
// (backed by the single process-wide zerolog instance) to the Logger
// interface, so components can depend on an injected Logger value instead
// of calling the package-level functions directly.
type singletonLogger struct{}

// New returns a Logger backed by the singleton initialized by Init. Call
// Init before New if a non-default Config is needed.
func New() Logger {
	return singletonLogger{}
}

func (singletonLogger) Info() *zerolog.Event  { return Info() }
func (singletonLogger) Warn() *zerolog.Event  { return Warn() }
func (singletonLogger) Error() *zerolog.Event { return Error() }
func (singletonLogger) Fatal() *zerolog.Event { return Fatal() }
func (singletonLogger) With() zerolog.Context { return With() }
func (singletonLogger) WithComponent(component string) zerolog.Logger {
	return WithComponent(component)
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	nopLogger := zerolog.New(io.Discard).Level(zerolog.Disabled)
	return &testLogger{nop: nopLogger}
}

// testLogger is a simple logger implementation for testing
type testLogger struct {
	nop zerolog.Logger
}

func (t *testLogger) Info() *zerolog.Event  { return t.nop.Info() }
func (t *testLogger) Warn() *zerolog.Event  { return t.nop.Warn() }
func (t *testLogger) Error() *zerolog.Event { return t.nop.Error() }
func (t *testLogger) Fatal() *zerolog.Event { return t.nop.Fatal() }
func (t *testLogger) With() zerolog.Context { return t.nop.With() }
func (t *testLogger) WithComponent(component string) zerolog.Logger {
	return t.nop.With().Str("component", component).Logger()
}
