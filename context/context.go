// Copyright 2026 The JazzPetri Authors
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

// Package context carries the ambient services of one simulation run:
// cancellation, the simulation clock, logging, metrics, tracing and error
// recording.
//
// Every component of a run reads its collaborators from an ExecutionContext
// rather than from globals. All observability slots default to NoOp
// implementations, so a bare context is always safe to use.
package context

import (
	"context"

	"github.com/jazzpetri/flowsim/clock"
)

// ExecutionContext bundles the services shared by the engine, the model and
// the receivers of one run. It is cheap to copy; the With* methods return
// modified copies and never mutate the receiver.
type ExecutionContext struct {
	// Context is the standard Go context. Cancelling it aborts the run at
	// the next batch boundary.
	Context context.Context

	// Clock is the simulation clock of the run.
	Clock clock.Clock

	// RunID identifies the run in logs and notifications.
	RunID string

	Tracer        Tracer
	Metrics       MetricsCollector
	Logger        Logger
	ErrorRecorder ErrorRecorder
}

// NewExecutionContext creates a context with NoOp observability.
func NewExecutionContext(ctx context.Context, clk clock.Clock) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	ec := &ExecutionContext{
		Context:       ctx,
		Clock:         clk,
		Tracer:        &NoOpTracer{},
		Metrics:       &NoOpMetrics{},
		Logger:        &NoOpLogger{},
		ErrorRecorder: &NoOpErrorRecorder{},
	}
	return ec
}

func (e *ExecutionContext) ensureObservability() {
	if e.Logger == nil {
		e.Logger = &NoOpLogger{}
	}
	if e.Metrics == nil {
		e.Metrics = &NoOpMetrics{}
	}
	if e.Tracer == nil {
		e.Tracer = &NoOpTracer{}
	}
	if e.ErrorRecorder == nil {
		e.ErrorRecorder = &NoOpErrorRecorder{}
	}
	if e.Context == nil {
		e.Context = context.Background()
	}
}

// GetLogger returns the logger, installing a NoOp one when unset.
func (e *ExecutionContext) GetLogger() Logger {
	if e.Logger == nil {
		e.Logger = &NoOpLogger{}
	}
	return e.Logger
}

// GetMetrics returns the metrics collector, installing a NoOp one when unset.
func (e *ExecutionContext) GetMetrics() MetricsCollector {
	if e.Metrics == nil {
		e.Metrics = &NoOpMetrics{}
	}
	return e.Metrics
}

// GetTracer returns the tracer, installing a NoOp one when unset.
func (e *ExecutionContext) GetTracer() Tracer {
	if e.Tracer == nil {
		e.Tracer = &NoOpTracer{}
	}
	return e.Tracer
}

// GetErrorRecorder returns the error recorder, installing a NoOp one when unset.
func (e *ExecutionContext) GetErrorRecorder() ErrorRecorder {
	if e.ErrorRecorder == nil {
		e.ErrorRecorder = &NoOpErrorRecorder{}
	}
	return e.ErrorRecorder
}

// Err reports whether the underlying Go context was cancelled.
func (e *ExecutionContext) Err() error {
	if e.Context == nil {
		return nil
	}
	return e.Context.Err()
}

// WithTracer returns a copy using tracer.
func (e *ExecutionContext) WithTracer(tracer Tracer) *ExecutionContext {
	c := *e
	c.Tracer = tracer
	c.ensureObservability()
	return &c
}

// WithMetrics returns a copy using metrics.
func (e *ExecutionContext) WithMetrics(metrics MetricsCollector) *ExecutionContext {
	c := *e
	c.Metrics = metrics
	c.ensureObservability()
	return &c
}

// WithLogger returns a copy using logger.
func (e *ExecutionContext) WithLogger(logger Logger) *ExecutionContext {
	c := *e
	c.Logger = logger
	c.ensureObservability()
	return &c
}

// WithErrorRecorder returns a copy using recorder.
func (e *ExecutionContext) WithErrorRecorder(recorder ErrorRecorder) *ExecutionContext {
	c := *e
	c.ErrorRecorder = recorder
	c.ensureObservability()
	return &c
}

// WithClock returns a copy using clk.
func (e *ExecutionContext) WithClock(clk clock.Clock) *ExecutionContext {
	c := *e
	c.Clock = clk
	return &c
}

// WithContext returns a copy using ctx.
func (e *ExecutionContext) WithContext(ctx context.Context) *ExecutionContext {
	c := *e
	c.Context = ctx
	c.ensureObservability()
	return &c
}

// WithRunID returns a copy tagged with id.
func (e *ExecutionContext) WithRunID(id string) *ExecutionContext {
	c := *e
	c.RunID = id
	return &c
}

// Clone returns a builder pre-populated with this context's values.
func (e *ExecutionContext) Clone() *ExecutionContextBuilder {
	return &ExecutionContextBuilder{
		ctx:           e.Context,
		clock:         e.Clock,
		runID:         e.RunID,
		logger:        e.Logger,
		metrics:       e.Metrics,
		tracer:        e.Tracer,
		errorRecorder: e.ErrorRecorder,
	}
}
