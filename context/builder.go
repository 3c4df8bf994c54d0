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

package context

import (
	stdcontext "context"

	"github.com/jazzpetri/flowsim/clock"
)

// ExecutionContextBuilder assembles an ExecutionContext fluently.
//
// Example:
//
//	ec := context.NewExecutionContextBuilder().
//	    WithLogger(context.NewSlogLogger(slog.Default())).
//	    WithMetrics(context.NewMemoryMetrics()).
//	    Build()
type ExecutionContextBuilder struct {
	ctx           stdcontext.Context
	clock         clock.Clock
	runID         string
	logger        Logger
	metrics       MetricsCollector
	tracer        Tracer
	errorRecorder ErrorRecorder
}

// NewExecutionContextBuilder starts from a background context and NoOp
// observability. The clock stays nil until a simulation installs its own.
func NewExecutionContextBuilder() *ExecutionContextBuilder {
	return &ExecutionContextBuilder{
		ctx:     stdcontext.Background(),
		logger:  &NoOpLogger{},
		metrics: &NoOpMetrics{},
		tracer:  &NoOpTracer{},
	}
}

func (b *ExecutionContextBuilder) WithLogger(logger Logger) *ExecutionContextBuilder {
	b.logger = logger
	return b
}

func (b *ExecutionContextBuilder) WithMetrics(metrics MetricsCollector) *ExecutionContextBuilder {
	b.metrics = metrics
	return b
}

func (b *ExecutionContextBuilder) WithTracer(tracer Tracer) *ExecutionContextBuilder {
	b.tracer = tracer
	return b
}

func (b *ExecutionContextBuilder) WithContext(ctx stdcontext.Context) *ExecutionContextBuilder {
	b.ctx = ctx
	return b
}

func (b *ExecutionContextBuilder) WithClock(clk clock.Clock) *ExecutionContextBuilder {
	b.clock = clk
	return b
}

func (b *ExecutionContextBuilder) WithRunID(id string) *ExecutionContextBuilder {
	b.runID = id
	return b
}

func (b *ExecutionContextBuilder) WithErrorRecorder(recorder ErrorRecorder) *ExecutionContextBuilder {
	b.errorRecorder = recorder
	return b
}

// Build creates the context. Unset slots fall back to NoOp implementations.
func (b *ExecutionContextBuilder) Build() *ExecutionContext {
	ec := NewExecutionContext(b.ctx, b.clock)
	ec.RunID = b.runID
	if b.logger != nil {
		ec.Logger = b.logger
	}
	if b.metrics != nil {
		ec.Metrics = b.metrics
	}
	if b.tracer != nil {
		ec.Tracer = b.tracer
	}
	if b.errorRecorder != nil {
		ec.ErrorRecorder = b.errorRecorder
	}
	return ec
}

// ContextWithExecutionContext stores execCtx in a Go context.
func ContextWithExecutionContext(ctx stdcontext.Context, execCtx *ExecutionContext) stdcontext.Context {
	return stdcontext.WithValue(ctx, executionContextKey, execCtx)
}

// ExecutionContextFromContext retrieves an ExecutionContext stored with
// ContextWithExecutionContext.
func ExecutionContextFromContext(ctx stdcontext.Context) (*ExecutionContext, bool) {
	execCtx, ok := ctx.Value(executionContextKey).(*ExecutionContext)
	return execCtx, ok
}

type contextKey int

const executionContextKey contextKey = 0
