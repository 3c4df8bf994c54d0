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

// NoOpTracer discards spans.
type NoOpTracer struct{}

func (n *NoOpTracer) StartSpan(name string) Span {
	return &NoOpSpan{}
}

// NoOpSpan discards attributes and errors.
type NoOpSpan struct{}

func (n *NoOpSpan) End() {}

func (n *NoOpSpan) SetAttribute(key string, value interface{}) {}

func (n *NoOpSpan) RecordError(err error) {}

// NoOpMetrics discards metrics.
type NoOpMetrics struct{}

func (n *NoOpMetrics) Inc(name string) {}

func (n *NoOpMetrics) Add(name string, value float64) {}

func (n *NoOpMetrics) Observe(name string, value float64) {}

func (n *NoOpMetrics) Set(name string, value float64) {}

// NoOpLogger discards log lines.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{}) {}

func (n *NoOpLogger) Warn(msg string, fields map[string]interface{}) {}

func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
