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

// Tracer starts spans around coarse run phases (validation, run, batch).
type Tracer interface {
	// StartSpan creates a span. Callers must End it.
	//
	// Example:
	//   span := tracer.StartSpan("engine.run")
	//   defer span.End()
	StartSpan(name string) Span
}

// Span is one traced operation.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// MetricsCollector receives counters, gauges and observations.
//
// Metric names are snake_case and carry a component prefix, for example
// engine_events_total or sim_zone_merges_total.
type MetricsCollector interface {
	// Inc increments a counter by 1.
	Inc(name string)

	// Add adds value to a counter.
	Add(name string, value float64)

	// Observe records one sample of a distribution.
	//
	// Example:
	//   metrics.Observe("engine_batch_size", float64(len(batch)))
	Observe(name string, value float64)

	// Set sets a gauge.
	Set(name string, value float64)
}

// Logger is a leveled structured logger. Field keys are snake_case
// (simulation_id, element_id, timestamp, operation).
type Logger interface {
	// Debug logs detail useful when tracing a single run.
	//
	// Example:
	//   logger.Debug("element started", map[string]interface{}{
	//       "element_id": 12,
	//       "timestamp":  30,
	//   })
	Debug(msg string, fields map[string]interface{})

	// Info logs run lifecycle messages.
	Info(msg string, fields map[string]interface{})

	// Warn logs recoverable anomalies.
	Warn(msg string, fields map[string]interface{})

	// Error logs failures that abort a run.
	Error(msg string, fields map[string]interface{})
}
