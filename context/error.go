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

import "sync"

// ErrorRecorder records errors for observability. It is called for every
// run abort and every model validation failure, whether or not the caller
// handles the returned error.
type ErrorRecorder interface {
	// RecordError records err with optional metadata such as
	// "simulation_id", "entity", "timestamp" or "phase".
	RecordError(err error, metadata map[string]interface{})
}

// NoOpErrorRecorder discards errors.
type NoOpErrorRecorder struct{}

func (n *NoOpErrorRecorder) RecordError(err error, metadata map[string]interface{}) {}

// RecordedError is one entry of a MemoryErrorRecorder.
type RecordedError struct {
	Err      error
	Metadata map[string]interface{}
}

// MemoryErrorRecorder keeps every recorded error in memory. Safe for
// concurrent use.
type MemoryErrorRecorder struct {
	mu      sync.Mutex
	entries []RecordedError
}

// RecordError implements ErrorRecorder.
func (m *MemoryErrorRecorder) RecordError(err error, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, RecordedError{Err: err, Metadata: metadata})
}

// Errors returns a copy of the recorded entries.
func (m *MemoryErrorRecorder) Errors() []RecordedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedError(nil), m.entries...)
}
