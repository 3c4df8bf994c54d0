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

package sim

import (
	"errors"
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
)

var (
	// ErrModel is wrapped by every model-definition error.
	ErrModel = errors.New("sim: invalid model")

	// ErrInvariant is wrapped by every internal consistency violation.
	ErrInvariant = errors.New("sim: invariant violated")

	// ErrStarted is returned when the model is modified or run twice.
	ErrStarted = errors.New("sim: simulation already started")
)

// ModelError reports a problem in the model definition. It is detected
// before the simulation starts.
type ModelError struct {
	Entity string
	Reason string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("sim: model error: %s: %s", e.Entity, e.Reason)
}

// Unwrap lets errors.Is match ErrModel.
func (e *ModelError) Unwrap() error {
	return ErrModel
}

func modelErrorf(entity, format string, args ...interface{}) *ModelError {
	return &ModelError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// InvariantError reports internal state that must never occur, such as a
// resource released twice. The run aborts.
type InvariantError struct {
	Entity string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("sim: invariant violated: %s: %s", e.Entity, e.Reason)
}

// Unwrap lets errors.Is match ErrInvariant.
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariantErrorf(entity, format string, args ...interface{}) *InvariantError {
	return &InvariantError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// RunError reports an aborted run. Cause is the original error: a failing
// condition or time function, a receiver error or an InvariantError.
type RunError struct {
	Timestamp clock.Time
	Entity    string
	Cause     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("sim: run aborted at %s by %s: %v", e.Timestamp, e.Entity, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

func entityName(kind string, id interface{}) string {
	return fmt.Sprintf("%s-%v", kind, id)
}
