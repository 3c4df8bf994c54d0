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

package verification

import (
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
)

// VerificationResult contains the outcome of checking a single property
// over a run. An unsatisfied result carries the first violation and the
// notifications leading to it.
type VerificationResult struct {
	// Property is the name of the property that was checked
	Property string

	// Satisfied is true if no notification violated the property
	Satisfied bool

	// Message explains the first violation, or summarizes a satisfied check
	Message string

	// Timestamp is the simulation time of the first violation
	Timestamp clock.Time

	// Witness lists the notifications preceding the violation, oldest first,
	// ending with the violating one
	Witness []string

	// EventsChecked is the number of notifications the property observed
	EventsChecked int
}

// ProofCertificate aggregates the results of every property checked over
// one run.
type ProofCertificate struct {
	// SimulationID identifies the run, taken from the notifications
	SimulationID string

	// Properties contains the results of each individual property check
	Properties []VerificationResult

	// EventsChecked is the number of notifications received
	EventsChecked int

	// LastTimestamp is the timestamp of the last notification received
	LastTimestamp clock.Time
}

// AllSatisfied returns true if all properties in the certificate are satisfied.
// A certificate with no properties returns true (vacuously true).
func (pc *ProofCertificate) AllSatisfied() bool {
	for _, r := range pc.Properties {
		if !r.Satisfied {
			return false
		}
	}
	return true
}

// Violations returns the unsatisfied results.
func (pc *ProofCertificate) Violations() []VerificationResult {
	var out []VerificationResult
	for _, r := range pc.Properties {
		if !r.Satisfied {
			out = append(out, r)
		}
	}
	return out
}

// ViolationError is returned by a fail-fast Verifier, aborting the run.
type ViolationError struct {
	Property  string
	Timestamp clock.Time
	Message   string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("verification: %s violated at %s: %s", e.Property, e.Timestamp, e.Message)
}
