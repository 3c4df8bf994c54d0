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

// Package verification checks safety properties of simulation runs.
//
// A Verifier is an event.Receiver. Subscribed to the bus of a simulation,
// it feeds every notification to a set of properties, each holding the
// state it needs (bookings, live elements, last timestamp). A violation is
// recorded with a witness: the notifications leading to it.
//
// # Usage
//
//	v := verification.NewVerifier(true, verification.DefaultProperties(end)...)
//	_, _ = s.Bus().Subscribe(v)
//	_, err := s.Run() // aborts on the first violation in fail-fast mode
//	cert := v.Certificate()
//	if !cert.AllSatisfied() {
//	    // the run broke an invariant
//	}
//
// # Safety Properties
//
// The built-in properties check:
//   - Clock monotonicity: timestamps never decrease and stay below the end
//   - Resource conservation: bookings match activations and releases
//   - Element balance: elements and activities start and finish in pairs
//   - Queue bounds: an activity never has more than N waiting requests
//   - Mutual exclusion: an element never runs two given activities at once
package verification

import (
	"fmt"
	"sync"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/event"
)

// DefaultWitnessLength is the number of notifications kept as witness.
const DefaultWitnessLength = 16

// Verifier checks properties over the notifications it receives.
type Verifier struct {
	mu         sync.Mutex
	properties []SafetyProperty
	accepts    []map[event.Kind]bool
	results    []VerificationResult
	failFast   bool

	// recent is a ring of the last notifications, used as witness
	recent []string
	next   int
	filled bool

	checked      int
	last         clock.Time
	simulationID string
}

// NewVerifier creates a verifier. In fail-fast mode the first violation is
// returned from Receive, which aborts the run publishing it.
func NewVerifier(failFast bool, properties ...SafetyProperty) *Verifier {
	v := &Verifier{
		properties: properties,
		accepts:    make([]map[event.Kind]bool, len(properties)),
		results:    make([]VerificationResult, len(properties)),
		failFast:   failFast,
		recent:     make([]string, DefaultWitnessLength),
	}
	for i, p := range properties {
		if len(p.Kinds) > 0 {
			v.accepts[i] = make(map[event.Kind]bool, len(p.Kinds))
			for _, k := range p.Kinds {
				v.accepts[i][k] = true
			}
		}
		v.results[i] = VerificationResult{Property: p.Name, Satisfied: true}
	}
	return v
}

// Kinds implements event.Receiver. It returns the union of the kinds of
// the properties, or nil when one of them needs every kind.
func (v *Verifier) Kinds() []event.Kind {
	seen := map[event.Kind]bool{}
	var out []event.Kind
	for _, p := range v.properties {
		if len(p.Kinds) == 0 {
			return nil
		}
		for _, k := range p.Kinds {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// Receive implements event.Receiver.
func (v *Verifier) Receive(info event.Info) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.checked++
	v.last = info.Timestamp
	if v.simulationID == "" {
		v.simulationID = info.SimulationID
	}
	v.remember(info.String())

	var first *ViolationError
	for i, p := range v.properties {
		if v.accepts[i] != nil && !v.accepts[i][info.Kind] {
			continue
		}
		res := &v.results[i]
		res.EventsChecked++
		msg := p.Observe(info)
		if msg == "" || !res.Satisfied {
			continue
		}
		res.Satisfied = false
		res.Message = msg
		res.Timestamp = info.Timestamp
		res.Witness = v.witness()
		if first == nil {
			first = &ViolationError{Property: p.Name, Timestamp: info.Timestamp, Message: msg}
		}
	}
	if first != nil && v.failFast {
		return first
	}
	return nil
}

func (v *Verifier) remember(s string) {
	v.recent[v.next] = s
	v.next = (v.next + 1) % len(v.recent)
	if v.next == 0 {
		v.filled = true
	}
}

func (v *Verifier) witness() []string {
	if !v.filled {
		return append([]string(nil), v.recent[:v.next]...)
	}
	out := make([]string, 0, len(v.recent))
	out = append(out, v.recent[v.next:]...)
	return append(out, v.recent[:v.next]...)
}

// Certificate returns the results so far.
func (v *Verifier) Certificate() *ProofCertificate {
	v.mu.Lock()
	defer v.mu.Unlock()
	cert := &ProofCertificate{
		SimulationID:  v.simulationID,
		EventsChecked: v.checked,
		LastTimestamp: v.last,
		Properties:    make([]VerificationResult, len(v.results)),
	}
	for i, r := range v.results {
		if r.Satisfied {
			r.Message = fmt.Sprintf("%s: %d notifications checked", v.properties[i].Description, r.EventsChecked)
		}
		cert.Properties[i] = r
	}
	return cert
}
