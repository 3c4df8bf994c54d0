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

package engine

import (
	"errors"
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
)

// Priority orders events that share a timestamp. Lower values run first.
type Priority int8

const (
	// PriorityResourceOff closes timetable windows.
	PriorityResourceOff Priority = iota
	// PriorityResourceOn opens timetable windows.
	PriorityResourceOn
	// PriorityActivityEnd completes activities and releases resources.
	PriorityActivityEnd
	// PriorityDispatch runs activity manager availability sweeps.
	PriorityDispatch
	// PriorityArrival covers generator ticks and element starts.
	PriorityArrival
)

func (p Priority) String() string {
	switch p {
	case PriorityResourceOff:
		return "resource-off"
	case PriorityResourceOn:
		return "resource-on"
	case PriorityActivityEnd:
		return "activity-end"
	case PriorityDispatch:
		return "dispatch"
	case PriorityArrival:
		return "arrival"
	default:
		return fmt.Sprintf("priority(%d)", int8(p))
	}
}

// Handler is the callback of an event.
type Handler func(ctx *Context) error

// Event is a scheduled callback. Events are immutable once scheduled.
type Event struct {
	At       clock.Time
	Priority Priority
	// Order breaks ties between events sharing (At, Priority) before the
	// insertion sequence does. Use it when the scheduling event is not
	// itself deterministic, e.g. deduplicated sweeps.
	Order uint64

	// Affinity groups events that touch the same state. Events of one
	// batch with equal affinity never run concurrently.
	Affinity uint64
	// Partition selects the logical process of the Partitioned executor.
	Partition int

	// Source names the entity that owns the event, for error reports.
	Source string
	Fn     Handler

	seq uint64
}

// Seq returns the insertion sequence assigned when the event was queued.
func (e *Event) Seq() uint64 {
	return e.seq
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%s/%s#%d", e.Source, e.At, e.Priority, e.seq)
}

// AffinityClass namespaces affinity keys.
type AffinityClass uint8

const (
	AffinityElement AffinityClass = iota + 1
	AffinityManager
	AffinityGenerator
	AffinityResource
	AffinitySimulation
)

// Affinity builds an affinity key from a class and an entity id.
func Affinity(class AffinityClass, id uint64) uint64 {
	return uint64(class)<<56 | id&(1<<56-1)
}

// ErrPastEvent is returned when an event is scheduled before the current time.
var ErrPastEvent = errors.New("engine: event scheduled in the past")

// ErrNoHandler is returned when an event without callback is scheduled.
var ErrNoHandler = errors.New("engine: event has no handler")

// EventError reports the event whose callback aborted a run.
type EventError struct {
	Timestamp clock.Time
	Source    string
	Err       error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("engine: event %s at %s: %v", e.Source, e.Timestamp, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// before reports whether a sorts before b in dispatch order.
func before(a, b *Event) bool {
	if a.At != b.At {
		return a.At < b.At
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.seq < b.seq
}

// Key identifies a batch: all events sharing a timestamp and priority.
type Key struct {
	At       clock.Time
	Priority Priority
}

func keyOf(e *Event) Key {
	return Key{At: e.At, Priority: e.Priority}
}

func (k Key) less(o Key) bool {
	if k.At != o.At {
		return k.At < o.At
	}
	return k.Priority < o.Priority
}
