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
	"github.com/jazzpetri/flowsim/event"
)

// SafetyProperty represents a named safety property checked against the
// notification stream of a run. Properties keep their own state, so a
// property value must not be shared between runs.
//
// Observe receives every notification of the listed kinds, in publication
// order, and returns a non-empty message when the notification violates
// the property.
type SafetyProperty struct {
	// Name is the unique identifier for this property
	Name string

	// Description is a human-readable explanation of what the property checks
	Description string

	// Kinds lists the notifications the property needs
	Kinds []event.Kind

	// Observe checks one notification
	Observe func(info event.Info) string
}

// NewClockMonotonicityProperty checks that notification timestamps never
// decrease and that nothing but the end of the run is reported at or after
// end.
func NewClockMonotonicityProperty(name string, end clock.Time) SafetyProperty {
	last := clock.Time(-1)
	return SafetyProperty{
		Name:        name,
		Description: fmt.Sprintf("timestamps are non-decreasing and below %s", end),
		Observe: func(info event.Info) string {
			ts := info.Timestamp
			if ts < last {
				return fmt.Sprintf("%s reported after %s", info, last)
			}
			last = ts
			if info.Kind == event.KindSimulationEnd {
				if ts > end {
					return fmt.Sprintf("run ended at %s, after %s", ts, end)
				}
				return ""
			}
			if ts >= end {
				return fmt.Sprintf("%s dispatched at or after the end %s", info, end)
			}
			return ""
		},
	}
}

type role struct {
	resource, resourceType int
}

// NewResourceConservationProperty checks resource bookings:
//   - a resource is caught only while active for the caught role and free
//   - it is released only by the element holding it, once
//   - a role is not deactivated while the resource is booked for it
//   - booked units of a type never exceed its active units
func NewResourceConservationProperty(name string) SafetyProperty {
	active := map[role]bool{}
	activeUnits := map[int]int{}
	booked := map[int]int{}
	holder := map[int]uint64{}
	holderRole := map[int]int{}

	return SafetyProperty{
		Name:        name,
		Description: "booked units never exceed active units and every release matches a booking",
		Kinds: []event.Kind{
			event.KindResourceActivated, event.KindResourceDeactivated,
			event.KindResourceCaught, event.KindResourceReleased,
		},
		Observe: func(info event.Info) string {
			r, rt := info.ResourceID, info.ResourceTypeID
			switch info.Kind {
			case event.KindResourceActivated:
				if active[role{r, rt}] {
					return fmt.Sprintf("resource %d activated twice for type %d", r, rt)
				}
				active[role{r, rt}] = true
				activeUnits[rt]++

			case event.KindResourceDeactivated:
				if !active[role{r, rt}] {
					return fmt.Sprintf("resource %d deactivated for inactive type %d", r, rt)
				}
				if h, ok := holder[r]; ok && holderRole[r] == rt {
					return fmt.Sprintf("resource %d deactivated for type %d while held by element %d", r, rt, h)
				}
				delete(active, role{r, rt})
				activeUnits[rt]--

			case event.KindResourceCaught:
				if h, ok := holder[r]; ok {
					return fmt.Sprintf("resource %d caught by element %d while held by element %d", r, info.ElementID, h)
				}
				if !active[role{r, rt}] {
					return fmt.Sprintf("resource %d caught as inactive type %d", r, rt)
				}
				holder[r], holderRole[r] = info.ElementID, rt
				booked[rt]++
				if booked[rt] > activeUnits[rt] {
					return fmt.Sprintf("type %d has %d booked units but %d active", rt, booked[rt], activeUnits[rt])
				}

			case event.KindResourceReleased:
				h, ok := holder[r]
				if !ok {
					return fmt.Sprintf("resource %d released by element %d but not held", r, info.ElementID)
				}
				if h != info.ElementID {
					return fmt.Sprintf("resource %d released by element %d but held by element %d", r, info.ElementID, h)
				}
				booked[holderRole[r]]--
				delete(holder, r)
				delete(holderRole, r)
			}
			return ""
		},
	}
}

// NewElementBalanceProperty checks the lifecycle of elements: started once,
// finished once after starting, and never finished with activities running.
// Activity starts and ends must pair up per element.
func NewElementBalanceProperty(name string) SafetyProperty {
	live := map[uint64]bool{}
	seen := map[uint64]bool{}
	running := map[uint64]int{}

	return SafetyProperty{
		Name:        name,
		Description: "elements start once, finish once and never finish with running activities",
		Kinds: []event.Kind{
			event.KindElementStart, event.KindElementFinish,
			event.KindActivityRequest, event.KindActivityStart, event.KindActivityEnd,
		},
		Observe: func(info event.Info) string {
			e := info.ElementID
			switch info.Kind {
			case event.KindElementStart:
				if seen[e] {
					return fmt.Sprintf("element %d started twice", e)
				}
				seen[e], live[e] = true, true
			case event.KindElementFinish:
				if !live[e] {
					return fmt.Sprintf("element %d finished but not live", e)
				}
				if running[e] > 0 {
					return fmt.Sprintf("element %d finished with %d activities running", e, running[e])
				}
				delete(live, e)
				delete(running, e)
			case event.KindActivityRequest, event.KindActivityStart:
				if !live[e] {
					return fmt.Sprintf("%s for element %d, which is not live", info.Kind, e)
				}
				if info.Kind == event.KindActivityStart {
					running[e]++
				}
			case event.KindActivityEnd:
				if running[e] == 0 {
					return fmt.Sprintf("activity %d ended for element %d without a start", info.ActivityID, e)
				}
				running[e]--
			}
			return ""
		},
	}
}

// NewQueueBoundProperty checks that no more than max requests ever wait on
// an activity at once.
//
// Example:
//
//	prop := NewQueueBoundProperty("triage_queue", triage.ID(), 10)
func NewQueueBoundProperty(name string, activityID, max int) SafetyProperty {
	waiting := 0
	return SafetyProperty{
		Name:        name,
		Description: fmt.Sprintf("activity %d never has more than %d waiting requests", activityID, max),
		Kinds:       []event.Kind{event.KindActivityRequest, event.KindActivityStart},
		Observe: func(info event.Info) string {
			if info.ActivityID != activityID {
				return ""
			}
			if info.Kind == event.KindActivityRequest {
				waiting++
			} else {
				waiting--
			}
			if waiting > max {
				return fmt.Sprintf("activity %d has %d waiting requests (max allowed: %d)", activityID, waiting, max)
			}
			return ""
		},
	}
}

// NewMutualExclusionProperty checks that no element runs activities a and
// b at the same time.
func NewMutualExclusionProperty(name string, a, b int) SafetyProperty {
	type key struct {
		element  uint64
		activity int
	}
	running := map[key]int{}
	return SafetyProperty{
		Name:        name,
		Description: fmt.Sprintf("activities %d and %d never run together for one element", a, b),
		Kinds:       []event.Kind{event.KindActivityStart, event.KindActivityEnd},
		Observe: func(info event.Info) string {
			id := info.ActivityID
			if id != a && id != b {
				return ""
			}
			k := key{info.ElementID, id}
			if info.Kind == event.KindActivityEnd {
				running[k]--
				return ""
			}
			other := a
			if id == a {
				other = b
			}
			if running[key{info.ElementID, other}] > 0 {
				return fmt.Sprintf("element %d started activity %d while running activity %d", info.ElementID, id, other)
			}
			running[k]++
			return ""
		},
	}
}

// DefaultProperties returns the invariants every run must satisfy.
func DefaultProperties(end clock.Time) []SafetyProperty {
	return []SafetyProperty{
		NewClockMonotonicityProperty("clock_monotonicity", end),
		NewResourceConservationProperty("resource_conservation"),
		NewElementBalanceProperty("element_balance"),
	}
}
