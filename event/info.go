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

// Package event is the notification bus through which a simulation reports
// what happens to external receivers.
//
// The simulation publishes typed, time-stamped Info values (simulation
// start/end, element start/finish, activity request/start/end, resource
// caught/released, clock ticks). Receivers subscribe to the kinds they
// accept. Delivery is synchronous and in publication order, so a receiver
// sees the same sequence whatever concurrency strategy executed the run.
//
// Example usage:
//
//	bus := event.NewBus()
//	id, _ := bus.SubscribeFunc(func(i event.Info) error {
//	    fmt.Println(i)
//	    return nil
//	}, event.KindElementStart, event.KindElementFinish)
//	defer bus.Unsubscribe(id)
package event

import (
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
)

// Kind classifies a notification.
type Kind uint8

const (
	KindSimulationStart Kind = iota + 1
	KindSimulationEnd
	KindElementStart
	KindElementFinish
	KindActivityRequest
	KindActivityStart
	KindActivityEnd
	KindResourceCaught
	KindResourceReleased
	KindResourceActivated
	KindResourceDeactivated
	KindClockTick
)

var kindNames = map[Kind]string{
	KindSimulationStart:     "simulation.start",
	KindSimulationEnd:       "simulation.end",
	KindElementStart:        "element.start",
	KindElementFinish:       "element.finish",
	KindActivityRequest:     "activity.request",
	KindActivityStart:       "activity.start",
	KindActivityEnd:         "activity.end",
	KindResourceCaught:      "resource.caught",
	KindResourceReleased:    "resource.released",
	KindResourceActivated:   "resource.activated",
	KindResourceDeactivated: "resource.deactivated",
	KindClockTick:           "clock.tick",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// AllKinds returns every known kind in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindSimulationStart; k <= KindClockTick; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("event: unknown kind %q", s)
}

// NoID marks an entity field that does not apply to a notification.
const NoID = -1

// Info is one notification. Entity fields that do not apply hold NoID
// (or 0 for ElementID, which starts at 1).
type Info struct {
	Kind         Kind
	Timestamp    clock.Time
	SimulationID string

	ElementID   uint64
	ElementType string

	ActivityID     int
	WorkGroupID    int
	ResourceID     int
	ResourceTypeID int

	// Name is the description of the main entity, when it has one.
	Name string
}

// NewInfo returns an Info with every entity field set to NoID.
func NewInfo(kind Kind, ts clock.Time) Info {
	return Info{
		Kind:           kind,
		Timestamp:      ts,
		ActivityID:     NoID,
		WorkGroupID:    NoID,
		ResourceID:     NoID,
		ResourceTypeID: NoID,
	}
}

func (i Info) String() string {
	s := fmt.Sprintf("%s@%s", i.Kind, i.Timestamp)
	if i.ElementID != 0 {
		s += fmt.Sprintf(" element=%d", i.ElementID)
	}
	if i.ActivityID != NoID {
		s += fmt.Sprintf(" activity=%d", i.ActivityID)
	}
	if i.ResourceID != NoID {
		s += fmt.Sprintf(" resource=%d", i.ResourceID)
	}
	if i.ResourceTypeID != NoID {
		s += fmt.Sprintf(" rt=%d", i.ResourceTypeID)
	}
	return s
}
