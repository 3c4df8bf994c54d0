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
	"sort"

	"github.com/jazzpetri/flowsim/clock"
)

// ResourceTypeState is the availability of a resource type.
type ResourceTypeState struct {
	ID        int
	Name      string
	Active    int
	Available int
	Booked    int
}

// ActivityState lists the elements waiting on an activity.
type ActivityState struct {
	ID     int
	Name   string
	Queued []uint64
}

// Snapshot is a point-in-time view of a simulation. Take it from a
// receiver, between batches; during a batch the counts may be mid-update.
type Snapshot struct {
	Timestamp     clock.Time
	ResourceTypes []ResourceTypeState
	Activities    []ActivityState
	Elements      []uint64
	Created       uint64
	Finished      uint64
}

// Snapshot captures the current state.
func (s *Simulation) Snapshot() Snapshot {
	var snap Snapshot
	if eng := s.Engine(); eng != nil {
		snap.Timestamp = eng.Clock().Now()
	} else {
		snap.Timestamp = s.opts.Start
	}
	snap.Created = s.stats.elementsCreated.Load()
	snap.Finished = s.stats.elementsFinished.Load()

	for _, rt := range s.resourceTypes {
		st := ResourceTypeState{ID: rt.id, Name: rt.name}
		for _, r := range rt.Pool() {
			r.mu.Lock()
			st.Active++
			if r.booked != nil {
				st.Booked++
			} else if r.freeFor(rt) {
				st.Available++
			}
			r.mu.Unlock()
		}
		snap.ResourceTypes = append(snap.ResourceTypes, st)
	}

	for _, a := range s.activities {
		st := ActivityState{ID: a.id, Name: a.name}
		if m := a.manager; m != nil {
			m.mu.Lock()
			for _, req := range a.queue {
				st.Queued = append(st.Queued, req.element)
			}
			m.mu.Unlock()
		}
		snap.Activities = append(snap.Activities, st)
	}

	s.mu.Lock()
	for id := range s.live {
		snap.Elements = append(snap.Elements, id)
	}
	s.mu.Unlock()
	sort.Slice(snap.Elements, func(i, j int) bool { return snap.Elements[i] < snap.Elements[j] })
	return snap
}
