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
	"fmt"
	"sort"
	"sync"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/cycle"
)

// ResourceType is a role resources play. Its pool lists the resources
// whose timetable currently activates them for this role, ordered by id.
type ResourceType struct {
	id   int
	name string
	sim  *Simulation

	manager *ActivityManager

	mu   sync.RWMutex
	pool []*Resource
}

// ID returns the resource type id.
func (rt *ResourceType) ID() int { return rt.id }

// Name returns the description.
func (rt *ResourceType) Name() string { return rt.name }

// Manager returns the manager owning rt. It is nil before the run starts.
func (rt *ResourceType) Manager() *ActivityManager { return rt.manager }

func (rt *ResourceType) String() string {
	return fmt.Sprintf("ResourceType[%d %q]", rt.id, rt.name)
}

func (rt *ResourceType) entity() string {
	return entityName("resource-type", rt.id)
}

func (rt *ResourceType) addToPool(r *Resource) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	i := sort.Search(len(rt.pool), func(i int) bool { return rt.pool[i].id >= r.id })
	rt.pool = append(rt.pool, nil)
	copy(rt.pool[i+1:], rt.pool[i:])
	rt.pool[i] = r
}

func (rt *ResourceType) removeFromPool(r *Resource) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for i, p := range rt.pool {
		if p == r {
			rt.pool = append(rt.pool[:i], rt.pool[i+1:]...)
			return
		}
	}
}

// Pool returns the currently active resources.
func (rt *ResourceType) Pool() []*Resource {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]*Resource, len(rt.pool))
	copy(out, rt.pool)
	return out
}

// TimeTableEntry activates a resource for a resource type at every
// timestamp of Cycle, for Duration time units.
type TimeTableEntry struct {
	Cycle        cycle.Cycle
	Duration     clock.Time
	ResourceType *ResourceType
}

// Resource is a unit that serves resource types during its timetable
// windows. A booked resource serves one work thread at a time.
type Resource struct {
	id    int
	name  string
	sim   *Simulation
	table []TimeTableEntry

	mu sync.Mutex
	// active counts the open windows per role; a role is active while its
	// count is positive.
	active map[*ResourceType]int
	// closing lists roles whose window closed while booked for that role.
	closing  []*ResourceType
	booked   *WorkThread
	bookedAs *ResourceType
	bookers  map[*WorkThread]*ConflictZone
}

// ID returns the resource id.
func (r *Resource) ID() int { return r.id }

// Name returns the description.
func (r *Resource) Name() string { return r.name }

func (r *Resource) String() string {
	return fmt.Sprintf("Resource[%d %q]", r.id, r.name)
}

func (r *Resource) entity() string {
	return entityName("resource", r.id)
}

// TimeTable returns the timetable entries.
func (r *Resource) TimeTable() []TimeTableEntry {
	out := make([]TimeTableEntry, len(r.table))
	copy(out, r.table)
	return out
}

// AddTimeTableEntry makes r available as rt at every timestamp of c for
// duration time units.
func (r *Resource) AddTimeTableEntry(c cycle.Cycle, duration clock.Time, rt *ResourceType) error {
	if err := r.sim.checkOpen(); err != nil {
		return err
	}
	if c == nil {
		return modelErrorf(r.entity(), "timetable cycle is required")
	}
	if duration <= 0 {
		return modelErrorf(r.entity(), "timetable duration must be positive, got %s", duration)
	}
	if rt == nil || rt.sim != r.sim {
		return modelErrorf(r.entity(), "timetable references a resource type of another simulation")
	}
	r.table = append(r.table, TimeTableEntry{Cycle: c, Duration: duration, ResourceType: rt})
	return nil
}

// Booked returns the work thread holding r, if any.
func (r *Resource) Booked() (*WorkThread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booked, r.booked != nil
}

// ActiveAs reports whether a timetable window for rt is open.
func (r *Resource) ActiveAs(rt *ResourceType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[rt] > 0
}

// freeFor reports whether r may be booked as rt. r.mu must be held.
func (r *Resource) freeFor(rt *ResourceType) bool {
	if r.booked != nil || r.active[rt] <= 0 {
		return false
	}
	for _, c := range r.closing {
		if c == rt {
			return false
		}
	}
	return true
}

// addBooker registers wt, booking inside zone, and returns the zones of
// the other threads attempting to book r.
func (r *Resource) addBooker(wt *WorkThread, zone *ConflictZone) []*ConflictZone {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bookers == nil {
		r.bookers = make(map[*WorkThread]*ConflictZone)
	}
	others := make([]*ConflictZone, 0, len(r.bookers))
	for _, z := range r.bookers {
		others = append(others, z)
	}
	r.bookers[wt] = zone
	return others
}

func (r *Resource) removeBooker(wt *WorkThread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookers, wt)
}

// activate opens a window for rt and reports whether rt became active.
// A second open window for the same role is a model error.
func (r *Resource) activate(rt *ResourceType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	open := r.active[rt]
	for _, c := range r.closing {
		if c == rt {
			open--
		}
	}
	if open > 0 {
		return false, modelErrorf(r.entity(), "overlapping timetable windows for %s", rt)
	}
	if r.active == nil {
		r.active = make(map[*ResourceType]int)
	}
	r.active[rt]++
	return r.active[rt] == 1, nil
}

// deactivate closes a window for rt. A resource booked as rt keeps the role
// until it is released. It reports whether rt became inactive.
func (r *Resource) deactivate(rt *ResourceType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booked != nil && r.bookedAs == rt {
		r.closing = append(r.closing, rt)
		return false
	}
	return r.closeRole(rt)
}

func (r *Resource) closeRole(rt *ResourceType) bool {
	r.active[rt]--
	if r.active[rt] <= 0 {
		delete(r.active, rt)
		return true
	}
	return false
}

// release frees r from wt. It returns the roles that became inactive
// because their window closed during the booking, and the roles r is still
// active for.
func (r *Resource) release(wt *WorkThread) (closed, active []*ResourceType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booked == nil {
		return nil, nil, invariantErrorf(r.entity(), "released by %s but not booked", wt)
	}
	if r.booked != wt {
		return nil, nil, invariantErrorf(r.entity(), "released by %s but booked by %s", wt, r.booked)
	}
	r.booked, r.bookedAs = nil, nil
	for _, rt := range r.closing {
		if r.closeRole(rt) {
			closed = append(closed, rt)
		}
	}
	r.closing = nil
	for rt := range r.active {
		active = append(active, rt)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].id < active[j].id })
	return closed, active, nil
}
