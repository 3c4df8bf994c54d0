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

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/condition"
	"github.com/jazzpetri/flowsim/timefunc"
)

// FinishHook runs when an element completes an activity. It may update the
// element's variables. An error aborts the run.
type FinishHook func(e *Element, now clock.Time) error

// Need is a number of units of one resource type.
type Need struct {
	ResourceType *ResourceType
	Units        int
}

// WorkGroup is one way of staffing an activity: the resources it needs,
// an optional availability condition and the duration of the work.
type WorkGroup struct {
	id       int
	activity *Activity
	priority int
	duration timefunc.TimeFunction
	cond     condition.Condition
	needs    []Need
}

// ID returns the work group id, unique within the simulation.
func (wg *WorkGroup) ID() int { return wg.id }

// Priority returns the priority; lower values are tried first.
func (wg *WorkGroup) Priority() int { return wg.priority }

// Needs returns the resource requirements in declaration order.
func (wg *WorkGroup) Needs() []Need {
	out := make([]Need, len(wg.needs))
	copy(out, wg.needs)
	return out
}

// Add requires units resources of type rt. Adding the same type twice adds
// up the units.
func (wg *WorkGroup) Add(rt *ResourceType, units int) error {
	s := wg.activity.sim
	if err := s.checkOpen(); err != nil {
		return err
	}
	if rt == nil || rt.sim != s {
		return modelErrorf(wg.activity.entity(), "work group %d references a resource type of another simulation", wg.id)
	}
	if units < 1 {
		return modelErrorf(wg.activity.entity(), "work group %d needs a positive number of %s, got %d", wg.id, rt, units)
	}
	for i := range wg.needs {
		if wg.needs[i].ResourceType == rt {
			wg.needs[i].Units += units
			return nil
		}
	}
	wg.needs = append(wg.needs, Need{ResourceType: rt, Units: units})
	return nil
}

// SetCondition guards the work group: it is only feasible while cond holds
// for the requesting element.
func (wg *WorkGroup) SetCondition(cond condition.Condition) error {
	if err := wg.activity.sim.checkOpen(); err != nil {
		return err
	}
	wg.cond = cond
	return nil
}

// Activity is a task consuming resources for a duration. Requests wait in
// a queue ordered by element priority, then arrival.
type Activity struct {
	id       int
	name     string
	priority int
	sim      *Simulation

	workGroups []*WorkGroup
	manager    *ActivityManager
	explicit   *ActivityManager
	onFinish   FinishHook

	// queue is guarded by manager.mu.
	queue []*request
}

// ID returns the activity id.
func (a *Activity) ID() int { return a.id }

// Name returns the description.
func (a *Activity) Name() string { return a.name }

// Priority returns the priority; activities with lower values are served
// first by a sweep.
func (a *Activity) Priority() int { return a.priority }

// Manager returns the manager owning a. It is nil before the run starts.
func (a *Activity) Manager() *ActivityManager { return a.manager }

// WorkGroups returns the work groups in priority order.
func (a *Activity) WorkGroups() []*WorkGroup {
	out := make([]*WorkGroup, len(a.workGroups))
	copy(out, a.workGroups)
	return out
}

func (a *Activity) String() string {
	return fmt.Sprintf("Activity[%d %q]", a.id, a.name)
}

func (a *Activity) entity() string {
	return entityName("activity", a.id)
}

// NewWorkGroup adds a work group whose work lasts a duration sampled from
// duration.
func (a *Activity) NewWorkGroup(priority int, duration timefunc.TimeFunction) (*WorkGroup, error) {
	if err := a.sim.checkOpen(); err != nil {
		return nil, err
	}
	if duration == nil {
		return nil, modelErrorf(a.entity(), "work group duration is required")
	}
	wg := &WorkGroup{
		id:       a.sim.nextWorkGroup,
		activity: a,
		priority: priority,
		duration: duration,
	}
	a.sim.nextWorkGroup++
	a.workGroups = append(a.workGroups, wg)
	sort.SliceStable(a.workGroups, func(i, j int) bool {
		return a.workGroups[i].priority < a.workGroups[j].priority
	})
	return wg, nil
}

// OnFinish registers a hook run when an element completes a.
func (a *Activity) OnFinish(hook FinishHook) error {
	if err := a.sim.checkOpen(); err != nil {
		return err
	}
	a.onFinish = hook
	return nil
}

// SetManager assigns a to an explicitly created manager.
func (a *Activity) SetManager(m *ActivityManager) error {
	if err := a.sim.checkOpen(); err != nil {
		return err
	}
	if m == nil || m.sim != a.sim {
		return modelErrorf(a.entity(), "manager belongs to another simulation")
	}
	a.explicit = m
	return nil
}

// request is a work thread waiting on an activity.
type request struct {
	wt       *WorkThread
	priority int
	at       clock.Time
	element  uint64
	serial   uint64
}

func (r *request) less(o *request) bool {
	if r.priority != o.priority {
		return r.priority < o.priority
	}
	if r.at != o.at {
		return r.at < o.at
	}
	if r.element != o.element {
		return r.element < o.element
	}
	return r.serial < o.serial
}

// enqueue inserts req in queue order. The manager lock must be held.
func (a *Activity) enqueue(req *request) {
	i := sort.Search(len(a.queue), func(i int) bool { return req.less(a.queue[i]) })
	a.queue = append(a.queue, nil)
	copy(a.queue[i+1:], a.queue[i:])
	a.queue[i] = req
}

// QueueLength returns the number of waiting requests.
func (a *Activity) QueueLength() int {
	if a.manager == nil {
		return 0
	}
	a.manager.mu.Lock()
	defer a.manager.mu.Unlock()
	return len(a.queue)
}
