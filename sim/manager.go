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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/event"
	"github.com/jazzpetri/flowsim/timefunc"
)

// ActivityManager is a mutual-exclusion domain over activities and the
// resource types they use. Activities sharing a resource type always
// belong to the same manager.
type ActivityManager struct {
	id   int
	name string
	sim  *Simulation

	// group is the affinity of the manager's sweeps. Managers whose
	// resource types share resources get the same group in strict order.
	group int

	mu            sync.Mutex
	activities    []*Activity
	resourceTypes []*ResourceType

	pending atomic.Bool
}

// ID returns the manager id.
func (m *ActivityManager) ID() int { return m.id }

// Name returns the description.
func (m *ActivityManager) Name() string { return m.name }

// Activities returns the managed activities in service order.
func (m *ActivityManager) Activities() []*Activity {
	out := make([]*Activity, len(m.activities))
	copy(out, m.activities)
	return out
}

// ResourceTypes returns the managed resource types ordered by id.
func (m *ActivityManager) ResourceTypes() []*ResourceType {
	out := make([]*ResourceType, len(m.resourceTypes))
	copy(out, m.resourceTypes)
	return out
}

func (m *ActivityManager) String() string {
	return fmt.Sprintf("ActivityManager[%d %q]", m.id, m.name)
}

func (m *ActivityManager) entity() string {
	return entityName("manager", m.id)
}

// unionFind groups integer keys.
type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u[rb] = ra
	} else {
		u[ra] = rb
	}
}

// buildManagers assigns every activity and resource type to a manager.
// Without explicit managers, activities transitively connected through
// shared resource types form one manager each. Explicit assignments are
// validated instead.
func (s *Simulation) buildManagers() error {
	explicit := len(s.managers) > 0
	if explicit {
		return s.checkExplicitManagers()
	}

	n := len(s.resourceTypes)
	uf := newUnionFind(n + len(s.activities))
	for _, a := range s.activities {
		for _, wg := range a.workGroups {
			for _, need := range wg.needs {
				uf.union(n+a.id, need.ResourceType.id)
			}
		}
	}
	byRoot := map[int]*ActivityManager{}
	for _, a := range s.activities {
		root := uf.find(n + a.id)
		m, ok := byRoot[root]
		if !ok {
			m = &ActivityManager{id: len(s.managers), name: fmt.Sprintf("manager-%d", len(s.managers)), sim: s}
			s.managers = append(s.managers, m)
			byRoot[root] = m
		}
		a.manager = m
		m.activities = append(m.activities, a)
	}
	for _, rt := range s.resourceTypes {
		if m, ok := byRoot[uf.find(rt.id)]; ok {
			rt.manager = m
			m.resourceTypes = append(m.resourceTypes, rt)
		}
	}
	s.orderManagers()
	return nil
}

func (s *Simulation) checkExplicitManagers() error {
	var errs []error
	for _, a := range s.activities {
		if a.explicit == nil {
			errs = append(errs, modelErrorf(a.entity(), "not assigned to a manager"))
			continue
		}
		a.manager = a.explicit
		a.manager.activities = append(a.manager.activities, a)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for _, a := range s.activities {
		for _, wg := range a.workGroups {
			for _, need := range wg.needs {
				rt := need.ResourceType
				switch {
				case rt.manager == nil:
					rt.manager = a.manager
					a.manager.resourceTypes = append(a.manager.resourceTypes, rt)
				case rt.manager != a.manager:
					errs = append(errs, modelErrorf(a.entity(),
						"work group %d uses %s, which belongs to %s, not %s", wg.id, rt, rt.manager, a.manager))
				}
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.orderManagers()
	return nil
}

func (s *Simulation) orderManagers() {
	for _, m := range s.managers {
		sort.SliceStable(m.activities, func(i, j int) bool {
			a, b := m.activities[i], m.activities[j]
			if a.priority != b.priority {
				return a.priority < b.priority
			}
			return a.id < b.id
		})
		sort.Slice(m.resourceTypes, func(i, j int) bool {
			return m.resourceTypes[i].id < m.resourceTypes[j].id
		})
	}
}

// groupManagers computes the sweep affinity of every manager. In strict
// order, managers whose resource types can be played by the same resource
// share a group, so their sweeps never run concurrently.
func (s *Simulation) groupManagers() {
	uf := newUnionFind(len(s.managers))
	if s.opts.StrictOrder {
		for _, r := range s.resources {
			first := -1
			for _, entry := range r.table {
				m := entry.ResourceType.manager
				if m == nil {
					continue
				}
				if first < 0 {
					first = m.id
					continue
				}
				uf.union(first, m.id)
			}
		}
	}
	for _, m := range s.managers {
		m.group = uf.find(m.id)
	}
}

// requestSweep schedules one availability sweep of m at the current time
// unless one is already pending.
func (s *Simulation) requestSweep(ctx *engine.Context, m *ActivityManager) error {
	if m == nil || !m.pending.CompareAndSwap(false, true) {
		return nil
	}
	return ctx.Schedule(&engine.Event{
		At:        ctx.Now(),
		Priority:  engine.PriorityDispatch,
		Order:     uint64(m.id),
		Affinity:  engine.Affinity(engine.AffinityManager, uint64(m.group)),
		Partition: m.group,
		Source:    m.entity(),
		Fn: func(ctx *engine.Context) error {
			return s.sweep(ctx, m)
		},
	})
}

// sweep serves the queued requests of m: activities in priority order,
// requests in queue order, work groups in priority order.
func (s *Simulation) sweep(ctx *engine.Context, m *ActivityManager) error {
	m.pending.Store(false)
	s.metrics.Inc("sim_sweeps_total")

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.activities {
		kept := a.queue[:0]
		for i, req := range a.queue {
			started, err := s.tryStart(ctx, a, req)
			if err != nil {
				kept = append(kept, a.queue[i:]...)
				a.queue = kept
				return err
			}
			if !started {
				kept = append(kept, req)
			}
		}
		for i := len(kept); i < len(a.queue); i++ {
			a.queue[i] = nil
		}
		a.queue = kept
	}
	return nil
}

type pick struct {
	r  *Resource
	rt *ResourceType
}

// tryStart books the first feasible work group for req and schedules the
// end of the activity.
func (s *Simulation) tryStart(ctx *engine.Context, a *Activity, req *request) (bool, error) {
	wt := req.wt
	for _, wg := range a.workGroups {
		if wg.cond != nil {
			ok, err := wg.cond.Check(subject{e: wt.element, now: ctx.Now()})
			if err != nil {
				return false, fmt.Errorf("%s: work group %d condition: %w", a, wg.id, err)
			}
			if !ok {
				continue
			}
		}
		picks := s.pickResources(wg)
		if picks == nil {
			continue
		}
		booked, err := s.book(wt, picks)
		if err != nil {
			return false, err
		}
		if !booked {
			continue
		}
		return true, s.startActivity(ctx, a, wg, wt, picks)
	}
	return false, nil
}

// pickResources returns the first free resources of every needed type, in
// resource id order, or nil when a need cannot be met.
func (s *Simulation) pickResources(wg *WorkGroup) []pick {
	var picks []pick
	taken := map[*Resource]bool{}
	for _, need := range wg.needs {
		got := 0
		for _, r := range need.ResourceType.Pool() {
			if got == need.Units {
				break
			}
			if taken[r] {
				continue
			}
			r.mu.Lock()
			free := r.freeFor(need.ResourceType)
			r.mu.Unlock()
			if free {
				taken[r] = true
				picks = append(picks, pick{r: r, rt: need.ResourceType})
				got++
			}
		}
		if got < need.Units {
			return nil
		}
	}
	if picks == nil {
		picks = []pick{}
	}
	return picks
}

// book catches the picked resources for wt inside its conflict zone. It
// reports false when another booking took one of them first.
func (s *Simulation) book(wt *WorkThread, picks []pick) (bool, error) {
	zone := NewConflictZone(s.zoneIDs.Add(1), wt)
	defer func() {
		for _, p := range picks {
			p.r.removeBooker(wt)
		}
		zone.remove(wt)
	}()

	for _, p := range picks {
		for _, other := range p.r.addBooker(wt, zone) {
			merged, err := zone.Merge(other)
			if err != nil {
				return false, err
			}
			if merged {
				s.metrics.Inc("sim_zone_merges_total")
			}
		}
	}

	unlock := zone.acquire()
	defer unlock()

	ordered := make([]pick, len(picks))
	copy(ordered, picks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].r.id < ordered[j].r.id })
	for _, p := range ordered {
		p.r.mu.Lock()
	}
	defer func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			ordered[i].r.mu.Unlock()
		}
	}()
	for _, p := range ordered {
		if !p.r.freeFor(p.rt) {
			return false, nil
		}
	}
	for _, p := range ordered {
		p.r.booked, p.r.bookedAs = wt, p.rt
	}
	return true, nil
}

func (s *Simulation) startActivity(ctx *engine.Context, a *Activity, wg *WorkGroup, wt *WorkThread, picks []pick) error {
	now := ctx.Now()
	d, err := timefunc.Time(wg.duration, now)
	if err != nil {
		return fmt.Errorf("%s: work group %d duration: %w", a, wg.id, err)
	}
	wt.workGroup = wg
	wt.caught = make([]*Resource, len(picks))
	for i, p := range picks {
		wt.caught[i] = p.r
	}
	s.stats.activitiesStarted.Add(1)
	s.metrics.Inc("sim_activities_started_total")

	e := wt.element
	start := s.newInfo(event.KindActivityStart, now, e)
	start.ActivityID, start.WorkGroupID, start.Name = a.id, wg.id, a.name
	s.emit(ctx, start)
	for _, p := range picks {
		info := s.newInfo(event.KindResourceCaught, now, e)
		info.ActivityID, info.ResourceID, info.ResourceTypeID, info.Name = a.id, p.r.id, p.rt.id, p.r.name
		s.emit(ctx, info)
	}

	return ctx.Schedule(&engine.Event{
		At:        now.Add(d),
		Priority:  engine.PriorityActivityEnd,
		Affinity:  engine.Affinity(engine.AffinityElement, e.id),
		Partition: int(e.id),
		Source:    e.entity(),
		Fn: func(ctx *engine.Context) error {
			return s.finishActivity(ctx, a, wt)
		},
	})
}

// releaseResource returns r to its pools and asks the managers of its
// active roles for a sweep.
func (s *Simulation) releaseResource(ctx *engine.Context, r *Resource, wt *WorkThread, a *Activity) error {
	closed, active, err := r.release(wt)
	if err != nil {
		return err
	}
	now := ctx.Now()
	info := s.newInfo(event.KindResourceReleased, now, wt.element)
	info.ActivityID, info.ResourceID, info.Name = a.id, r.id, r.name
	s.emit(ctx, info)
	for _, rt := range closed {
		rt.removeFromPool(r)
		off := s.newInfo(event.KindResourceDeactivated, now, nil)
		off.ResourceID, off.ResourceTypeID, off.Name = r.id, rt.id, r.name
		s.emit(ctx, off)
	}
	for _, rt := range active {
		if err := s.requestSweep(ctx, rt.manager); err != nil {
			return err
		}
	}
	return nil
}
