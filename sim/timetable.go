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

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/cycle"
	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/event"
)

// window drives one timetable entry of a resource. Opening times drawn
// during validation are replayed first, then the iterator continues.
type window struct {
	sim   *Simulation
	r     *Resource
	entry TimeTableEntry
	it    cycle.Iterator

	starts  []clock.Time
	drained bool
}

func (w *window) next() (clock.Time, bool, error) {
	if len(w.starts) > 0 {
		t := w.starts[0]
		w.starts = w.starts[1:]
		return t, true, nil
	}
	if w.drained {
		return 0, false, nil
	}
	return w.it.Next()
}

func (w *window) event(at clock.Time, p engine.Priority, fn engine.Handler) *engine.Event {
	return &engine.Event{
		At:        at,
		Priority:  p,
		Affinity:  engine.Affinity(engine.AffinityResource, uint64(w.r.id)),
		Partition: w.r.id,
		Source:    w.r.entity(),
		Fn:        fn,
	}
}

// scheduleTimetables opens the first window of every entry validated by
// drawWindows.
func (s *Simulation) scheduleTimetables(eng *engine.Engine) error {
	for _, w := range s.windows {
		at, ok, err := w.next()
		if err != nil {
			return fmt.Errorf("%s: timetable: %w", w.r, err)
		}
		if ok {
			if err := eng.Schedule(w.event(at, engine.PriorityResourceOn, w.on)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *window) on(ctx *engine.Context) error {
	s, r, rt := w.sim, w.r, w.entry.ResourceType
	now := ctx.Now()
	became, err := r.activate(rt)
	if err != nil {
		return err
	}
	if became {
		rt.addToPool(r)
		info := s.newInfo(event.KindResourceActivated, now, nil)
		info.ResourceID, info.ResourceTypeID, info.Name = r.id, rt.id, r.name
		s.emit(ctx, info)
		if err := s.requestSweep(ctx, rt.manager); err != nil {
			return err
		}
	}

	if err := ctx.Schedule(w.event(now.Add(w.entry.Duration), engine.PriorityResourceOff, w.off)); err != nil {
		return err
	}
	at, ok, err := w.next()
	if err != nil {
		return fmt.Errorf("%s: timetable: %w", r, err)
	}
	if !ok {
		return nil
	}
	return ctx.Schedule(w.event(at, engine.PriorityResourceOn, w.on))
}

func (w *window) off(ctx *engine.Context) error {
	s, r, rt := w.sim, w.r, w.entry.ResourceType
	if !r.deactivate(rt) {
		return nil
	}
	rt.removeFromPool(r)
	info := s.newInfo(event.KindResourceDeactivated, ctx.Now(), nil)
	info.ResourceID, info.ResourceTypeID, info.Name = r.id, rt.id, r.name
	s.emit(ctx, info)
	return nil
}
