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
	"github.com/jazzpetri/flowsim/flow"
	"github.com/jazzpetri/flowsim/timefunc"
)

// Generator creates elements at every timestamp of a cycle.
type Generator struct {
	id      int
	sim     *Simulation
	cycle   cycle.Cycle
	typ     *ElementType
	initial flow.ID
	count   timefunc.TimeFunction

	it cycle.Iterator
}

// ID returns the generator id.
func (g *Generator) ID() int { return g.id }

func (g *Generator) String() string {
	return fmt.Sprintf("Generator[%d %s]", g.id, g.typ.name)
}

func (g *Generator) entity() string {
	return entityName("generator", g.id)
}

func (g *Generator) tickEvent(at clock.Time) *engine.Event {
	return &engine.Event{
		At:        at,
		Priority:  engine.PriorityArrival,
		Affinity:  engine.Affinity(engine.AffinityGenerator, uint64(g.id)),
		Partition: g.id,
		Source:    g.entity(),
		Fn:        g.tick,
	}
}

// schedule queues the first tick.
func (g *Generator) schedule(eng *engine.Engine) error {
	g.it = g.cycle.Iterator(eng.Clock().Start(), eng.Clock().End())
	at, ok, err := g.it.Next()
	if err != nil {
		return fmt.Errorf("%s: %w", g, err)
	}
	if !ok {
		return nil
	}
	return eng.Schedule(g.tickEvent(at))
}

// tick samples the number of elements to create and queues the next tick.
// Elements are created once the batch is done so their ids follow batch
// order.
func (g *Generator) tick(ctx *engine.Context) error {
	n, err := timefunc.Count(g.count, ctx.Now())
	if err != nil {
		return fmt.Errorf("%s: count: %w", g, err)
	}
	if n > 0 {
		ctx.Defer(func(ctx *engine.Context) error {
			for i := 0; i < n; i++ {
				if err := g.sim.createElement(ctx, g); err != nil {
					return err
				}
			}
			return nil
		})
	}
	at, ok, err := g.it.Next()
	if err != nil {
		return fmt.Errorf("%s: %w", g, err)
	}
	if !ok {
		return nil
	}
	return ctx.Schedule(g.tickEvent(at))
}

func (s *Simulation) createElement(ctx *engine.Context, g *Generator) error {
	s.nextElement++
	e := newElement(s.nextElement, g.typ, ctx.Now())
	s.mu.Lock()
	s.live[e.id] = e
	s.mu.Unlock()
	s.stats.elementsCreated.Add(1)
	s.metrics.Inc("sim_elements_created_total")

	return ctx.Schedule(&engine.Event{
		At:        ctx.Now(),
		Priority:  engine.PriorityArrival,
		Affinity:  engine.Affinity(engine.AffinityElement, e.id),
		Partition: int(e.id),
		Source:    e.entity(),
		Fn: func(ctx *engine.Context) error {
			return s.startElement(ctx, e, g.initial)
		},
	})
}

func (s *Simulation) startElement(ctx *engine.Context, e *Element, initial flow.ID) error {
	s.emit(ctx, s.newInfo(event.KindElementStart, ctx.Now(), e))
	e.root = e.newThread(nil, true, nil)
	return s.descend(ctx, e.root, initial)
}

func (s *Simulation) finishElement(ctx *engine.Context, e *Element) {
	s.mu.Lock()
	delete(s.live, e.id)
	s.mu.Unlock()
	e.dropThread(e.root)
	e.root = nil
	s.stats.elementsFinished.Add(1)
	s.metrics.Inc("sim_elements_finished_total")
	s.emit(ctx, s.newInfo(event.KindElementFinish, ctx.Now(), e))
}
