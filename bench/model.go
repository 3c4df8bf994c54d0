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

// Package bench builds synthetic models from a config.Config and runs them
// to measure engine throughput.
//
// A model has Activities activities and ResourceTypes resource types, each
// type backed by ResourcesPerType resources available over the whole run.
// Activity k needs one unit of type k mod ResourceTypes. Elements arrive
// every Period in groups of ElementsPerTick and follow the configured
// workflow pattern:
//
//   - sequence: the activities one after the other
//   - parallel: all activities at once, synchronized at the end
//   - exclusive: one activity, picked from the element id
//   - multi: every activity k whose k+1 divides the element id
//   - loop: the sequence, repeated Iterations times
package bench

import (
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/condition"
	"github.com/jazzpetri/flowsim/config"
	"github.com/jazzpetri/flowsim/cycle"
	"github.com/jazzpetri/flowsim/flow"
	"github.com/jazzpetri/flowsim/sim"
	"github.com/jazzpetri/flowsim/timefunc"
)

// Model is a built synthetic model, ready to run once.
type Model struct {
	Sim        *sim.Simulation
	Activities []*sim.Activity
	Initial    flow.ID
}

// Options derives simulation options from cfg. Observability fields are
// left for the caller.
func Options(cfg *config.Config) sim.Options {
	opts := sim.DefaultOptions()
	opts.Name = cfg.Name
	opts.End = clock.Time(cfg.Horizon)
	opts.Unit = cfg.TimeUnit()
	opts.Engine = cfg.EngineConfig()
	opts.StrictOrder = cfg.StrictOrder
	return opts
}

// Build creates the model described by cfg.Model.
func Build(cfg *config.Config, opts sim.Options) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := sim.New(opts)
	if err != nil {
		return nil, err
	}
	m := &Model{Sim: s}
	shape := cfg.Model

	window, err := cycle.NewPeriodicIterations(timefunc.Constant(0), timefunc.Constant(1), 1)
	if err != nil {
		return nil, err
	}
	types := make([]*sim.ResourceType, shape.ResourceTypes)
	for i := range types {
		types[i] = s.NewResourceType(fmt.Sprintf("type-%d", i))
		for j := 0; j < shape.ResourcesPerType; j++ {
			r := s.NewResource(fmt.Sprintf("type-%d/%d", i, j))
			if err := r.AddTimeTableEntry(window, clock.Time(cfg.Horizon), types[i]); err != nil {
				return nil, err
			}
		}
	}

	tasks := make([]flow.ID, shape.Activities)
	for k := range tasks {
		a := s.NewActivity(fmt.Sprintf("activity-%d", k), 0)
		d, err := shape.Duration.New(timefunc.NewSource(cfg.Seed + uint64(k)))
		if err != nil {
			return nil, err
		}
		wg, err := a.NewWorkGroup(0, d)
		if err != nil {
			return nil, err
		}
		if err := wg.Add(types[k%len(types)], 1); err != nil {
			return nil, err
		}
		if tasks[k], err = s.Graph().NewTask(a.Name(), a.ID()); err != nil {
			return nil, err
		}
		m.Activities = append(m.Activities, a)
	}

	if m.Initial, err = wire(s.Graph(), shape, tasks); err != nil {
		return nil, fmt.Errorf("bench: %s pattern: %w", shape.Pattern, err)
	}

	until := clock.Time(shape.ArrivalsUntil)
	if until == 0 {
		until = clock.Time(cfg.Horizon)
	}
	arrivals, err := cycle.NewPeriodic(timefunc.Constant(0), timefunc.Constant(float64(shape.Period)), until)
	if err != nil {
		return nil, err
	}
	et := s.NewElementType("element", 0)
	if _, err := s.NewGenerator(arrivals, et, m.Initial, timefunc.Constant(float64(shape.ElementsPerTick))); err != nil {
		return nil, err
	}
	return m, nil
}

// wire links the tasks following the pattern and returns the initial flow.
func wire(g *flow.Graph, shape config.Model, tasks []flow.ID) (flow.ID, error) {
	n := len(tasks)
	switch shape.Pattern {
	case config.PatternSequence:
		return tasks[0], g.Sequence(tasks...)

	case config.PatternLoop:
		if err := g.Sequence(tasks...); err != nil {
			return flow.NoFlow, err
		}
		return g.NewFor("repeat", tasks[0], tasks[n-1], timefunc.Constant(float64(shape.Iterations)))

	case config.PatternParallel:
		st, err := g.NewParallelStructure("all")
		if err != nil {
			return flow.NoFlow, err
		}
		for _, id := range tasks {
			if err := g.AddBranch(st, id, id, nil); err != nil {
				return flow.NoFlow, err
			}
		}
		return st, nil

	case config.PatternExclusive, config.PatternMulti:
		build := g.NewExclusiveChoiceStructure
		if shape.Pattern == config.PatternMulti {
			build = g.NewMultiChoiceStructure
		}
		st, err := build("pick")
		if err != nil {
			return flow.NoFlow, err
		}
		for k, id := range tasks {
			if err := g.AddBranch(st, id, id, branchCondition(shape.Pattern, k, n)); err != nil {
				return flow.NoFlow, err
			}
		}
		return st, nil
	}
	return flow.NoFlow, fmt.Errorf("unknown pattern %q", shape.Pattern)
}

func branchCondition(pattern string, k, n int) condition.Condition {
	if pattern == config.PatternExclusive {
		return condition.Func(func(s condition.Subject) (bool, error) {
			return int(s.ElementID()%uint64(n)) == k, nil
		})
	}
	return condition.Func(func(s condition.Subject) (bool, error) {
		return s.ElementID()%uint64(k+1) == 0, nil
	})
}
