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
	"sort"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/flow"
)

// MaxCheckedWindows bounds the timetable windows drawn per entry before
// the run. The run replays exactly those windows, so random cycles are
// checked on the sample they use. Windows past the bound are drawn while
// the run goes; an overlap among them aborts the run when the window opens.
const MaxCheckedWindows = 10000

// validate checks the model and computes the managers. Every problem found
// is reported, joined.
func (s *Simulation) validate() error {
	var errs []error
	if err := s.graph.Freeze(); err != nil {
		errs = append(errs, &ModelError{Entity: "flow", Reason: err.Error()})
	}

	for _, n := range s.graph.Nodes() {
		if n.Kind != flow.KindTask {
			continue
		}
		if n.Activity < 0 || n.Activity >= len(s.activities) {
			errs = append(errs, modelErrorf("flow", "%s references unknown activity %d", n, n.Activity))
		}
	}
	for _, a := range s.activities {
		if len(a.workGroups) == 0 {
			errs = append(errs, modelErrorf(a.entity(), "no work groups"))
		}
	}
	for _, g := range s.generators {
		if !s.graph.TopLevel(g.initial) {
			errs = append(errs, modelErrorf(g.entity(), "initial flow %d is inside a structured body", g.initial))
		}
	}
	s.windows = s.windows[:0]
	for _, r := range s.resources {
		ws, err := s.drawWindows(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := checkOverlaps(r, ws); err != nil {
			errs = append(errs, err)
		}
		s.windows = append(s.windows, ws...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := s.buildManagers(); err != nil {
		return err
	}
	s.groupManagers()
	return nil
}

type span struct {
	from, to clock.Time
}

// drawWindows starts one window per timetable entry of r and draws its
// first MaxCheckedWindows opening times.
func (s *Simulation) drawWindows(r *Resource) ([]*window, error) {
	ws := make([]*window, 0, len(r.table))
	for _, entry := range r.table {
		w := &window{sim: s, r: r, entry: entry, it: entry.Cycle.Iterator(s.opts.Start, s.opts.End)}
		for len(w.starts) < MaxCheckedWindows {
			t, ok, err := w.it.Next()
			if err != nil {
				return nil, modelErrorf(r.entity(), "timetable: %v", err)
			}
			if !ok {
				w.drained = true
				break
			}
			w.starts = append(w.starts, t)
		}
		ws = append(ws, w)
	}
	return ws, nil
}

// checkOverlaps rejects two windows of r for the same role that overlap.
// Windows touching at a boundary are fine.
func checkOverlaps(r *Resource, ws []*window) error {
	byRole := map[*ResourceType][]span{}
	for _, w := range ws {
		rt := w.entry.ResourceType
		for _, t := range w.starts {
			byRole[rt] = append(byRole[rt], span{t, t.Add(w.entry.Duration)})
		}
	}

	roles := make([]*ResourceType, 0, len(byRole))
	for rt := range byRole {
		roles = append(roles, rt)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].id < roles[j].id })

	for _, rt := range roles {
		spans := byRole[rt]
		sort.Slice(spans, func(i, j int) bool { return spans[i].from < spans[j].from })
		for i := 1; i < len(spans); i++ {
			if spans[i].from < spans[i-1].to {
				return modelErrorf(r.entity(), "overlapping timetable windows for %s at %s and %s",
					rt, spans[i-1].from, spans[i].from)
			}
		}
	}
	return nil
}
