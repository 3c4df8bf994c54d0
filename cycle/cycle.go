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

// Package cycle produces the timestamp sequences that drive generators and
// resource timetables.
//
// A Cycle is an immutable description; every consumer asks it for a fresh
// Iterator, so the same cycle can be shared by several generators or
// timetable entries and restarted for each run.
//
// Example:
//
//	c, _ := cycle.NewPeriodic(timefunc.Constant(0), timefunc.Constant(3), 10)
//	it := c.Iterator(0, clock.Infinity)
//	for {
//	    t, ok, err := it.Next()
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(t) // 0 3 6 9
//	}
package cycle

import (
	"fmt"
	"math"
	"sort"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/timefunc"
)

// Cycle describes a possibly infinite, non-decreasing sequence of timestamps.
type Cycle interface {
	// Iterator returns a fresh iterator over the timestamps in [start, end).
	Iterator(start, end clock.Time) Iterator
}

// Iterator walks a cycle. It is stateful and must not be shared between
// goroutines.
type Iterator interface {
	// Next returns the next timestamp. ok is false once the sequence is
	// exhausted; err reports a failing time function.
	Next() (t clock.Time, ok bool, err error)
}

// Periodic emits Start, Start+Period, Start+2*Period, ... where both Start
// (an offset from the iterator start) and Period are sampled from time
// functions. The sequence stops at End (exclusive) or after Iterations
// timestamps, whichever comes first.
type Periodic struct {
	Start      timefunc.TimeFunction
	Period     timefunc.TimeFunction
	End        clock.Time
	Iterations int
}

// NewPeriodic creates a periodic cycle bounded by an end timestamp.
// Use clock.Infinity for an unbounded cycle.
func NewPeriodic(start, period timefunc.TimeFunction, end clock.Time) (*Periodic, error) {
	if start == nil || period == nil {
		return nil, fmt.Errorf("cycle: start and period functions are required")
	}
	return &Periodic{Start: start, Period: period, End: end}, nil
}

// NewPeriodicIterations creates a periodic cycle bounded by an iteration count.
func NewPeriodicIterations(start, period timefunc.TimeFunction, iterations int) (*Periodic, error) {
	if start == nil || period == nil {
		return nil, fmt.Errorf("cycle: start and period functions are required")
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("cycle: iterations must be positive, got %d", iterations)
	}
	return &Periodic{Start: start, Period: period, End: clock.Infinity, Iterations: iterations}, nil
}

// Iterator implements Cycle.
func (p *Periodic) Iterator(start, end clock.Time) Iterator {
	limit := end
	if p.End != 0 && p.End < limit {
		limit = p.End
	}
	return &periodicIterator{cycle: p, origin: start, limit: limit}
}

type periodicIterator struct {
	cycle   *Periodic
	origin  clock.Time
	limit   clock.Time
	current clock.Time
	emitted int
	done    bool
}

func (it *periodicIterator) Next() (clock.Time, bool, error) {
	if it.done {
		return 0, false, nil
	}
	if it.cycle.Iterations > 0 && it.emitted >= it.cycle.Iterations {
		it.done = true
		return 0, false, nil
	}
	var next clock.Time
	if it.emitted == 0 {
		offset, err := timefunc.Time(it.cycle.Start, it.origin)
		if err != nil {
			return 0, false, fmt.Errorf("cycle: start: %w", err)
		}
		next = it.origin.Add(offset)
	} else {
		period, err := timefunc.Time(it.cycle.Period, it.current)
		if err != nil {
			return 0, false, fmt.Errorf("cycle: period: %w", err)
		}
		if period == 0 && it.cycle.Iterations == 0 {
			return 0, false, fmt.Errorf("cycle: zero period on an unbounded cycle at %s", it.current)
		}
		next = it.current.Add(period)
	}
	if next >= it.limit {
		it.done = true
		return 0, false, nil
	}
	it.current = next
	it.emitted++
	return next, true, nil
}

// RoundMode selects how Rounded aligns timestamps.
type RoundMode int

const (
	// RoundNearest aligns to the nearest multiple.
	RoundNearest RoundMode = iota
	// RoundUp aligns to the next multiple.
	RoundUp
	// RoundDown aligns to the previous multiple.
	RoundDown
)

// Rounded wraps another cycle and aligns each timestamp to a multiple of
// Factor, then adds Shift. Typical use is a timetable that starts on the
// hour whatever the sampled offset. The output never decreases.
type Rounded struct {
	Inner  Cycle
	Factor clock.Time
	Shift  clock.Time
	Mode   RoundMode
}

// NewRounded creates a rounded cycle.
func NewRounded(inner Cycle, factor, shift clock.Time, mode RoundMode) (*Rounded, error) {
	if inner == nil {
		return nil, fmt.Errorf("cycle: rounded cycle requires an inner cycle")
	}
	if factor <= 0 {
		return nil, fmt.Errorf("cycle: rounding factor must be positive, got %d", factor)
	}
	return &Rounded{Inner: inner, Factor: factor, Shift: shift, Mode: mode}, nil
}

// Iterator implements Cycle.
func (r *Rounded) Iterator(start, end clock.Time) Iterator {
	return &roundedIterator{cycle: r, inner: r.Inner.Iterator(start, end), end: end, last: -1}
}

type roundedIterator struct {
	cycle *Rounded
	inner Iterator
	end   clock.Time
	last  clock.Time
}

func (it *roundedIterator) Next() (clock.Time, bool, error) {
	t, ok, err := it.inner.Next()
	if err != nil || !ok {
		return 0, ok, err
	}
	f := float64(it.cycle.Factor)
	var aligned float64
	switch it.cycle.Mode {
	case RoundUp:
		aligned = math.Ceil(float64(t)/f) * f
	case RoundDown:
		aligned = math.Floor(float64(t)/f) * f
	default:
		aligned = math.Round(float64(t)/f) * f
	}
	out := clock.Time(aligned).Add(it.cycle.Shift)
	if out < it.last {
		out = it.last
	}
	if out >= it.end {
		return 0, false, nil
	}
	it.last = out
	return out, true, nil
}

// Table emits an explicit list of offsets from the iterator start.
type Table struct {
	Offsets []clock.Time
}

// NewTable creates a table cycle. Offsets are sorted; negative offsets are
// rejected.
func NewTable(offsets ...clock.Time) (*Table, error) {
	sorted := append([]clock.Time(nil), offsets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if len(sorted) > 0 && sorted[0] < 0 {
		return nil, fmt.Errorf("cycle: negative offset %d", sorted[0])
	}
	return &Table{Offsets: sorted}, nil
}

// Iterator implements Cycle.
func (t *Table) Iterator(start, end clock.Time) Iterator {
	return &tableIterator{table: t, origin: start, end: end}
}

type tableIterator struct {
	table  *Table
	origin clock.Time
	end    clock.Time
	pos    int
}

func (it *tableIterator) Next() (clock.Time, bool, error) {
	if it.pos >= len(it.table.Offsets) {
		return 0, false, nil
	}
	t := it.origin.Add(it.table.Offsets[it.pos])
	if t >= it.end {
		it.pos = len(it.table.Offsets)
		return 0, false, nil
	}
	it.pos++
	return t, true, nil
}

// Collect drains up to max timestamps from a fresh iterator. It is a
// convenience for validation and tests; max bounds infinite cycles.
func Collect(c Cycle, start, end clock.Time, max int) ([]clock.Time, error) {
	it := c.Iterator(start, end)
	var out []clock.Time
	for len(out) < max {
		t, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
