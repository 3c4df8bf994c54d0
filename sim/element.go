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
	"github.com/jazzpetri/flowsim/flow"
)

// ElementType groups elements sharing a priority and default variables.
type ElementType struct {
	id       int
	name     string
	priority int
	sim      *Simulation
	vars     map[string]interface{}
}

// ID returns the element type id.
func (et *ElementType) ID() int { return et.id }

// Name returns the description.
func (et *ElementType) Name() string { return et.name }

// Priority returns the priority of the type's elements in activity queues;
// lower values are served first.
func (et *ElementType) Priority() int { return et.priority }

// SetVar sets a default variable copied into every new element.
func (et *ElementType) SetVar(name string, value interface{}) error {
	if err := et.sim.checkOpen(); err != nil {
		return err
	}
	et.vars[name] = value
	return nil
}

// Element is an entity flowing through the workflow. Its work threads form
// a tree stored in an arena owned by the element. Pattern state (join
// counters, merge timestamps) lives on the thread of the enclosing
// structured node, so every instance of a body counts on its own.
type Element struct {
	id    uint64
	typ   *ElementType
	start clock.Time

	mu   sync.RWMutex
	vars map[string]interface{}

	// Fields below are only touched by the element's own events.
	threads []*WorkThread
	free    []int
	serial  uint64
	root    *WorkThread
}

func newElement(id uint64, typ *ElementType, now clock.Time) *Element {
	e := &Element{
		id:    id,
		typ:   typ,
		start: now,
		vars:  make(map[string]interface{}, len(typ.vars)),
	}
	for k, v := range typ.vars {
		e.vars[k] = v
	}
	return e
}

// ID returns the element id. Ids start at 1.
func (e *Element) ID() uint64 { return e.id }

// Type returns the element type.
func (e *Element) Type() *ElementType { return e.typ }

// Start returns the creation timestamp.
func (e *Element) Start() clock.Time { return e.start }

// Var returns a variable.
func (e *Element) Var(name string) (interface{}, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[name]
	return v, ok
}

// SetVar sets a variable.
func (e *Element) SetVar(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value
}

// Vars returns a copy of the variables.
func (e *Element) Vars() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]interface{}, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

func (e *Element) String() string {
	return fmt.Sprintf("Element[%d %s]", e.id, e.typ.name)
}

func (e *Element) entity() string {
	return entityName("element", e.id)
}

// LiveThreads returns the number of work threads not yet ended.
func (e *Element) LiveThreads() int {
	return len(e.threads) - len(e.free)
}

// subject evaluates conditions for an element at a timestamp.
type subject struct {
	e   *Element
	now clock.Time
}

func (s subject) ElementID() uint64                    { return s.e.id }
func (s subject) ElementType() string                  { return s.e.typ.name }
func (s subject) Var(name string) (interface{}, bool) { return s.e.Var(name) }
func (s subject) Now() clock.Time                      { return s.now }

// WorkThread is a token moving through the flow graph on behalf of an
// element. A false token carries no work: it only walks the graph so joins
// downstream see every branch.
type WorkThread struct {
	element *Element
	index   int
	serial  uint64
	parent  int

	// children counts live threads created for this thread's structured
	// node, or for the element when this is the root.
	children   int
	flow       flow.ID
	prev       flow.ID
	executable bool
	visited    map[flow.ID]struct{}
	loops      map[flow.ID]int

	// joins holds the state of join and merge nodes reached by the
	// children of this thread.
	joins map[flow.ID]*joinState

	// Booking state, written by the manager sweep.
	requestedAt clock.Time
	workGroup   *WorkGroup
	caught      []*Resource
}

// noThread marks a thread without parent.
const noThread = -1

// newThread allocates a thread in the arena. A child inherits the visited
// set of from.
func (e *Element) newThread(parent *WorkThread, executable bool, from *WorkThread) *WorkThread {
	wt := &WorkThread{
		element:    e,
		serial:     e.serial,
		parent:     noThread,
		flow:       flow.NoFlow,
		prev:       flow.NoFlow,
		executable: executable,
	}
	e.serial++
	if parent != nil {
		wt.parent = parent.index
		parent.children++
	}
	if from != nil && len(from.visited) > 0 {
		wt.visited = make(map[flow.ID]struct{}, len(from.visited))
		for k := range from.visited {
			wt.visited[k] = struct{}{}
		}
	}
	if n := len(e.free); n > 0 {
		wt.index = e.free[n-1]
		e.free = e.free[:n-1]
		e.threads[wt.index] = wt
	} else {
		wt.index = len(e.threads)
		e.threads = append(e.threads, wt)
	}
	return wt
}

// dropThread returns the slot of wt to the arena and returns its parent.
func (e *Element) dropThread(wt *WorkThread) *WorkThread {
	e.threads[wt.index] = nil
	e.free = append(e.free, wt.index)
	if wt.parent == noThread {
		return nil
	}
	p := e.threads[wt.parent]
	p.children--
	return p
}

// Element returns the owning element.
func (wt *WorkThread) Element() *Element { return wt.element }

// Executable reports whether the token carries work.
func (wt *WorkThread) Executable() bool { return wt.executable }

// Flow returns the current position.
func (wt *WorkThread) Flow() flow.ID { return wt.flow }

func (wt *WorkThread) String() string {
	color := "true"
	if !wt.executable {
		color = "false"
	}
	return fmt.Sprintf("WorkThread[e%d#%d %s at %d]", wt.element.id, wt.serial, color, wt.flow)
}

func (wt *WorkThread) less(o *WorkThread) bool {
	if wt.element.id != o.element.id {
		return wt.element.id < o.element.id
	}
	return wt.serial < o.serial
}

func (wt *WorkThread) visit(id flow.ID) bool {
	if _, seen := wt.visited[id]; seen {
		return false
	}
	if wt.visited == nil {
		wt.visited = make(map[flow.ID]struct{})
	}
	wt.visited[id] = struct{}{}
	return true
}

// joinState is the per-element state of a join or merge node.
type joinState struct {
	arrived     int
	trueArrived int
	passed      bool
	branches    map[flow.ID]bool

	// lastTrue is when a simple merge last passed a true token.
	lastTrue clock.Time
}

// scope returns the thread owning the join state seen by wt: the thread of
// the structured node whose body wt runs in, or the root.
func (e *Element) scope(wt *WorkThread) *WorkThread {
	if wt.parent == noThread {
		return wt
	}
	return e.threads[wt.parent]
}

func (wt *WorkThread) join(id flow.ID) *joinState {
	st, ok := wt.joins[id]
	if !ok {
		if wt.joins == nil {
			wt.joins = make(map[flow.ID]*joinState)
		}
		st = &joinState{lastTrue: -1}
		wt.joins[id] = st
	}
	return st
}

// reset starts a new round, keeping the timestamp of the last true pass.
func (st *joinState) reset() {
	st.arrived, st.trueArrived, st.passed, st.branches = 0, 0, false, nil
}

// PendingJoins returns the join nodes holding partial arrivals for e.
func (e *Element) PendingJoins() []flow.ID {
	seen := make(map[flow.ID]bool)
	var out []flow.ID
	for _, wt := range e.threads {
		if wt == nil {
			continue
		}
		for id, st := range wt.joins {
			if st.arrived > 0 && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
