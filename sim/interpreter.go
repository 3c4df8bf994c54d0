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

	"github.com/jazzpetri/flowsim/condition"
	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/event"
	"github.com/jazzpetri/flowsim/flow"
	"github.com/jazzpetri/flowsim/timefunc"
)

// The interpreter moves work threads through the frozen flow graph. It has
// three entry points per node:
//
//	request: a thread arrives at a node
//	next:    a thread is done with its node and moves to the successor
//	end:     a thread disappears; its parent learns when the last child ended
//
// All of them run inside events of the owning element, so the per-element
// state they touch is never shared between goroutines.

// request moves wt onto node id.
func (s *Simulation) request(ctx *engine.Context, wt *WorkThread, id flow.ID) error {
	wt.prev, wt.flow = wt.flow, id
	n := s.graph.At(id)
	if !wt.executable && !wt.visit(id) {
		return s.end(ctx, wt)
	}

	switch {
	case n.Kind == flow.KindTask:
		if !wt.executable {
			return s.next(ctx, wt)
		}
		return s.requestActivity(ctx, wt, s.activities[n.Activity])

	case n.Kind == flow.KindParallelSplit:
		colors := make([]bool, len(n.Successors))
		for i := range colors {
			colors[i] = wt.executable
		}
		return s.split(ctx, wt, n.Successors, colors)

	case n.Kind == flow.KindExclusiveChoice:
		colors := make([]bool, len(n.Successors))
		if wt.executable {
			for i, cond := range n.Conditions {
				ok, err := s.check(ctx, wt, n, cond)
				if err != nil {
					return err
				}
				if ok {
					colors[i] = true
					break
				}
			}
		}
		return s.split(ctx, wt, n.Successors, colors)

	case n.Kind == flow.KindMultiChoice:
		colors := make([]bool, len(n.Successors))
		if wt.executable {
			for i, cond := range n.Conditions {
				ok, err := s.check(ctx, wt, n, cond)
				if err != nil {
					return err
				}
				colors[i] = ok
			}
		}
		return s.split(ctx, wt, n.Successors, colors)

	case n.Kind == flow.KindThreadSplit:
		succ := make([]flow.ID, n.Instances)
		colors := make([]bool, n.Instances)
		for i := range succ {
			succ[i], colors[i] = n.Successors[0], wt.executable
		}
		return s.split(ctx, wt, succ, colors)

	case n.Kind == flow.KindSimpleMerge:
		return s.simpleMerge(ctx, wt, n)

	case n.Kind.IsJoin():
		return s.join(ctx, wt, n)

	case n.Kind.IsStructured():
		if !wt.executable {
			return s.next(ctx, wt)
		}
		return s.enter(ctx, wt, n)
	}
	return invariantErrorf(wt.element.entity(), "no behavior for %s", n)
}

// check evaluates cond for the element of wt. A nil condition holds.
func (s *Simulation) check(ctx *engine.Context, wt *WorkThread, n *flow.Node, cond condition.Condition) (bool, error) {
	if cond == nil {
		return true, nil
	}
	ok, err := cond.Check(subject{e: wt.element, now: ctx.Now()})
	if err != nil {
		return false, fmt.Errorf("%s: condition: %w", n, err)
	}
	return ok, nil
}

// next forwards wt to the successor of its node, or ends it.
func (s *Simulation) next(ctx *engine.Context, wt *WorkThread) error {
	n := s.graph.At(wt.flow)
	if len(n.Successors) == 0 {
		return s.end(ctx, wt)
	}
	return s.request(ctx, wt, n.Successors[0])
}

// split replaces wt by one sibling per successor. The siblings exist before
// any of them runs so the parent cannot see its children drop to zero.
func (s *Simulation) split(ctx *engine.Context, wt *WorkThread, succ []flow.ID, colors []bool) error {
	e := wt.element
	var parent *WorkThread
	if wt.parent != noThread {
		parent = e.threads[wt.parent]
	}
	siblings := make([]*WorkThread, len(succ))
	for i := range succ {
		siblings[i] = e.newThread(parent, colors[i], wt)
		siblings[i].flow = wt.flow
	}
	for i, sib := range siblings {
		if err := s.request(ctx, sib, succ[i]); err != nil {
			return err
		}
	}
	return s.end(ctx, wt)
}

// descend starts a child of wt at the initial node of a body.
func (s *Simulation) descend(ctx *engine.Context, wt *WorkThread, initial flow.ID) error {
	child := wt.element.newThread(wt, true, nil)
	return s.request(ctx, child, initial)
}

// end removes wt. When it was the last child of a structured node, the node
// decides what comes next; when it was the last child of the root, the
// element is done.
func (s *Simulation) end(ctx *engine.Context, wt *WorkThread) error {
	e := wt.element
	parent := e.dropThread(wt)
	if parent == nil || parent.children > 0 {
		return nil
	}
	if parent == e.root {
		s.finishElement(ctx, e)
		return nil
	}
	return s.bodyDone(ctx, parent)
}

// enter starts the body of a structured node.
func (s *Simulation) enter(ctx *engine.Context, wt *WorkThread, n *flow.Node) error {
	switch n.Kind {
	case flow.KindWhileDo:
		ok, err := s.check(ctx, wt, n, n.Condition)
		if err != nil {
			return err
		}
		if !ok {
			return s.next(ctx, wt)
		}
	case flow.KindFor:
		k, err := timefunc.Count(n.Iterations, ctx.Now())
		if err != nil {
			return fmt.Errorf("%s: iterations: %w", n, err)
		}
		if k == 0 {
			return s.next(ctx, wt)
		}
		if wt.loops == nil {
			wt.loops = make(map[flow.ID]int)
		}
		wt.loops[n.ID] = k
	}
	return s.descend(ctx, wt, n.Initial)
}

// bodyDone runs when every thread of the body of wt's node ended. Join
// state of that body instance goes with it.
func (s *Simulation) bodyDone(ctx *engine.Context, wt *WorkThread) error {
	wt.joins = nil
	n := s.graph.At(wt.flow)
	switch n.Kind {
	case flow.KindWhileDo, flow.KindDoWhile:
		ok, err := s.check(ctx, wt, n, n.Condition)
		if err != nil {
			return err
		}
		if ok {
			return s.descend(ctx, wt, n.Initial)
		}
	case flow.KindFor:
		wt.loops[n.ID]--
		if wt.loops[n.ID] > 0 {
			return s.descend(ctx, wt, n.Initial)
		}
		delete(wt.loops, n.ID)
	}
	return s.next(ctx, wt)
}

// simpleMerge passes the first true arrival of a body instance per
// timestamp; later true arrivals at the same timestamp are absorbed. False
// arrivals only count: once every branch arrived without a true one, the
// merge forwards a false token if it passes false.
func (s *Simulation) simpleMerge(ctx *engine.Context, wt *WorkThread, n *flow.Node) error {
	st := wt.element.scope(wt).join(n.ID)
	now := ctx.Now()
	st.arrived++
	pass := false
	if wt.executable {
		st.trueArrived++
		if st.lastTrue != now {
			st.lastTrue = now
			pass = true
		}
	}
	if st.arrived >= n.Incoming() {
		if st.trueArrived == 0 && n.PassFalse {
			pass = true
		}
		st.reset()
	}
	if !pass {
		return s.end(ctx, wt)
	}
	return s.next(ctx, wt)
}

// join counts arrivals at an AND-join variant. The arrival completing the
// accept value passes; the others end. Once every branch arrived the state
// is reset, and a join that never passed may forward a false token.
func (s *Simulation) join(ctx *engine.Context, wt *WorkThread, n *flow.Node) error {
	e := wt.element
	st := e.scope(wt).join(n.ID)
	incoming := n.Incoming()

	if !n.Kind.IsThreadJoin() {
		if st.branches == nil {
			st.branches = make(map[flow.ID]bool, incoming)
		}
		if st.branches[wt.prev] {
			return invariantErrorf(e.entity(), "%s: branch %d arrived twice before the join reset", n, wt.prev)
		}
		st.branches[wt.prev] = true
	}
	st.arrived++
	if st.arrived > incoming {
		return invariantErrorf(e.entity(), "%s: %d arrivals for %d branches", n, st.arrived, incoming)
	}
	if wt.executable {
		st.trueArrived++
	}

	pass, color := false, true
	if n.Kind == flow.KindSynchronizingMerge {
		if st.arrived == incoming && st.trueArrived > 0 {
			pass = true
		}
	} else if wt.executable && !st.passed && st.trueArrived == n.AcceptValue() {
		pass = true
	}
	if pass {
		st.passed = true
	}
	if st.arrived == incoming {
		if !st.passed && n.PassFalse {
			pass, color = true, false
		}
		st.reset()
	}

	if !pass {
		return s.end(ctx, wt)
	}
	wt.executable = color
	if !color {
		wt.visit(n.ID)
	}
	return s.next(ctx, wt)
}

// requestActivity queues wt on an activity and asks its manager for a
// sweep.
func (s *Simulation) requestActivity(ctx *engine.Context, wt *WorkThread, a *Activity) error {
	e := wt.element
	wt.requestedAt = ctx.Now()
	req := &request{
		wt:       wt,
		priority: e.typ.priority,
		at:       ctx.Now(),
		element:  e.id,
		serial:   wt.serial,
	}
	m := a.manager
	m.mu.Lock()
	a.enqueue(req)
	m.mu.Unlock()

	info := s.newInfo(event.KindActivityRequest, ctx.Now(), e)
	info.ActivityID, info.Name = a.id, a.name
	s.emit(ctx, info)
	return s.requestSweep(ctx, m)
}

// finishActivity releases the resources of wt, runs the finish hook and
// moves wt on.
func (s *Simulation) finishActivity(ctx *engine.Context, a *Activity, wt *WorkThread) error {
	e := wt.element
	now := ctx.Now()
	info := s.newInfo(event.KindActivityEnd, now, e)
	info.ActivityID, info.WorkGroupID, info.Name = a.id, wt.workGroup.id, a.name
	s.emit(ctx, info)

	for _, r := range wt.caught {
		if err := s.releaseResource(ctx, r, wt, a); err != nil {
			return err
		}
	}
	wt.caught, wt.workGroup = nil, nil

	if a.onFinish != nil {
		if err := a.onFinish(e, now); err != nil {
			return fmt.Errorf("%s: finish hook: %w", a, err)
		}
	}
	return s.next(ctx, wt)
}
