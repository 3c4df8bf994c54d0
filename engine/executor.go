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

package engine

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jazzpetri/flowsim/context"
)

// executor owns the event queues of a run and executes batches.
type executor interface {
	start()
	stop() error
	push(events []*Event)
	peek() (Key, bool)
	pending() int
	// runBatch pops every event with key k, runs their callbacks and returns
	// their contexts in dispatch order.
	runBatch(k Key, exec *context.ExecutionContext) []*Context
}

// sequential runs every event on the calling goroutine.
type sequential struct {
	q *Queue
}

func newSequential() *sequential {
	return &sequential{q: NewQueue()}
}

func (s *sequential) start()       {}
func (s *sequential) stop() error  { return nil }
func (s *sequential) pending() int { return s.q.Len() }

func (s *sequential) push(events []*Event) {
	for _, e := range events {
		s.q.Push(e)
	}
}

func (s *sequential) peek() (Key, bool) {
	e := s.q.Peek()
	if e == nil {
		return Key{}, false
	}
	return keyOf(e), true
}

func (s *sequential) runBatch(k Key, exec *context.ExecutionContext) []*Context {
	batch := s.q.PopBatch(k)
	ctxs := make([]*Context, len(batch))
	for i, e := range batch {
		ctxs[i] = newContext(exec, e)
		ctxs[i].dispatch()
		if ctxs[i].err != nil {
			return ctxs[:i+1]
		}
	}
	return ctxs
}

// pool runs the affinity groups of a batch concurrently on at most workers
// goroutines. Events of one group run sequentially in dispatch order.
type pool struct {
	q       *Queue
	workers int
}

func newPool(workers int) *pool {
	return &pool{q: NewQueue(), workers: workers}
}

func (p *pool) start()       {}
func (p *pool) stop() error  { return nil }
func (p *pool) pending() int { return p.q.Len() }

func (p *pool) push(events []*Event) {
	for _, e := range events {
		p.q.Push(e)
	}
}

func (p *pool) peek() (Key, bool) {
	e := p.q.Peek()
	if e == nil {
		return Key{}, false
	}
	return keyOf(e), true
}

func (p *pool) runBatch(k Key, exec *context.ExecutionContext) []*Context {
	batch := p.q.PopBatch(k)
	ctxs := make([]*Context, len(batch))
	var groups [][]*Context
	index := make(map[uint64]int)
	for i, e := range batch {
		ctxs[i] = newContext(exec, e)
		g, ok := index[e.Affinity]
		if !ok {
			g = len(groups)
			index[e.Affinity] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], ctxs[i])
	}

	if len(groups) == 1 || p.workers == 1 {
		for _, group := range groups {
			runGroup(group)
		}
		return ctxs
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			runGroup(group)
			return nil
		})
	}
	_ = g.Wait()
	return ctxs
}

func runGroup(group []*Context) {
	for _, c := range group {
		c.dispatch()
		if c.err != nil {
			return
		}
	}
}

// sortContexts orders contexts gathered from several logical processes back
// into dispatch order.
func sortContexts(ctxs []*Context) {
	sort.Slice(ctxs, func(i, j int) bool {
		return before(ctxs[i].event, ctxs[j].event)
	})
}
