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
	"golang.org/x/sync/errgroup"

	"github.com/jazzpetri/flowsim/context"
)

type commandKind int

const (
	cmdPush commandKind = iota
	cmdStep
)

type command struct {
	kind   commandKind
	events []*Event
	key    Key
	exec   *context.ExecutionContext
	reply  chan reply
}

type reply struct {
	lp      int
	ctxs    []*Context
	head    Key
	hasHead bool
	size    int
}

// logicalProcess owns one event queue and executes its share of every batch
// on its own goroutine. It only communicates through commands.
type logicalProcess struct {
	id   int
	q    *Queue
	cmds chan command
}

func (lp *logicalProcess) loop() error {
	for cmd := range lp.cmds {
		var r reply
		switch cmd.kind {
		case cmdPush:
			for _, e := range cmd.events {
				lp.q.Push(e)
			}
		case cmdStep:
			batch := lp.q.PopBatch(cmd.key)
			r.ctxs = make([]*Context, 0, len(batch))
			for _, e := range batch {
				c := newContext(cmd.exec, e)
				c.dispatch()
				r.ctxs = append(r.ctxs, c)
				if c.err != nil {
					break
				}
			}
		}
		r.lp = lp.id
		r.size = lp.q.Len()
		if head := lp.q.Peek(); head != nil {
			r.head, r.hasHead = keyOf(head), true
		}
		cmd.reply <- r
	}
	return nil
}

// partitioned coordinates several logical processes. Every step advances
// all of them to the global minimum key; the events a step produces are
// routed to their target process as push messages.
type partitioned struct {
	lps   []*logicalProcess
	heads []reply
	group *errgroup.Group
}

func newPartitioned(n int) *partitioned {
	p := &partitioned{
		lps:   make([]*logicalProcess, n),
		heads: make([]reply, n),
	}
	for i := range p.lps {
		p.lps[i] = &logicalProcess{id: i, q: NewQueue(), cmds: make(chan command)}
	}
	return p
}

func (p *partitioned) start() {
	p.group = new(errgroup.Group)
	for _, lp := range p.lps {
		p.group.Go(lp.loop)
	}
}

func (p *partitioned) stop() error {
	if p.group == nil {
		return nil
	}
	for _, lp := range p.lps {
		close(lp.cmds)
	}
	err := p.group.Wait()
	p.group = nil
	for i := range p.lps {
		p.lps[i].cmds = make(chan command)
	}
	return err
}

func (p *partitioned) target(e *Event) int {
	n := len(p.lps)
	i := e.Partition % n
	if i < 0 {
		i += n
	}
	return i
}

func (p *partitioned) push(events []*Event) {
	if len(events) == 0 {
		return
	}
	routed := make([][]*Event, len(p.lps))
	for _, e := range events {
		t := p.target(e)
		routed[t] = append(routed[t], e)
	}
	if p.group == nil {
		// Before start the queues are still owned by the caller.
		for i, evs := range routed {
			for _, e := range evs {
				p.lps[i].q.Push(e)
			}
			p.refresh(i)
		}
		return
	}
	replies := make(chan reply, len(p.lps))
	sent := 0
	for i, evs := range routed {
		if len(evs) == 0 {
			continue
		}
		p.lps[i].cmds <- command{kind: cmdPush, events: evs, reply: replies}
		sent++
	}
	for ; sent > 0; sent-- {
		r := <-replies
		p.heads[r.lp] = r
	}
}

func (p *partitioned) refresh(i int) {
	q := p.lps[i].q
	r := reply{lp: i, size: q.Len()}
	if head := q.Peek(); head != nil {
		r.head, r.hasHead = keyOf(head), true
	}
	p.heads[i] = r
}

func (p *partitioned) peek() (Key, bool) {
	var min Key
	found := false
	for _, h := range p.heads {
		if h.hasHead && (!found || h.head.less(min)) {
			min, found = h.head, true
		}
	}
	return min, found
}

func (p *partitioned) pending() int {
	n := 0
	for _, h := range p.heads {
		n += h.size
	}
	return n
}

func (p *partitioned) runBatch(k Key, exec *context.ExecutionContext) []*Context {
	replies := make(chan reply, len(p.lps))
	sent := 0
	for i, h := range p.heads {
		if h.hasHead && h.head == k {
			p.lps[i].cmds <- command{kind: cmdStep, key: k, exec: exec, reply: replies}
			sent++
		}
	}
	var ctxs []*Context
	for ; sent > 0; sent-- {
		r := <-replies
		p.heads[r.lp] = reply{lp: r.lp, head: r.head, hasHead: r.hasHead, size: r.size}
		ctxs = append(ctxs, r.ctxs...)
	}
	sortContexts(ctxs)
	return ctxs
}
