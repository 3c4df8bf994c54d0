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

package flow

import (
	"errors"
	"fmt"

	"github.com/jazzpetri/flowsim/condition"
	"github.com/jazzpetri/flowsim/timefunc"
)

var (
	// ErrFrozen is returned when a frozen graph is modified.
	ErrFrozen = errors.New("flow: graph is frozen")

	// ErrUnknownFlow is returned for an ID that does not address a node.
	ErrUnknownFlow = errors.New("flow: unknown flow")

	// ErrInvalid is wrapped by every structural error.
	ErrInvalid = errors.New("flow: invalid graph")
)

// Graph is the arena holding the nodes of a workflow.
//
// Build the graph with the New* constructors and Link, then call Freeze.
// A Graph is not safe for concurrent modification; a frozen graph is
// read-only and safe for concurrent use.
type Graph struct {
	Name   string
	nodes  []*Node
	frozen bool
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Frozen reports whether Freeze succeeded.
func (g *Graph) Frozen() bool {
	return g.frozen
}

// Node returns the node addressed by id.
func (g *Graph) Node(id ID) (*Node, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFlow, id)
	}
	return g.nodes[id], nil
}

// At returns the node addressed by id, which must be valid.
func (g *Graph) At(id ID) *Node {
	return g.nodes[id]
}

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *Graph) add(n *Node) (ID, error) {
	if g.frozen {
		return NoFlow, ErrFrozen
	}
	n.ID = ID(len(g.nodes))
	n.Parent = NoFlow
	if !n.Kind.IsStructured() {
		n.Initial, n.Final = NoFlow, NoFlow
	}
	if n.Kind != KindTask {
		n.Activity = -1
	}
	g.nodes = append(g.nodes, n)
	return n.ID, nil
}

// NewTask adds a node requesting the activity with the given id.
func (g *Graph) NewTask(name string, activity int) (ID, error) {
	if activity < 0 {
		return NoFlow, fmt.Errorf("%w: task %q: negative activity id %d", ErrInvalid, name, activity)
	}
	return g.add(&Node{Kind: KindTask, Name: name, Activity: activity})
}

// NewParallelSplit adds an AND-split.
func (g *Graph) NewParallelSplit(name string) (ID, error) {
	return g.add(&Node{Kind: KindParallelSplit, Name: name})
}

// NewExclusiveChoice adds an XOR-split. Successors are linked with
// LinkConditional and evaluated in link order.
func (g *Graph) NewExclusiveChoice(name string) (ID, error) {
	return g.add(&Node{Kind: KindExclusiveChoice, Name: name})
}

// NewMultiChoice adds an OR-split.
func (g *Graph) NewMultiChoice(name string) (ID, error) {
	return g.add(&Node{Kind: KindMultiChoice, Name: name})
}

// NewSimpleMerge adds an XOR-join.
func (g *Graph) NewSimpleMerge(name string) (ID, error) {
	return g.add(&Node{Kind: KindSimpleMerge, Name: name})
}

// NewSynchronization adds an AND-join over every incoming branch.
//
// Joins created directly stall when every branch arrives false; use
// SetPassFalse to forward a false token instead. The exits of predefined
// structures pass false.
func (g *Graph) NewSynchronization(name string) (ID, error) {
	return g.add(&Node{Kind: KindSynchronization, Name: name})
}

// NewDiscriminator adds a join passing the first true arrival.
func (g *Graph) NewDiscriminator(name string) (ID, error) {
	return g.add(&Node{Kind: KindDiscriminator, Name: name, Accept: 1})
}

// NewPartialJoin adds a join passing the accept-th true arrival.
func (g *Graph) NewPartialJoin(name string, accept int) (ID, error) {
	if accept < 1 {
		return NoFlow, fmt.Errorf("%w: partial join %q: accept must be positive, got %d", ErrInvalid, name, accept)
	}
	return g.add(&Node{Kind: KindPartialJoin, Name: name, Accept: accept})
}

// NewSynchronizingMerge adds an OR-join.
func (g *Graph) NewSynchronizingMerge(name string) (ID, error) {
	return g.add(&Node{Kind: KindSynchronizingMerge, Name: name})
}

// NewThreadSplit adds a node forking n tokens to its single successor.
func (g *Graph) NewThreadSplit(name string, n int) (ID, error) {
	if n < 1 {
		return NoFlow, fmt.Errorf("%w: thread split %q: instances must be positive, got %d", ErrInvalid, name, n)
	}
	return g.add(&Node{Kind: KindThreadSplit, Name: name, Instances: n})
}

// NewThreadSynchronization adds a join waiting for n instances.
func (g *Graph) NewThreadSynchronization(name string, n int) (ID, error) {
	return g.NewThreadPartialJoin(name, n, n)
}

// NewThreadDiscriminator adds a join passing the first of n instances.
func (g *Graph) NewThreadDiscriminator(name string, n int) (ID, error) {
	id, err := g.NewThreadPartialJoin(name, n, 1)
	if err != nil {
		return NoFlow, err
	}
	g.nodes[id].Kind = KindThreadDiscriminator
	return id, nil
}

// NewThreadPartialJoin adds a join passing the accept-th of n instances.
func (g *Graph) NewThreadPartialJoin(name string, n, accept int) (ID, error) {
	if n < 1 || accept < 1 || accept > n {
		return NoFlow, fmt.Errorf("%w: thread join %q: need 1 <= accept <= instances, got %d of %d", ErrInvalid, name, accept, n)
	}
	kind := KindThreadPartialJoin
	if accept == n {
		kind = KindThreadSynchronization
	}
	return g.add(&Node{Kind: kind, Name: name, Instances: n, Accept: accept})
}

// NewWhileDo adds a loop running the body from initial to final while cond
// holds. cond is checked before every iteration.
func (g *Graph) NewWhileDo(name string, initial, final ID, cond condition.Condition) (ID, error) {
	if cond == nil {
		return NoFlow, fmt.Errorf("%w: while-do %q: condition is required", ErrInvalid, name)
	}
	return g.newLoop(&Node{Kind: KindWhileDo, Name: name, Initial: initial, Final: final, Condition: cond})
}

// NewDoWhile adds a loop running the body once and then while cond holds.
func (g *Graph) NewDoWhile(name string, initial, final ID, cond condition.Condition) (ID, error) {
	if cond == nil {
		return NoFlow, fmt.Errorf("%w: do-while %q: condition is required", ErrInvalid, name)
	}
	return g.newLoop(&Node{Kind: KindDoWhile, Name: name, Initial: initial, Final: final, Condition: cond})
}

// NewFor adds a loop running the body a number of times sampled from
// iterations on every entry.
func (g *Graph) NewFor(name string, initial, final ID, iterations timefunc.TimeFunction) (ID, error) {
	if iterations == nil {
		return NoFlow, fmt.Errorf("%w: for %q: iterations are required", ErrInvalid, name)
	}
	return g.newLoop(&Node{Kind: KindFor, Name: name, Initial: initial, Final: final, Iterations: iterations})
}

func (g *Graph) newLoop(n *Node) (ID, error) {
	if _, err := g.Node(n.Initial); err != nil {
		return NoFlow, fmt.Errorf("%s %q: initial: %w", n.Kind, n.Name, err)
	}
	if _, err := g.Node(n.Final); err != nil {
		return NoFlow, fmt.Errorf("%s %q: final: %w", n.Kind, n.Name, err)
	}
	return g.add(n)
}

// NewParallelStructure adds a structure whose branches all run.
func (g *Graph) NewParallelStructure(name string) (ID, error) {
	return g.newStructure(name, KindParallelStructure, KindParallelSplit, KindSynchronization)
}

// NewExclusiveChoiceStructure adds a structure running the first branch
// whose condition holds.
func (g *Graph) NewExclusiveChoiceStructure(name string) (ID, error) {
	return g.newStructure(name, KindExclusiveChoiceStructure, KindExclusiveChoice, KindSimpleMerge)
}

// NewMultiChoiceStructure adds a structure running every branch whose
// condition holds.
func (g *Graph) NewMultiChoiceStructure(name string) (ID, error) {
	return g.newStructure(name, KindMultiChoiceStructure, KindMultiChoice, KindSynchronizingMerge)
}

func (g *Graph) newStructure(name string, kind, entry, exit Kind) (ID, error) {
	if g.frozen {
		return NoFlow, ErrFrozen
	}
	in, err := g.add(&Node{Kind: entry, Name: name + ".entry"})
	if err != nil {
		return NoFlow, err
	}
	out, err := g.add(&Node{Kind: exit, Name: name + ".exit", PassFalse: true})
	if err != nil {
		return NoFlow, err
	}
	return g.add(&Node{Kind: kind, Name: name, Initial: in, Final: out})
}

// AddBranch attaches the sub-graph from initial to final between the entry
// and the exit of a predefined structure. cond guards the branch of choice
// structures and must be nil for a parallel structure.
func (g *Graph) AddBranch(structure, initial, final ID, cond condition.Condition) error {
	s, err := g.Node(structure)
	if err != nil {
		return err
	}
	if !s.Kind.IsStructure() {
		return fmt.Errorf("%w: %s is not a predefined structure", ErrInvalid, s)
	}
	if s.Kind == KindParallelStructure && cond != nil {
		return fmt.Errorf("%w: %s: parallel branches take no condition", ErrInvalid, s)
	}
	if err := g.LinkConditional(s.Initial, initial, cond); err != nil {
		return err
	}
	return g.Link(final, s.Final)
}

// SetPassFalse controls whether a join or simple merge that saw only false
// arrivals forwards a false token once every branch arrived.
func (g *Graph) SetPassFalse(id ID, pass bool) error {
	if g.frozen {
		return ErrFrozen
	}
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	if !n.Kind.IsJoin() && n.Kind != KindSimpleMerge {
		return fmt.Errorf("%w: %s is not a join", ErrInvalid, n)
	}
	n.PassFalse = pass
	return nil
}

// Link makes to a successor of from.
func (g *Graph) Link(from, to ID) error {
	return g.LinkConditional(from, to, nil)
}

// LinkConditional makes to a successor of from, guarded by cond. Only
// exclusive and multi-choice splits accept a non-nil condition.
func (g *Graph) LinkConditional(from, to ID, cond condition.Condition) error {
	if g.frozen {
		return ErrFrozen
	}
	src, err := g.Node(from)
	if err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	if _, err := g.Node(to); err != nil {
		return fmt.Errorf("link target: %w", err)
	}
	if cond != nil && !src.Kind.IsConditional() {
		return fmt.Errorf("%w: %s does not take conditional successors", ErrInvalid, src)
	}
	for _, s := range src.Successors {
		if s == to {
			return fmt.Errorf("%w: %s is already linked to %d", ErrInvalid, src, to)
		}
	}
	if !src.Kind.IsSplit() && len(src.Successors) > 0 {
		return fmt.Errorf("%w: %s takes a single successor", ErrInvalid, src)
	}
	src.Successors = append(src.Successors, to)
	src.Conditions = append(src.Conditions, cond)
	return nil
}

// Sequence links the given nodes one after the other.
func (g *Graph) Sequence(ids ...ID) error {
	for i := 1; i < len(ids); i++ {
		if err := g.Link(ids[i-1], ids[i]); err != nil {
			return err
		}
	}
	return nil
}

// String returns a human-readable representation for debugging.
func (g *Graph) String() string {
	state := "open"
	if g.frozen {
		state = "frozen"
	}
	return fmt.Sprintf("Graph[%q nodes=%d %s]", g.Name, len(g.nodes), state)
}
