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
)

// Freeze validates the graph, computes predecessors and structure links, and
// makes the graph read-only. Calling Freeze on a frozen graph is a no-op.
//
// Freeze rejects:
//   - splits without successors and thread splits without exactly one
//   - joins whose accept value exceeds their incoming branches
//   - structured bodies whose final node has successors
//   - nodes shared by two bodies and edges crossing a body boundary
//   - cycles inside a body; only top-level cycles are allowed
//
// All problems found are returned together.
func (g *Graph) Freeze() error {
	if g.frozen {
		return nil
	}

	for _, n := range g.nodes {
		n.Predecessors = nil
		n.Parent = NoFlow
	}
	for _, n := range g.nodes {
		for _, s := range n.Successors {
			g.nodes[s].Predecessors = append(g.nodes[s].Predecessors, n.ID)
		}
	}

	var errs []error
	for _, n := range g.nodes {
		if err := g.checkNode(n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if err := g.linkStructures(); err != nil {
		return err
	}

	g.frozen = true
	return nil
}

func (g *Graph) checkNode(n *Node) error {
	switch {
	case n.Kind.IsSplit():
		if len(n.Successors) == 0 {
			return fmt.Errorf("%w: %s has no successors", ErrInvalid, n)
		}
	case n.Kind == KindThreadSplit:
		if len(n.Successors) != 1 {
			return fmt.Errorf("%w: %s needs exactly one successor", ErrInvalid, n)
		}
	case n.Kind.IsJoin():
		in := n.Incoming()
		if in == 0 {
			return fmt.Errorf("%w: %s has no incoming branches", ErrInvalid, n)
		}
		if n.AcceptValue() > in {
			return fmt.Errorf("%w: %s accepts %d of %d branches", ErrInvalid, n, n.AcceptValue(), in)
		}
	case n.Kind.IsStructured():
		if n.Initial == n.ID || n.Final == n.ID {
			return fmt.Errorf("%w: %s contains itself", ErrInvalid, n)
		}
		if len(g.nodes[n.Final].Successors) > 0 {
			return fmt.Errorf("%w: %s: final node %d has successors", ErrInvalid, n, n.Final)
		}
		if n.Kind.IsStructure() && len(g.nodes[n.Initial].Successors) == 0 {
			return fmt.Errorf("%w: %s has no branches", ErrInvalid, n)
		}
	}
	return nil
}

// linkStructures records the innermost enclosing structured node of every
// body node.
func (g *Graph) linkStructures() error {
	for _, s := range g.nodes {
		if !s.Kind.IsStructured() {
			continue
		}
		body := map[ID]bool{}
		queue := []ID{s.Initial}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if body[id] {
				continue
			}
			if id == s.ID {
				return fmt.Errorf("%w: %s: body leads back to the structure", ErrInvalid, s)
			}
			n := g.nodes[id]
			if n.Parent != NoFlow && n.Parent != s.ID {
				return fmt.Errorf("%w: %s belongs to the bodies of %d and %d", ErrInvalid, n, n.Parent, s.ID)
			}
			n.Parent = s.ID
			body[id] = true
			queue = append(queue, n.Successors...)
		}
		if !body[s.Final] {
			return fmt.Errorf("%w: %s: final node %d is not reachable from %d", ErrInvalid, s, s.Final, s.Initial)
		}
	}

	for _, n := range g.nodes {
		steps := 0
		for p := n.Parent; p != NoFlow; p = g.nodes[p].Parent {
			if p == n.ID || steps > len(g.nodes) {
				return fmt.Errorf("%w: %s is nested inside itself", ErrInvalid, n)
			}
			steps++
		}
		for _, s := range n.Successors {
			if g.nodes[s].Parent != n.Parent {
				return fmt.Errorf("%w: link %d -> %d crosses a structure boundary", ErrInvalid, n.ID, s)
			}
		}
	}

	return g.checkBodyCycles()
}

func (g *Graph) checkBodyCycles() error {
	const (
		unvisited = iota
		active
		done
	)
	color := make([]int, len(g.nodes))
	var visit func(id ID) error
	visit = func(id ID) error {
		color[id] = active
		for _, s := range g.nodes[id].Successors {
			switch color[s] {
			case active:
				return fmt.Errorf("%w: cycle through %s inside the body of %d; use a loop", ErrInvalid, g.nodes[s], g.nodes[s].Parent)
			case unvisited:
				if err := visit(s); err != nil {
					return err
				}
			}
		}
		color[id] = done
		return nil
	}
	for _, n := range g.nodes {
		if n.Parent == NoFlow || color[n.ID] != unvisited {
			continue
		}
		if err := visit(n.ID); err != nil {
			return err
		}
	}
	return nil
}

// Ancestors returns the structured nodes enclosing id, innermost first.
func (g *Graph) Ancestors(id ID) []ID {
	var out []ID
	for p := g.nodes[id].Parent; p != NoFlow; p = g.nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// TopLevel reports whether id lies outside every structured body.
func (g *Graph) TopLevel(id ID) bool {
	return g.nodes[id].Parent == NoFlow
}
