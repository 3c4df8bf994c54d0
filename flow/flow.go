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

// Package flow describes workflow graphs built from a closed catalogue of
// control patterns.
//
// A Graph is an arena of nodes addressed by ID. Nodes never hold per-element
// state: the interpreter keeps join counters, loop iterations and visited
// sets in side tables keyed by node ID. Once frozen, a graph is immutable and
// may be shared by every element of a simulation.
//
// Structured nodes (loops and predefined structures) own a body: a
// sub-graph entered through Initial and left once every token in it has
// ended. Body nodes record the enclosing structured node in Parent.
package flow

import (
	"fmt"

	"github.com/jazzpetri/flowsim/condition"
	"github.com/jazzpetri/flowsim/timefunc"
)

// ID addresses a node inside its Graph.
type ID int

// NoFlow is the ID of no node. Top-level nodes have Parent == NoFlow.
const NoFlow ID = -1

// Kind is the workflow pattern implemented by a node.
type Kind uint8

const (
	// KindTask requests an activity and continues once it completed.
	KindTask Kind = iota
	// KindParallelSplit forks one token per successor.
	KindParallelSplit
	// KindExclusiveChoice activates the first successor whose condition
	// holds and sends false tokens to the others.
	KindExclusiveChoice
	// KindMultiChoice activates every successor whose condition holds.
	KindMultiChoice
	// KindSimpleMerge passes the first true arrival per element and
	// timestamp.
	KindSimpleMerge
	// KindSynchronization waits for all incoming branches.
	KindSynchronization
	// KindDiscriminator passes the first true arrival.
	KindDiscriminator
	// KindPartialJoin passes the n-th true arrival.
	KindPartialJoin
	// KindSynchronizingMerge waits for all branches and passes a true token
	// if at least one of them was true.
	KindSynchronizingMerge
	// KindThreadSplit forks n identical tokens to its single successor.
	KindThreadSplit
	// KindThreadSynchronization waits for n instances.
	KindThreadSynchronization
	// KindThreadDiscriminator passes the first of n instances.
	KindThreadDiscriminator
	// KindThreadPartialJoin passes the m-th of n instances.
	KindThreadPartialJoin
	// KindWhileDo runs its body while a condition holds, checked first.
	KindWhileDo
	// KindDoWhile runs its body once, then while a condition holds.
	KindDoWhile
	// KindFor runs its body a sampled number of times.
	KindFor
	// KindParallelStructure wraps a parallel split and a synchronization.
	KindParallelStructure
	// KindExclusiveChoiceStructure wraps an exclusive choice and a simple
	// merge.
	KindExclusiveChoiceStructure
	// KindMultiChoiceStructure wraps a multi-choice and a synchronizing
	// merge.
	KindMultiChoiceStructure
)

var kindNames = [...]string{
	KindTask:                     "task",
	KindParallelSplit:            "parallel-split",
	KindExclusiveChoice:          "exclusive-choice",
	KindMultiChoice:              "multi-choice",
	KindSimpleMerge:              "simple-merge",
	KindSynchronization:          "synchronization",
	KindDiscriminator:            "discriminator",
	KindPartialJoin:              "partial-join",
	KindSynchronizingMerge:       "synchronizing-merge",
	KindThreadSplit:              "thread-split",
	KindThreadSynchronization:    "thread-synchronization",
	KindThreadDiscriminator:      "thread-discriminator",
	KindThreadPartialJoin:        "thread-partial-join",
	KindWhileDo:                  "while-do",
	KindDoWhile:                  "do-while",
	KindFor:                      "for",
	KindParallelStructure:        "parallel-structure",
	KindExclusiveChoiceStructure: "exclusive-choice-structure",
	KindMultiChoiceStructure:     "multi-choice-structure",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsSplit reports whether k may have several successors.
func (k Kind) IsSplit() bool {
	switch k {
	case KindParallelSplit, KindExclusiveChoice, KindMultiChoice:
		return true
	}
	return false
}

// IsConditional reports whether successors of k carry conditions.
func (k Kind) IsConditional() bool {
	return k == KindExclusiveChoice || k == KindMultiChoice
}

// IsJoin reports whether k counts arrivals.
func (k Kind) IsJoin() bool {
	switch k {
	case KindSynchronization, KindDiscriminator, KindPartialJoin, KindSynchronizingMerge,
		KindThreadSynchronization, KindThreadDiscriminator, KindThreadPartialJoin:
		return true
	}
	return false
}

// IsThreadJoin reports whether k counts instances of one branch rather
// than distinct incoming branches.
func (k Kind) IsThreadJoin() bool {
	switch k {
	case KindThreadSynchronization, KindThreadDiscriminator, KindThreadPartialJoin:
		return true
	}
	return false
}

// IsLoop reports whether k is a structured loop.
func (k Kind) IsLoop() bool {
	return k == KindWhileDo || k == KindDoWhile || k == KindFor
}

// IsStructure reports whether k is a predefined structure.
func (k Kind) IsStructure() bool {
	switch k {
	case KindParallelStructure, KindExclusiveChoiceStructure, KindMultiChoiceStructure:
		return true
	}
	return false
}

// IsStructured reports whether k owns a body.
func (k Kind) IsStructured() bool {
	return k.IsLoop() || k.IsStructure()
}

// Node is one pattern instance. Only the fields relevant to Kind are set.
type Node struct {
	ID   ID
	Kind Kind
	Name string

	// Activity is the activity requested by a task.
	Activity int

	// Successors in declaration order. Conditions is parallel to
	// Successors for conditional splits; a nil entry always holds.
	Successors []ID
	Conditions []condition.Condition

	// Predecessors is computed by Freeze.
	Predecessors []ID

	// Accept is the number of true arrivals a join needs to pass.
	// Zero means every incoming branch.
	Accept int

	// Instances is the fan-out of a thread split or the number of
	// instances a thread join waits for.
	Instances int

	// PassFalse makes a join or simple merge that never passed forward a
	// false token once every branch arrived. Without it the element's
	// token ends there.
	PassFalse bool

	// Initial and Final delimit the body of a structured node.
	Initial ID
	Final   ID

	// Condition drives while-do and do-while loops.
	Condition condition.Condition

	// Iterations is sampled once per entry into a for loop.
	Iterations timefunc.TimeFunction

	// Parent is the innermost structured node whose body contains this
	// node, set by Freeze.
	Parent ID
}

// Incoming returns the number of arrivals that complete one round of a
// join.
func (n *Node) Incoming() int {
	if n.Kind.IsThreadJoin() {
		return n.Instances
	}
	return len(n.Predecessors)
}

// AcceptValue returns the number of true arrivals after which a join
// passes.
func (n *Node) AcceptValue() int {
	switch n.Kind {
	case KindDiscriminator, KindThreadDiscriminator:
		return 1
	case KindPartialJoin, KindThreadPartialJoin:
		return n.Accept
	default:
		return n.Incoming()
	}
}

// String returns a human-readable representation for debugging.
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("Flow[%d %s %q]", n.ID, n.Kind, n.Name)
	}
	return fmt.Sprintf("Flow[%d %s]", n.ID, n.Kind)
}
