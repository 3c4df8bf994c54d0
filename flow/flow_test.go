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
	"strings"
	"testing"

	"github.com/jazzpetri/flowsim/condition"
	"github.com/jazzpetri/flowsim/timefunc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func must(t *testing.T, id ID, err error) ID {
	t.Helper()
	require.NoError(t, err)
	return id
}

func TestKind(t *testing.T) {
	assert.Equal(t, "exclusive-choice", KindExclusiveChoice.String())
	assert.Equal(t, "kind(200)", Kind(200).String())
	assert.True(t, KindMultiChoice.IsSplit())
	assert.True(t, KindMultiChoice.IsConditional())
	assert.False(t, KindThreadSplit.IsSplit())
	assert.True(t, KindThreadPartialJoin.IsJoin())
	assert.True(t, KindThreadPartialJoin.IsThreadJoin())
	assert.False(t, KindSimpleMerge.IsJoin())
	assert.True(t, KindFor.IsStructured())
	assert.True(t, KindParallelStructure.IsStructure())
}

func TestLink(t *testing.T) {
	g := NewGraph("link")
	a := must(t, g.NewTask("a", 0))
	b := must(t, g.NewTask("b", 1))
	c := must(t, g.NewTask("c", 2))
	split := must(t, g.NewParallelSplit("split"))

	require.NoError(t, g.Link(a, b))
	assert.ErrorIs(t, g.Link(a, c), ErrInvalid, "tasks take one successor")
	assert.ErrorIs(t, g.Link(a, 99), ErrUnknownFlow)
	assert.ErrorIs(t, g.Link(-1, a), ErrUnknownFlow)
	assert.ErrorIs(t, g.LinkConditional(b, c, condition.True), ErrInvalid, "only choices take conditions")

	require.NoError(t, g.Link(split, b))
	require.NoError(t, g.Link(split, c))
	assert.ErrorIs(t, g.Link(split, c), ErrInvalid, "duplicate link")

	_, err := g.NewTask("bad", -1)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = g.NewPartialJoin("p", 0)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = g.NewThreadSplit("ts", 0)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = g.NewThreadPartialJoin("tj", 2, 3)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = g.NewWhileDo("w", a, b, nil)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = g.NewFor("f", a, 42, timefunc.Constant(2))
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestFreeze_Predecessors(t *testing.T) {
	g := NewGraph("diamond")
	split := must(t, g.NewParallelSplit("split"))
	a := must(t, g.NewTask("a", 0))
	b := must(t, g.NewTask("b", 1))
	join := must(t, g.NewSynchronization("join"))
	require.NoError(t, g.Link(split, a))
	require.NoError(t, g.Link(split, b))
	require.NoError(t, g.Sequence(a, join))
	require.NoError(t, g.Link(b, join))

	require.NoError(t, g.Freeze())
	assert.True(t, g.Frozen())
	assert.Equal(t, []ID{a, b}, g.At(join).Predecessors)
	assert.Equal(t, 2, g.At(join).Incoming())
	assert.Equal(t, 2, g.At(join).AcceptValue())
	assert.True(t, g.TopLevel(a))

	_, err := g.NewTask("late", 0)
	assert.ErrorIs(t, err, ErrFrozen)
	assert.ErrorIs(t, g.Link(a, b), ErrFrozen)
	assert.NoError(t, g.Freeze(), "freezing twice is a no-op")
}

func TestFreeze_JoinAccept(t *testing.T) {
	g := NewGraph("partial")
	split := must(t, g.NewParallelSplit("split"))
	a := must(t, g.NewTask("a", 0))
	b := must(t, g.NewTask("b", 0))
	join := must(t, g.NewPartialJoin("join", 3))
	require.NoError(t, g.Link(split, a))
	require.NoError(t, g.Link(split, b))
	require.NoError(t, g.Link(a, join))
	require.NoError(t, g.Link(b, join))

	err := g.Freeze()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "accepts 3 of 2")
	assert.False(t, g.Frozen())
}

func TestFreeze_SplitWithoutSuccessors(t *testing.T) {
	g := NewGraph("empty")
	must(t, g.NewExclusiveChoice("choice"))
	must(t, g.NewThreadSplit("fork", 2))
	err := g.Freeze()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no successors")
	assert.Contains(t, err.Error(), "exactly one successor")
}

func TestFreeze_StructureLinks(t *testing.T) {
	g := NewGraph("nested")
	outer := must(t, g.NewParallelStructure("outer"))

	a := must(t, g.NewTask("a", 0))
	b1 := must(t, g.NewTask("b1", 1))
	b2 := must(t, g.NewTask("b2", 1))
	require.NoError(t, g.Link(b1, b2))
	loop := must(t, g.NewFor("loop", b1, b2, timefunc.Constant(3)))

	require.NoError(t, g.AddBranch(outer, a, a, nil))
	require.NoError(t, g.AddBranch(outer, loop, loop, nil))

	after := must(t, g.NewTask("after", 2))
	require.NoError(t, g.Link(outer, after))

	require.NoError(t, g.Freeze())

	o := g.At(outer)
	assert.Equal(t, outer, g.At(o.Initial).Parent)
	assert.Equal(t, outer, g.At(o.Final).Parent)
	assert.Equal(t, outer, g.At(a).Parent)
	assert.Equal(t, outer, g.At(loop).Parent)
	assert.Equal(t, loop, g.At(b1).Parent)
	assert.Equal(t, loop, g.At(b2).Parent)
	assert.Equal(t, NoFlow, g.At(after).Parent)
	assert.Equal(t, []ID{loop, outer}, g.Ancestors(b2))
	assert.Equal(t, 2, g.At(o.Final).Incoming())
}

func TestFreeze_CycleInsideBodyRejected(t *testing.T) {
	g := NewGraph("cyclic")
	merge := must(t, g.NewSimpleMerge("merge"))
	a := must(t, g.NewTask("a", 0))
	choice := must(t, g.NewExclusiveChoice("again"))
	end := must(t, g.NewTask("end", 0))
	require.NoError(t, g.Sequence(merge, a, choice))
	require.NoError(t, g.LinkConditional(choice, merge, condition.VarEquals("retry", true)))
	require.NoError(t, g.Link(choice, end))

	s := must(t, g.NewParallelStructure("s"))
	require.NoError(t, g.AddBranch(s, merge, end, nil))

	err := g.Freeze()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "use a loop")
}

func TestFreeze_TopLevelCycleAllowed(t *testing.T) {
	g := NewGraph("rework")
	merge := must(t, g.NewSimpleMerge("merge"))
	a := must(t, g.NewTask("a", 0))
	choice := must(t, g.NewExclusiveChoice("again"))
	end := must(t, g.NewTask("end", 0))
	require.NoError(t, g.Sequence(merge, a, choice))
	require.NoError(t, g.LinkConditional(choice, merge, condition.VarEquals("retry", true)))
	require.NoError(t, g.Link(choice, end))

	assert.NoError(t, g.Freeze())
}

func TestFreeze_BoundaryChecks(t *testing.T) {
	t.Run("edge into body", func(t *testing.T) {
		g := NewGraph("g")
		outside := must(t, g.NewTask("outside", 0))
		a := must(t, g.NewTask("a", 0))
		b := must(t, g.NewTask("b", 0))
		require.NoError(t, g.Link(a, b))
		must(t, g.NewWhileDo("w", a, b, condition.True))
		require.NoError(t, g.Link(outside, b))
		err := g.Freeze()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "crosses a structure boundary")
	})
	t.Run("shared body", func(t *testing.T) {
		g := NewGraph("g")
		a := must(t, g.NewTask("a", 0))
		must(t, g.NewWhileDo("w1", a, a, condition.True))
		must(t, g.NewDoWhile("w2", a, a, condition.True))
		err := g.Freeze()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "belongs to the bodies")
	})
	t.Run("final with successors", func(t *testing.T) {
		g := NewGraph("g")
		a := must(t, g.NewTask("a", 0))
		b := must(t, g.NewTask("b", 0))
		require.NoError(t, g.Link(a, b))
		must(t, g.NewFor("f", a, a, timefunc.Constant(1)))
		err := g.Freeze()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "final node")
	})
	t.Run("final unreachable", func(t *testing.T) {
		g := NewGraph("g")
		a := must(t, g.NewTask("a", 0))
		b := must(t, g.NewTask("b", 0))
		must(t, g.NewFor("f", a, b, timefunc.Constant(1)))
		err := g.Freeze()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "not reachable")
	})
	t.Run("structure without branches", func(t *testing.T) {
		g := NewGraph("g")
		must(t, g.NewMultiChoiceStructure("m"))
		assert.ErrorIs(t, g.Freeze(), ErrInvalid)
	})
}

func TestAddBranch(t *testing.T) {
	g := NewGraph("branches")
	par := must(t, g.NewParallelStructure("par"))
	xor := must(t, g.NewExclusiveChoiceStructure("xor"))
	a := must(t, g.NewTask("a", 0))
	b := must(t, g.NewTask("b", 0))

	assert.ErrorIs(t, g.AddBranch(par, a, a, condition.True), ErrInvalid)
	assert.ErrorIs(t, g.AddBranch(a, b, b, nil), ErrInvalid)

	require.NoError(t, g.AddBranch(xor, a, a, condition.VarEquals("x", 1)))
	require.NoError(t, g.AddBranch(xor, b, b, nil))
	entry := g.At(g.At(xor).Initial)
	assert.Equal(t, KindExclusiveChoice, entry.Kind)
	assert.Equal(t, []ID{a, b}, entry.Successors)
	assert.NotNil(t, entry.Conditions[0])
	assert.Nil(t, entry.Conditions[1])
	assert.Equal(t, KindSimpleMerge, g.At(g.At(xor).Final).Kind)
}

func TestThreadJoins(t *testing.T) {
	g := NewGraph("threads")
	sync := must(t, g.NewThreadSynchronization("sync", 3))
	disc := must(t, g.NewThreadDiscriminator("disc", 3))
	part := must(t, g.NewThreadPartialJoin("part", 4, 2))

	assert.Equal(t, KindThreadSynchronization, g.At(sync).Kind)
	assert.Equal(t, 3, g.At(sync).AcceptValue())
	assert.Equal(t, KindThreadDiscriminator, g.At(disc).Kind)
	assert.Equal(t, 1, g.At(disc).AcceptValue())
	assert.Equal(t, 3, g.At(disc).Incoming())
	assert.Equal(t, 2, g.At(part).AcceptValue())
	assert.Equal(t, 4, g.At(part).Incoming())

	assert.False(t, g.At(part).PassFalse)
	require.NoError(t, g.SetPassFalse(part, true))
	assert.True(t, g.At(part).PassFalse)
	assert.ErrorIs(t, g.SetPassFalse(must(t, g.NewTask("t", 0)), true), ErrInvalid)
}

func TestPassFalseDefaults(t *testing.T) {
	g := NewGraph("defaults")
	join := must(t, g.NewSynchronization("join"))
	merge := must(t, g.NewSimpleMerge("merge"))
	st := must(t, g.NewExclusiveChoiceStructure("choice"))
	par := must(t, g.NewParallelStructure("all"))

	assert.False(t, g.At(join).PassFalse)
	assert.False(t, g.At(merge).PassFalse)
	assert.True(t, g.At(g.At(st).Final).PassFalse)
	assert.True(t, g.At(g.At(par).Final).PassFalse)

	require.NoError(t, g.SetPassFalse(merge, true))
	assert.True(t, g.At(merge).PassFalse)
}

func TestVisualization(t *testing.T) {
	g := NewGraph("order \"flow\"")
	s := must(t, g.NewExclusiveChoiceStructure("route"))
	a := must(t, g.NewTask("fast", 0))
	b := must(t, g.NewTask("slow", 1))
	require.NoError(t, g.AddBranch(s, a, a, condition.VarEquals("vip", true)))
	require.NoError(t, g.AddBranch(s, b, b, nil))
	require.NoError(t, g.Freeze())

	dot := g.ToDOT()
	assert.True(t, strings.HasPrefix(dot, "digraph \"order \\\"flow\\\"\" {"))
	assert.Contains(t, dot, "subgraph cluster_2 {")
	assert.Contains(t, dot, "shape=box];")
	assert.Contains(t, dot, "f0 -> f3 [label=\"cond\"];")
	assert.Contains(t, dot, "f2 -> f0 [style=dashed];")

	mermaid := g.ToMermaid()
	assert.True(t, strings.HasPrefix(mermaid, "graph LR\n"))
	assert.Contains(t, mermaid, "f3[fast<br/>(activity 0)]")
	assert.Contains(t, mermaid, "f0 -->|cond| f3")
	assert.Contains(t, mermaid, "f1 -.-> f2")
}
