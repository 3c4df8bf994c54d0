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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threads(t *testing.T, n int) []*WorkThread {
	t.Helper()
	typ := &ElementType{name: "test", vars: map[string]interface{}{}}
	out := make([]*WorkThread, n)
	for i := range out {
		e := newElement(uint64(i+1), typ, 0)
		out[i] = e.newThread(nil, true, nil)
	}
	return out
}

// liveZones counts the live zones among zs that contain wt.
func liveZones(zs []*ConflictZone, wt *WorkThread) int {
	n := 0
	for _, z := range zs {
		if !z.IsLive() {
			continue
		}
		z.mu.Lock()
		_, ok := z.members[wt]
		z.mu.Unlock()
		if ok {
			n++
		}
	}
	return n
}

func TestConflictZone_MergeIsIdempotent(t *testing.T) {
	wts := threads(t, 3)
	a := NewConflictZone(1, wts[0])
	b := NewConflictZone(2, wts[1], wts[2])

	merged, err := b.Merge(a)
	require.NoError(t, err)
	assert.True(t, merged)

	merged, err = a.Merge(b)
	require.NoError(t, err)
	assert.False(t, merged)

	assert.True(t, a.IsLive())
	assert.False(t, b.IsLive())
	assert.Same(t, a, b.Live())
	assert.Equal(t, wts, a.Members())
	assert.Equal(t, wts, b.Members())
	assert.Equal(t, 2, a.Depth())
	for _, wt := range wts {
		assert.Equal(t, 1, liveZones([]*ConflictZone{a, b}, wt), wt.String())
		assert.True(t, b.Contains(wt))
	}
}

func TestConflictZone_ForwardingChain(t *testing.T) {
	wts := threads(t, 4)
	zs := make([]*ConflictZone, len(wts))
	for i, wt := range wts {
		zs[i] = NewConflictZone(uint64(10-i), wt)
	}
	// 10 <- 9 <- 8 <- 7: every merge keeps the lower id.
	for i := 1; i < len(zs); i++ {
		_, err := zs[i-1].Merge(zs[i])
		require.NoError(t, err)
	}
	for _, z := range zs {
		assert.Equal(t, uint64(7), z.Live().ID())
	}
	assert.Equal(t, 4, zs[0].Depth())
	for _, wt := range wts {
		assert.Equal(t, 1, liveZones(zs, wt))
	}
}

func TestConflictZone_DuplicateMemberIsInvariantError(t *testing.T) {
	wts := threads(t, 1)
	a := NewConflictZone(1, wts[0])
	b := NewConflictZone(2, wts[0])

	_, err := a.Merge(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestConflictZone_ConcurrentMerges(t *testing.T) {
	const n = 64
	wts := threads(t, n)
	zs := make([]*ConflictZone, n)
	for i := range zs {
		zs[i] = NewConflictZone(uint64(i+1), wts[i])
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		i := i
		go func() {
			defer wg.Done()
			_, err := zs[i].Merge(zs[(i+1)%n])
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := zs[(i+1)%n].Merge(zs[i])
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	live := zs[0].Live()
	assert.Equal(t, uint64(1), live.ID())
	assert.Len(t, live.Members(), n)
	assert.Equal(t, n, live.Depth())
	for _, wt := range wts {
		assert.Equal(t, 1, liveZones(zs, wt))
	}
}

func TestConflictZone_AcquireSerializesMergedZones(t *testing.T) {
	wts := threads(t, 2)
	a := NewConflictZone(1, wts[0])
	b := NewConflictZone(2, wts[1])

	unlock := a.acquire()
	_, err := b.Merge(a)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release := b.acquire()
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("merged zone acquired while its lock was held")
	default:
	}
	unlock()
	<-acquired
}

func TestConflictZone_Remove(t *testing.T) {
	wts := threads(t, 2)
	a := NewConflictZone(1, wts[0])
	b := NewConflictZone(2, wts[1])
	_, err := a.Merge(b)
	require.NoError(t, err)

	b.remove(wts[1])
	assert.Equal(t, []*WorkThread{wts[0]}, a.Members())
	assert.False(t, a.Contains(wts[1]))
}

func TestResource_ReleaseInvariants(t *testing.T) {
	s, err := New(DefaultOptions())
	require.NoError(t, err)
	rt := s.NewResourceType("server")
	r := s.NewResource("server")
	wts := threads(t, 2)

	_, _, err = r.release(wts[0])
	assert.ErrorIs(t, err, ErrInvariant, "release of a free resource")

	became, err := r.activate(rt)
	require.NoError(t, err)
	assert.True(t, became)
	_, err = r.activate(rt)
	assert.ErrorIs(t, err, ErrModel, "overlapping window")

	r.booked, r.bookedAs = wts[0], rt
	_, _, err = r.release(wts[1])
	assert.ErrorIs(t, err, ErrInvariant, "release by a thread not holding it")

	assert.False(t, r.deactivate(rt), "booked role closes at release")
	assert.True(t, r.ActiveAs(rt))
	closed, active, err := r.release(wts[0])
	require.NoError(t, err)
	assert.Equal(t, []*ResourceType{rt}, closed)
	assert.Empty(t, active)
	assert.False(t, r.ActiveAs(rt))

	_, _, err = r.release(wts[0])
	assert.ErrorIs(t, err, ErrInvariant, "double release")
}

func TestResource_FreeFor(t *testing.T) {
	s, err := New(DefaultOptions())
	require.NoError(t, err)
	a := s.NewResourceType("a")
	b := s.NewResourceType("b")
	r := s.NewResource("r")

	assert.False(t, r.freeFor(a))
	_, err = r.activate(a)
	require.NoError(t, err)
	_, err = r.activate(b)
	require.NoError(t, err)
	assert.True(t, r.freeFor(a))
	assert.True(t, r.freeFor(b))

	r.booked, r.bookedAs = threads(t, 1)[0], a
	assert.False(t, r.freeFor(b), "a booked resource serves one thread")
}

func TestWorkThreadArena(t *testing.T) {
	e := newElement(1, &ElementType{name: "test", vars: map[string]interface{}{}}, 0)
	root := e.newThread(nil, true, nil)
	child := e.newThread(root, true, nil)
	child.visit(3)
	grandchild := e.newThread(child, false, child)

	assert.Equal(t, 3, e.LiveThreads())
	assert.Equal(t, 1, root.children)
	assert.False(t, grandchild.visit(3), "visited set is inherited")

	assert.Same(t, child, e.dropThread(grandchild))
	assert.Equal(t, 0, child.children)
	assert.Same(t, root, e.dropThread(child))
	assert.Equal(t, 0, root.children)

	reused := e.newThread(root, true, nil)
	assert.Contains(t, []int{1, 2}, reused.index, "freed slots are reused")
	assert.Equal(t, 2, e.LiveThreads())
	assert.Equal(t, uint64(3), reused.serial)
}
