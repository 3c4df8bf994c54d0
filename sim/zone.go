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
	"sort"
	"sync"
)

type zoneLock struct {
	id uint64
	mu sync.Mutex
}

// ConflictZone groups the work threads whose bookings share resources.
//
// A thread booking resources starts in a zone of its own and merges it with
// the zone of every other thread currently booking one of the same
// resources. Merging moves the members and the lock stack of the higher-id
// zone into the lower-id zone and leaves a forwarding pointer behind. A
// booking holds the full lock stack of its live zone, so two bookings that
// share a resource never overlap.
type ConflictZone struct {
	id uint64

	mu         sync.Mutex
	members    map[*WorkThread]struct{}
	locks      []*zoneLock
	substitute *ConflictZone
}

// NewConflictZone creates a live zone holding members.
func NewConflictZone(id uint64, members ...*WorkThread) *ConflictZone {
	z := &ConflictZone{
		id:      id,
		members: make(map[*WorkThread]struct{}, len(members)),
		locks:   []*zoneLock{{id: id}},
	}
	for _, m := range members {
		z.members[m] = struct{}{}
	}
	return z
}

// ID returns the zone id.
func (z *ConflictZone) ID() uint64 {
	return z.id
}

// Live follows forwarding pointers to the zone that absorbed z, compressing
// the path on the way.
func (z *ConflictZone) Live() *ConflictZone {
	root := z
	for {
		root.mu.Lock()
		next := root.substitute
		root.mu.Unlock()
		if next == nil {
			break
		}
		root = next
	}
	for cur := z; cur != root; {
		cur.mu.Lock()
		next := cur.substitute
		cur.substitute = root
		cur.mu.Unlock()
		cur = next
	}
	return root
}

// IsLive reports whether z has not been merged into another zone.
func (z *ConflictZone) IsLive() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.substitute == nil
}

// Members returns the members of the live zone, ordered by element and
// thread.
func (z *ConflictZone) Members() []*WorkThread {
	live := z.Live()
	live.mu.Lock()
	out := make([]*WorkThread, 0, len(live.members))
	for m := range live.members {
		out = append(out, m)
	}
	live.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Contains reports whether wt is a member of the live zone.
func (z *ConflictZone) Contains(wt *WorkThread) bool {
	live := z.Live()
	live.mu.Lock()
	defer live.mu.Unlock()
	_, ok := live.members[wt]
	return ok
}

// Depth returns the size of the live zone's lock stack.
func (z *ConflictZone) Depth() int {
	live := z.Live()
	live.mu.Lock()
	defer live.mu.Unlock()
	return len(live.locks)
}

// Merge unites the live zones of z and other. It reports whether a merge
// happened; merging zones that are already united is a no-op. Zones are
// locked in increasing id order and the merge is retried whenever either
// zone was forwarded concurrently.
func (z *ConflictZone) Merge(other *ConflictZone) (bool, error) {
	for {
		a, b := z.Live(), other.Live()
		if a == b {
			return false, nil
		}
		if a.id > b.id {
			a, b = b, a
		}
		a.mu.Lock()
		b.mu.Lock()
		if a.substitute != nil || b.substitute != nil {
			b.mu.Unlock()
			a.mu.Unlock()
			continue
		}
		for m := range b.members {
			if _, dup := a.members[m]; dup {
				b.mu.Unlock()
				a.mu.Unlock()
				return false, invariantErrorf(entityName("zone", a.id), "%s is a member of zones %d and %d", m, a.id, b.id)
			}
		}
		for m := range b.members {
			a.members[m] = struct{}{}
		}
		a.locks = mergeLocks(a.locks, b.locks)
		b.members = nil
		b.locks = nil
		b.substitute = a
		b.mu.Unlock()
		a.mu.Unlock()
		return true, nil
	}
}

func mergeLocks(a, b []*zoneLock) []*zoneLock {
	out := make([]*zoneLock, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].id < b[j].id {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// acquire locks the lock stack of the live zone in id order and returns
// the function releasing it.
func (z *ConflictZone) acquire() func() {
	for {
		live := z.Live()
		live.mu.Lock()
		if live.substitute != nil {
			live.mu.Unlock()
			continue
		}
		stack := make([]*zoneLock, len(live.locks))
		copy(stack, live.locks)
		live.mu.Unlock()

		for _, l := range stack {
			l.mu.Lock()
		}
		return func() {
			for i := len(stack) - 1; i >= 0; i-- {
				stack[i].mu.Unlock()
			}
		}
	}
}

// remove drops wt from its live zone once its booking attempt is over.
func (z *ConflictZone) remove(wt *WorkThread) {
	for {
		live := z.Live()
		live.mu.Lock()
		if live.substitute != nil {
			live.mu.Unlock()
			continue
		}
		delete(live.members, wt)
		live.mu.Unlock()
		return
	}
}
