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

import "container/heap"

// Queue is a min-heap of events in dispatch order. It is not safe for
// concurrent use; every queue belongs to one logical process.
type Queue struct {
	h eventHeap
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push inserts e. Its sequence number must already be assigned.
func (q *Queue) Push(e *Event) {
	heap.Push(&q.h, e)
}

// Pop removes and returns the first event, or nil.
func (q *Queue) Pop() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Event)
}

// Peek returns the first event without removing it, or nil.
func (q *Queue) Peek() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.h)
}

// PopBatch removes every event with key k, in dispatch order.
func (q *Queue) PopBatch(k Key) []*Event {
	var batch []*Event
	for len(q.h) > 0 && keyOf(q.h[0]) == k {
		batch = append(batch, heap.Pop(&q.h).(*Event))
	}
	return batch
}

type eventHeap []*Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return before(h[i], h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
