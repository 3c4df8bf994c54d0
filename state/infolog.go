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

// Package state holds the in-memory receivers that record what a simulation
// reported: an InfoLog of raw notifications and Statistics aggregated from
// them.
package state

import (
	"sync"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/event"
)

// InfoLog is an event.Receiver that keeps notifications in arrival order.
//
// Circular Buffer Behavior:
// When MaxEvents is > 0 the log keeps at most MaxEvents notifications and
// drops the oldest ones first. Dropped reports how many were discarded.
// When MaxEvents is 0 the log grows unbounded.
//
// Thread Safety:
// All operations are safe for concurrent use. Queries return copies.
type InfoLog struct {
	mu        sync.RWMutex
	infos     []event.Info
	dropped   int
	kinds     []event.Kind
	MaxEvents int
}

// NewInfoLog creates a log that records the given kinds (every kind when
// none is given).
func NewInfoLog(maxEvents int, kinds ...event.Kind) *InfoLog {
	return &InfoLog{MaxEvents: maxEvents, kinds: kinds}
}

// Kinds implements event.Receiver.
func (l *InfoLog) Kinds() []event.Kind {
	return l.kinds
}

// Receive implements event.Receiver.
func (l *InfoLog) Receive(info event.Info) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.MaxEvents > 0 && len(l.infos) >= l.MaxEvents {
		n := len(l.infos) - l.MaxEvents + 1
		l.infos = append(l.infos[:0], l.infos[n:]...)
		l.dropped += n
	}
	l.infos = append(l.infos, info)
	return nil
}

// All returns every retained notification in arrival order.
func (l *InfoLog) All() []event.Info {
	return l.filter(func(event.Info) bool { return true })
}

// ByKind returns the retained notifications of kind k.
func (l *InfoLog) ByKind(k event.Kind) []event.Info {
	return l.filter(func(i event.Info) bool { return i.Kind == k })
}

// ByElement returns the retained notifications about element id.
func (l *InfoLog) ByElement(id uint64) []event.Info {
	return l.filter(func(i event.Info) bool { return i.ElementID == id })
}

// ByActivity returns the retained notifications about activity id.
func (l *InfoLog) ByActivity(id int) []event.Info {
	return l.filter(func(i event.Info) bool { return i.ActivityID == id })
}

// ByResource returns the retained notifications about resource id.
func (l *InfoLog) ByResource(id int) []event.Info {
	return l.filter(func(i event.Info) bool { return i.ResourceID == id })
}

// Since returns the retained notifications with Timestamp > ts.
func (l *InfoLog) Since(ts clock.Time) []event.Info {
	return l.filter(func(i event.Info) bool { return i.Timestamp > ts })
}

// Timestamps returns the timestamps of the notifications of kind k.
func (l *InfoLog) Timestamps(k event.Kind) []clock.Time {
	infos := l.ByKind(k)
	out := make([]clock.Time, len(infos))
	for i, info := range infos {
		out[i] = info.Timestamp
	}
	return out
}

// Count returns the number of retained notifications.
func (l *InfoLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.infos)
}

// Dropped returns the number of notifications evicted by the size limit.
func (l *InfoLog) Dropped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}

// Clear removes every notification.
func (l *InfoLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = nil
	l.dropped = 0
}

func (l *InfoLog) filter(keep func(event.Info) bool) []event.Info {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]event.Info, 0)
	for _, i := range l.infos {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}
