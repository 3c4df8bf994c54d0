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

package state

import (
	"sort"
	"sync"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/event"
)

// ActivityStats aggregates one activity's notifications.
type ActivityStats struct {
	ActivityID int
	Name       string
	Requests   int
	Starts     int
	Ends       int
	// TotalWait sums request-to-start delays.
	TotalWait clock.Time
	// TotalService sums start-to-end durations.
	TotalService clock.Time
}

// MeanWait returns TotalWait/Starts.
func (a ActivityStats) MeanWait() float64 {
	if a.Starts == 0 {
		return 0
	}
	return float64(a.TotalWait) / float64(a.Starts)
}

// ResourceStats aggregates one resource's bookings.
type ResourceStats struct {
	ResourceID int
	Name       string
	Caught     int
	Released   int
	Busy       clock.Time
}

// Report is a point-in-time copy of Statistics.
type Report struct {
	ElementsStarted  int
	ElementsFinished int
	LastTimestamp    clock.Time
	Activities       []ActivityStats
	Resources        []ResourceStats
}

type pairKey struct {
	element  uint64
	activity int
}

// Statistics is an event.Receiver aggregating waits, service times and
// resource occupation. Safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	started, finished int
	last              clock.Time

	activities map[int]*ActivityStats
	resources  map[int]*ResourceStats

	requested map[pairKey][]clock.Time
	running   map[pairKey][]clock.Time
	caughtAt  map[int]clock.Time
}

// NewStatistics creates an empty aggregator.
func NewStatistics() *Statistics {
	return &Statistics{
		activities: make(map[int]*ActivityStats),
		resources:  make(map[int]*ResourceStats),
		requested:  make(map[pairKey][]clock.Time),
		running:    make(map[pairKey][]clock.Time),
		caughtAt:   make(map[int]clock.Time),
	}
}

// Kinds implements event.Receiver.
func (s *Statistics) Kinds() []event.Kind {
	return []event.Kind{
		event.KindElementStart, event.KindElementFinish,
		event.KindActivityRequest, event.KindActivityStart, event.KindActivityEnd,
		event.KindResourceCaught, event.KindResourceReleased,
	}
}

// Receive implements event.Receiver.
func (s *Statistics) Receive(info event.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info.Timestamp > s.last {
		s.last = info.Timestamp
	}
	key := pairKey{element: info.ElementID, activity: info.ActivityID}
	switch info.Kind {
	case event.KindElementStart:
		s.started++
	case event.KindElementFinish:
		s.finished++
	case event.KindActivityRequest:
		s.activity(info).Requests++
		s.requested[key] = append(s.requested[key], info.Timestamp)
	case event.KindActivityStart:
		a := s.activity(info)
		a.Starts++
		if at, ok := pop(s.requested, key); ok {
			a.TotalWait += info.Timestamp - at
		}
		s.running[key] = append(s.running[key], info.Timestamp)
	case event.KindActivityEnd:
		a := s.activity(info)
		a.Ends++
		if at, ok := pop(s.running, key); ok {
			a.TotalService += info.Timestamp - at
		}
	case event.KindResourceCaught:
		s.resource(info).Caught++
		s.caughtAt[info.ResourceID] = info.Timestamp
	case event.KindResourceReleased:
		r := s.resource(info)
		r.Released++
		if at, ok := s.caughtAt[info.ResourceID]; ok {
			r.Busy += info.Timestamp - at
			delete(s.caughtAt, info.ResourceID)
		}
	}
	return nil
}

func (s *Statistics) activity(info event.Info) *ActivityStats {
	a, ok := s.activities[info.ActivityID]
	if !ok {
		a = &ActivityStats{ActivityID: info.ActivityID}
		s.activities[info.ActivityID] = a
	}
	if a.Name == "" {
		a.Name = info.Name
	}
	return a
}

func (s *Statistics) resource(info event.Info) *ResourceStats {
	r, ok := s.resources[info.ResourceID]
	if !ok {
		r = &ResourceStats{ResourceID: info.ResourceID}
		s.resources[info.ResourceID] = r
	}
	if r.Name == "" {
		r.Name = info.Name
	}
	return r
}

func pop(m map[pairKey][]clock.Time, k pairKey) (clock.Time, bool) {
	q := m[k]
	if len(q) == 0 {
		return 0, false
	}
	at := q[0]
	if len(q) == 1 {
		delete(m, k)
	} else {
		m[k] = q[1:]
	}
	return at, true
}

// Report returns the aggregates sorted by entity id.
func (s *Statistics) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Report{ElementsStarted: s.started, ElementsFinished: s.finished, LastTimestamp: s.last}
	for _, a := range s.activities {
		r.Activities = append(r.Activities, *a)
	}
	for _, res := range s.resources {
		r.Resources = append(r.Resources, *res)
	}
	sort.Slice(r.Activities, func(i, j int) bool { return r.Activities[i].ActivityID < r.Activities[j].ActivityID })
	sort.Slice(r.Resources, func(i, j int) bool { return r.Resources[i].ResourceID < r.Resources[j].ResourceID })
	return r
}
