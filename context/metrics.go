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

package context

import (
	"math"
	"sort"
	"sync"
)

// Summary aggregates the samples passed to Observe.
type Summary struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean returns Sum/Count, or 0 without samples.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// MemoryMetrics is an in-memory MetricsCollector. Safe for concurrent use.
type MemoryMetrics struct {
	mu        sync.Mutex
	counters  map[string]float64
	gauges    map[string]float64
	summaries map[string]Summary
}

// NewMemoryMetrics creates an empty collector.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		counters:  make(map[string]float64),
		gauges:    make(map[string]float64),
		summaries: make(map[string]Summary),
	}
}

func (m *MemoryMetrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *MemoryMetrics) Add(name string, value float64) {
	m.mu.Lock()
	m.counters[name] += value
	m.mu.Unlock()
}

func (m *MemoryMetrics) Set(name string, value float64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

func (m *MemoryMetrics) Observe(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[name]
	if !ok {
		s = Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	}
	s.Count++
	s.Sum += value
	s.Min = math.Min(s.Min, value)
	s.Max = math.Max(s.Max, value)
	m.summaries[name] = s
}

// Counter returns the current value of a counter.
func (m *MemoryMetrics) Counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Gauge returns the current value of a gauge.
func (m *MemoryMetrics) Gauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[name]
}

// Summary returns the aggregated observations for name.
func (m *MemoryMetrics) Summary(name string) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries[name]
}

// Names returns every counter and gauge name, sorted.
func (m *MemoryMetrics) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.counters)+len(m.gauges))
	for k := range m.counters {
		names = append(names, k)
	}
	for k := range m.gauges {
		if _, dup := m.counters[k]; !dup {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Value returns the counter or, failing that, the gauge called name.
func (m *MemoryMetrics) Value(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.counters[name]; ok {
		return v
	}
	return m.gauges[name]
}
