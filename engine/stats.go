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

import (
	"time"

	"github.com/jazzpetri/flowsim/clock"
)

// Statistics tracks the execution of a run.
type Statistics struct {
	Strategy Strategy

	// Events is the number of dispatched events.
	Events uint64

	// Batches is the number of executed batches.
	Batches uint64

	// MaxBatch is the size of the largest batch.
	MaxBatch int

	// Pending is the queue size after the last batch.
	Pending int

	// LastTimestamp is the timestamp of the last dispatched batch.
	LastTimestamp clock.Time

	// ByPriority counts dispatched events per priority class.
	ByPriority map[Priority]uint64

	StartTime time.Time
	WallTime  time.Duration
}

func (s *Statistics) record(k Key, n int) {
	s.Events += uint64(n)
	s.Batches++
	if n > s.MaxBatch {
		s.MaxBatch = n
	}
	s.LastTimestamp = k.At
	if s.ByPriority == nil {
		s.ByPriority = make(map[Priority]uint64)
	}
	s.ByPriority[k.Priority] += uint64(n)
}

// EventsPerSecond returns the dispatch throughput in wall-clock time.
func (s Statistics) EventsPerSecond() float64 {
	if s.WallTime <= 0 {
		return 0
	}
	return float64(s.Events) / s.WallTime.Seconds()
}

// HealthStatus represents the current health of the engine.
type HealthStatus struct {
	// State is "healthy", "finished", "aborted" or "idle".
	State string `json:"state"`

	EngineState string `json:"engine_state"`

	Uptime time.Duration `json:"uptime_ms"`

	EventsDispatched uint64 `json:"events_dispatched"`

	PendingEvents int `json:"pending_events"`

	SimulationTime clock.Time `json:"simulation_time"`

	Metrics map[string]interface{} `json:"metrics,omitempty"`

	Config map[string]interface{} `json:"config,omitempty"`
}

// HealthCheck returns the current health status of the engine.
func (e *Engine) HealthCheck() *HealthStatus {
	stats := e.Statistics()
	state := e.State()

	status := &HealthStatus{
		EngineState:      state.String(),
		Uptime:           stats.WallTime,
		EventsDispatched: stats.Events,
		PendingEvents:    e.Pending(),
		SimulationTime:   e.clock.Now(),
		Metrics:          make(map[string]interface{}),
		Config:           make(map[string]interface{}),
	}

	switch state {
	case EngineRunning:
		status.State = "healthy"
	case EngineFinished:
		status.State = "finished"
	case EngineAborted:
		status.State = "aborted"
	default:
		status.State = "idle"
	}

	status.Metrics["events_total"] = stats.Events
	status.Metrics["batches_total"] = stats.Batches
	status.Metrics["max_batch"] = stats.MaxBatch
	status.Metrics["events_per_second"] = stats.EventsPerSecond()

	status.Config["strategy"] = string(e.config.Strategy)
	status.Config["workers"] = e.config.Workers
	status.Config["partitions"] = e.config.Partitions
	status.Config["max_events"] = e.config.MaxEvents
	return status
}
