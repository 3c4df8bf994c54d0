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

package clock

import (
	"fmt"
	"sync/atomic"
)

// SimulationClock holds the current and end timestamps of a simulation.
//
// Time only moves forward, and only when the logical process dispatches an
// event. Reads are lock-free so that event callbacks running on worker
// goroutines can query the current time while the coordinator owns writes.
//
// Example:
//
//	clk := clock.NewSimulationClock(0, 100, clock.Minute)
//	_ = clk.AdvanceTo(10)
//	clk.Now()  // 10
//	clk.Done() // false
type SimulationClock struct {
	current atomic.Int64
	start   Time
	end     Time
	unit    TimeUnit
}

// NewSimulationClock creates a clock positioned at start.
// Use Infinity as end for simulations that run until the event queue drains.
func NewSimulationClock(start, end Time, unit TimeUnit) *SimulationClock {
	c := &SimulationClock{start: start, end: end, unit: unit}
	c.current.Store(int64(start))
	return c
}

// Now returns the current simulation timestamp.
func (c *SimulationClock) Now() Time {
	return Time(c.current.Load())
}

// Unit returns the clock's time unit.
func (c *SimulationClock) Unit() TimeUnit {
	return c.unit
}

// Start returns the initial timestamp.
func (c *SimulationClock) Start() Time {
	return c.start
}

// End returns the end timestamp.
func (c *SimulationClock) End() Time {
	return c.end
}

// Done reports whether the clock has reached the end timestamp.
func (c *SimulationClock) Done() bool {
	return c.Now() >= c.end
}

// AdvanceTo moves the clock to t.
//
// Returns an error if t lies before the current time. Advancing to the
// current time is a no-op. The clock never moves past the end timestamp.
func (c *SimulationClock) AdvanceTo(t Time) error {
	now := c.Now()
	if t < now {
		return fmt.Errorf("clock: cannot move backward from %s to %s", now, t)
	}
	if t > c.end {
		t = c.end
	}
	c.current.Store(int64(t))
	return nil
}

// Reset positions the clock back at its start timestamp.
// Only used between runs; never while events are being dispatched.
func (c *SimulationClock) Reset() {
	c.current.Store(int64(c.start))
}
