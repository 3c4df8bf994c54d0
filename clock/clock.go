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

// Package clock provides the time abstractions used by the flowsim engine.
//
// Simulation time is an integer timestamp expressed in a configurable unit.
// It never relates to the wall clock: it only advances when the logical
// process dispatches an event with a later timestamp.
//
// Key Features:
//   - Time is a plain int64 so it can be compared, hashed and stored cheaply
//   - TimeUnit names the unit and converts between units
//   - SimulationClock is the monotonic, concurrency-safe simulation clock
//   - RealTimeClock measures wall-clock duration of runs for benchmarking
//
// Example usage:
//
//	clk := clock.NewSimulationClock(0, 100, clock.Minute)
//	clk.AdvanceTo(5)
//	fmt.Println(clk.Now()) // 5
package clock

import (
	"fmt"
	"math"
)

// Time is a simulation timestamp measured in the simulation's TimeUnit.
type Time int64

// Infinity is the timestamp used for simulations without an end.
const Infinity Time = math.MaxInt64

// String returns the timestamp, or "inf" for Infinity.
func (t Time) String() string {
	if t == Infinity {
		return "inf"
	}
	return fmt.Sprintf("%d", int64(t))
}

// Add returns t+d saturating at Infinity.
func (t Time) Add(d Time) Time {
	if t == Infinity || d == Infinity {
		return Infinity
	}
	if d > 0 && t > Infinity-d {
		return Infinity
	}
	return t + d
}

// FromFloat converts a sampled value (typically the output of a time function)
// into a timestamp by rounding to the nearest integer.
//
// Returns an error if the value is NaN, infinite or negative, since none of
// those describe a usable delay.
func FromFloat(v float64) (Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("clock: invalid time value %v", v)
	}
	if v < 0 {
		return 0, fmt.Errorf("clock: negative time value %v", v)
	}
	r := math.Round(v)
	if r >= float64(Infinity) {
		return Infinity, nil
	}
	return Time(r), nil
}

// TimeUnit identifies the unit in which simulation timestamps are expressed.
type TimeUnit int

const (
	// Millisecond is one thousandth of a second.
	Millisecond TimeUnit = iota
	// Second is the SI second.
	Second
	// Minute is 60 seconds.
	Minute
	// Hour is 60 minutes.
	Hour
	// Day is 24 hours.
	Day
	// Week is 7 days.
	Week
)

var unitMillis = map[TimeUnit]int64{
	Millisecond: 1,
	Second:      1000,
	Minute:      60 * 1000,
	Hour:        60 * 60 * 1000,
	Day:         24 * 60 * 60 * 1000,
	Week:        7 * 24 * 60 * 60 * 1000,
}

// String returns the lower-case unit name.
func (u TimeUnit) String() string {
	switch u {
	case Millisecond:
		return "millisecond"
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	default:
		return "unknown"
	}
}

// ParseUnit returns the TimeUnit named by s.
func ParseUnit(s string) (TimeUnit, error) {
	for u := Millisecond; u <= Week; u++ {
		if u.String() == s {
			return u, nil
		}
	}
	return 0, fmt.Errorf("clock: unknown time unit %q", s)
}

// Convert expresses v, given in unit from, in unit u.
// Conversions to a coarser unit round to the nearest timestamp.
func (u TimeUnit) Convert(v Time, from TimeUnit) Time {
	if v == Infinity || u == from {
		return v
	}
	src, okSrc := unitMillis[from]
	dst, okDst := unitMillis[u]
	if !okSrc || !okDst {
		return v
	}
	return Time(math.Round(float64(v) * float64(src) / float64(dst)))
}

// Clock abstracts read access to simulation time.
// Implementations must be safe for concurrent use by multiple goroutines.
type Clock interface {
	// Now returns the current simulation timestamp.
	Now() Time

	// Unit returns the unit in which timestamps are expressed.
	Unit() TimeUnit
}
