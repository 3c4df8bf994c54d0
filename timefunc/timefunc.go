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

// Package timefunc provides the pluggable time functions used for activity
// durations, cycle periods and generator batch sizes.
//
// The engine only ever calls NextValue. Random functions own their source so
// that two runs with the same seed sample identical sequences regardless of
// the executor in use.
//
// Example:
//
//	f := timefunc.NewExponential(4, timefunc.NewSource(42))
//	v, err := f.NextValue(now)
package timefunc

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/jazzpetri/flowsim/clock"
)

// TimeFunction produces successive values given the current simulation time.
// Implementations must be safe for concurrent use.
type TimeFunction interface {
	// NextValue samples the next value. An error aborts the simulation.
	NextValue(now clock.Time) (float64, error)
}

// Source is a concurrency-safe random source shared by the functions that
// need randomness.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource creates a deterministic source from seed.
func NewSource(seed uint64) *Source {
	return &Source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a uniform sample in [0, 1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// ExpFloat64 returns an exponential sample with rate 1.
func (s *Source) ExpFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.ExpFloat64()
}

// NormFloat64 returns a standard normal sample.
func (s *Source) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.NormFloat64()
}

// Constant always returns the same value.
type Constant float64

// NextValue returns the constant.
func (c Constant) NextValue(clock.Time) (float64, error) {
	return float64(c), nil
}

// Func adapts a plain function to the TimeFunction interface.
type Func func(now clock.Time) (float64, error)

// NextValue calls f.
func (f Func) NextValue(now clock.Time) (float64, error) {
	return f(now)
}

// Uniform samples uniformly in [Min, Max).
type Uniform struct {
	Min, Max float64
	src      *Source
}

// NewUniform creates a uniform function.
func NewUniform(min, max float64, src *Source) (*Uniform, error) {
	if max < min {
		return nil, fmt.Errorf("timefunc: uniform max %v below min %v", max, min)
	}
	if src == nil {
		return nil, fmt.Errorf("timefunc: uniform requires a source")
	}
	return &Uniform{Min: min, Max: max, src: src}, nil
}

// NextValue samples the distribution.
func (u *Uniform) NextValue(clock.Time) (float64, error) {
	return u.Min + (u.Max-u.Min)*u.src.Float64(), nil
}

// Exponential samples an exponential distribution with the given Mean.
type Exponential struct {
	Mean float64
	src  *Source
}

// NewExponential creates an exponential function.
func NewExponential(mean float64, src *Source) *Exponential {
	return &Exponential{Mean: mean, src: src}
}

// NextValue samples the distribution.
func (e *Exponential) NextValue(clock.Time) (float64, error) {
	if e.Mean <= 0 {
		return 0, fmt.Errorf("timefunc: exponential mean must be positive, got %v", e.Mean)
	}
	return e.src.ExpFloat64() * e.Mean, nil
}

// Normal samples a normal distribution truncated at zero, since a negative
// delay has no meaning.
type Normal struct {
	Mean, StdDev float64
	src          *Source
}

// NewNormal creates a truncated normal function.
func NewNormal(mean, stddev float64, src *Source) *Normal {
	return &Normal{Mean: mean, StdDev: stddev, src: src}
}

// NextValue samples the distribution.
func (n *Normal) NextValue(clock.Time) (float64, error) {
	if n.StdDev < 0 {
		return 0, fmt.Errorf("timefunc: normal stddev must not be negative, got %v", n.StdDev)
	}
	return math.Max(0, n.Mean+n.StdDev*n.src.NormFloat64()), nil
}

// Triangular samples a triangular distribution over [Min, Max] with the given Mode.
type Triangular struct {
	Min, Mode, Max float64
	src            *Source
}

// NewTriangular creates a triangular function.
func NewTriangular(min, mode, max float64, src *Source) (*Triangular, error) {
	if !(min <= mode && mode <= max) || min == max {
		return nil, fmt.Errorf("timefunc: triangular requires min <= mode <= max and min < max, got %v/%v/%v", min, mode, max)
	}
	return &Triangular{Min: min, Mode: mode, Max: max, src: src}, nil
}

// NextValue samples the distribution by inverse transform.
func (t *Triangular) NextValue(clock.Time) (float64, error) {
	u := t.src.Float64()
	c := (t.Mode - t.Min) / (t.Max - t.Min)
	if u < c {
		return t.Min + math.Sqrt(u*(t.Max-t.Min)*(t.Mode-t.Min)), nil
	}
	return t.Max - math.Sqrt((1-u)*(t.Max-t.Min)*(t.Max-t.Mode)), nil
}

// Time samples f and converts the value to a timestamp delta.
func Time(f TimeFunction, now clock.Time) (clock.Time, error) {
	v, err := f.NextValue(now)
	if err != nil {
		return 0, err
	}
	return clock.FromFloat(v)
}

// Count samples f and converts the value to a non-negative count.
func Count(f TimeFunction, now clock.Time) (int, error) {
	v, err := f.NextValue(now)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < 0 {
		return 0, fmt.Errorf("timefunc: invalid count %v", v)
	}
	return int(math.Round(v)), nil
}
