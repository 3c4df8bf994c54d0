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

// Package condition defines the boolean predicates evaluated by work groups,
// choice flows and loops.
//
// A Condition only sees a Subject: the element being routed, its variables
// and the current time. Conditions must not retain the subject.
package condition

import (
	"fmt"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/timefunc"
)

// Subject is the read-only view of an element that a condition evaluates.
type Subject interface {
	ElementID() uint64
	ElementType() string
	Var(name string) (interface{}, bool)
	Now() clock.Time
}

// Condition is a boolean predicate over a Subject.
// A returned error aborts the simulation.
type Condition interface {
	Check(s Subject) (bool, error)
}

// Func adapts a function to the Condition interface.
type Func func(s Subject) (bool, error)

// Check calls f.
func (f Func) Check(s Subject) (bool, error) {
	return f(s)
}

type constant bool

func (c constant) Check(Subject) (bool, error) {
	return bool(c), nil
}

// True always holds.
var True Condition = constant(true)

// False never holds.
var False Condition = constant(false)

// Not negates c.
func Not(c Condition) Condition {
	return Func(func(s Subject) (bool, error) {
		ok, err := c.Check(s)
		return !ok, err
	})
}

// And holds when every condition holds. Evaluation stops at the first
// condition that fails.
func And(cs ...Condition) Condition {
	return Func(func(s Subject) (bool, error) {
		for _, c := range cs {
			ok, err := c.Check(s)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}

// Or holds when any condition holds. Evaluation stops at the first
// condition that holds.
func Or(cs ...Condition) Condition {
	return Func(func(s Subject) (bool, error) {
		for _, c := range cs {
			ok, err := c.Check(s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

// VarEquals holds when the named element variable equals value.
// A missing variable makes the condition false.
func VarEquals(name string, value interface{}) Condition {
	return Func(func(s Subject) (bool, error) {
		v, ok := s.Var(name)
		if !ok {
			return false, nil
		}
		return v == value, nil
	})
}

// Op is a numeric comparison operator.
type Op string

const (
	Less         Op = "<"
	LessEqual    Op = "<="
	Greater      Op = ">"
	GreaterEqual Op = ">="
	Equal        Op = "=="
	NotEqual     Op = "!="
)

// VarCompare compares a numeric element variable with a threshold.
// Returns an error when the variable exists but is not numeric.
func VarCompare(name string, op Op, threshold float64) Condition {
	return Func(func(s Subject) (bool, error) {
		raw, ok := s.Var(name)
		if !ok {
			return false, nil
		}
		v, err := toFloat(raw)
		if err != nil {
			return false, fmt.Errorf("condition: variable %s: %w", name, err)
		}
		switch op {
		case Less:
			return v < threshold, nil
		case LessEqual:
			return v <= threshold, nil
		case Greater:
			return v > threshold, nil
		case GreaterEqual:
			return v >= threshold, nil
		case Equal:
			return v == threshold, nil
		case NotEqual:
			return v != threshold, nil
		default:
			return false, fmt.Errorf("condition: unknown operator %q", op)
		}
	})
}

// Probability holds with probability p, sampled from src.
func Probability(p float64, src *timefunc.Source) Condition {
	return Func(func(Subject) (bool, error) {
		if p < 0 || p > 1 {
			return false, fmt.Errorf("condition: probability %v outside [0,1]", p)
		}
		return src.Float64() < p, nil
	})
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not numeric (%T)", v)
	}
}
