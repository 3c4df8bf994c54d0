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

package condition

import (
	"errors"
	"testing"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/timefunc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subject struct {
	vars map[string]interface{}
}

func (s subject) ElementID() uint64   { return 1 }
func (s subject) ElementType() string { return "patient" }
func (s subject) Now() clock.Time     { return 0 }
func (s subject) Var(name string) (interface{}, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func check(t *testing.T, c Condition, s Subject) bool {
	t.Helper()
	ok, err := c.Check(s)
	require.NoError(t, err)
	return ok
}

func TestConstants(t *testing.T) {
	s := subject{}
	assert.True(t, check(t, True, s))
	assert.False(t, check(t, False, s))
	assert.True(t, check(t, Not(False), s))
}

func TestAndOr_ShortCircuit(t *testing.T) {
	s := subject{}
	boom := errors.New("boom")
	failing := Func(func(Subject) (bool, error) { return false, boom })

	assert.False(t, check(t, And(False, failing), s), "And stops at the first false")
	assert.True(t, check(t, Or(True, failing), s), "Or stops at the first true")

	_, err := And(True, failing).Check(s)
	assert.ErrorIs(t, err, boom)
	_, err = Or(False, failing).Check(s)
	assert.ErrorIs(t, err, boom)
}

func TestVarEquals(t *testing.T) {
	s := subject{vars: map[string]interface{}{"severity": "high"}}
	assert.True(t, check(t, VarEquals("severity", "high"), s))
	assert.False(t, check(t, VarEquals("severity", "low"), s))
	assert.False(t, check(t, VarEquals("missing", "high"), s))
}

func TestVarCompare(t *testing.T) {
	s := subject{vars: map[string]interface{}{"age": 70, "score": 2.5, "name": "x"}}
	assert.True(t, check(t, VarCompare("age", GreaterEqual, 65), s))
	assert.False(t, check(t, VarCompare("age", Less, 65), s))
	assert.True(t, check(t, VarCompare("score", NotEqual, 3), s))
	assert.False(t, check(t, VarCompare("missing", Equal, 0), s))

	_, err := VarCompare("name", Equal, 0).Check(s)
	assert.Error(t, err)
	_, err = VarCompare("age", Op("~"), 0).Check(s)
	assert.Error(t, err)
}

func TestProbability(t *testing.T) {
	src := timefunc.NewSource(5)
	assert.True(t, check(t, Probability(1, src), subject{}))
	assert.False(t, check(t, Probability(0, src), subject{}))

	_, err := Probability(2, src).Check(subject{})
	assert.Error(t, err)
}
