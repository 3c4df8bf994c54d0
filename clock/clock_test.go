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
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_Add(t *testing.T) {
	assert.Equal(t, Time(15), Time(10).Add(5))
	assert.Equal(t, Infinity, Infinity.Add(5))
	assert.Equal(t, Infinity, Time(10).Add(Infinity))
	assert.Equal(t, Infinity, (Infinity - 2).Add(5), "addition must saturate")
}

func TestTime_String(t *testing.T) {
	assert.Equal(t, "42", Time(42).String())
	assert.Equal(t, "inf", Infinity.String())
}

func TestFromFloat(t *testing.T) {
	tests := []struct {
		in      float64
		want    Time
		wantErr bool
	}{
		{in: 0, want: 0},
		{in: 4.4, want: 4},
		{in: 4.5, want: 5},
		{in: -1, wantErr: true},
		{in: math.NaN(), wantErr: true},
		{in: math.Inf(1), wantErr: true},
	}
	for _, tt := range tests {
		got, err := FromFloat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "FromFloat(%v)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "FromFloat(%v)", tt.in)
	}
}

func TestTimeUnit_Convert(t *testing.T) {
	assert.Equal(t, Time(120), Second.Convert(2, Minute))
	assert.Equal(t, Time(2), Hour.Convert(120, Minute))
	assert.Equal(t, Time(1), Day.Convert(30, Hour), "30h rounds to one day")
	assert.Equal(t, Infinity, Second.Convert(Infinity, Day))
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("hour")
	require.NoError(t, err)
	assert.Equal(t, Hour, u)

	_, err = ParseUnit("fortnight")
	assert.Error(t, err)
}

func TestSimulationClock_AdvanceTo(t *testing.T) {
	clk := NewSimulationClock(0, 100, Minute)
	assert.Equal(t, Time(0), clk.Now())
	assert.Equal(t, Minute, clk.Unit())

	require.NoError(t, clk.AdvanceTo(10))
	assert.Equal(t, Time(10), clk.Now())

	require.NoError(t, clk.AdvanceTo(10), "advancing to the current time is allowed")
	assert.Error(t, clk.AdvanceTo(5), "clock must not move backward")
	assert.Equal(t, Time(10), clk.Now())

	require.NoError(t, clk.AdvanceTo(500))
	assert.Equal(t, Time(100), clk.Now(), "clock is capped at the end timestamp")
	assert.True(t, clk.Done())

	clk.Reset()
	assert.Equal(t, Time(0), clk.Now())
}

func TestSimulationClock_ConcurrentReads(t *testing.T) {
	clk := NewSimulationClock(0, Infinity, Second)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := Time(0)
			for j := 0; j < 1000; j++ {
				now := clk.Now()
				if now < last {
					t.Errorf("clock went backward: %d after %d", now, last)
					return
				}
				last = now
			}
		}()
	}
	for i := 1; i <= 1000; i++ {
		require.NoError(t, clk.AdvanceTo(Time(i)))
	}
	wg.Wait()
}

func TestRealTimeClock(t *testing.T) {
	clk := NewRealTimeClock()
	before := time.Now()
	now := clk.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clk.Since(before), time.Duration(0))

	fixed := FixedClock{At: before}
	assert.True(t, fixed.Now().Equal(before))
}
