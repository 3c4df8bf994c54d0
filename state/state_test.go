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
	"sync"
	"testing"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func info(k event.Kind, ts clock.Time, element uint64, activity, resource int) event.Info {
	i := event.NewInfo(k, ts)
	i.ElementID = element
	i.ActivityID = activity
	i.ResourceID = resource
	return i
}

func TestInfoLog_Queries(t *testing.T) {
	log := NewInfoLog(0)
	require.NoError(t, log.Receive(info(event.KindElementStart, 0, 1, event.NoID, event.NoID)))
	require.NoError(t, log.Receive(info(event.KindActivityStart, 0, 1, 3, event.NoID)))
	require.NoError(t, log.Receive(info(event.KindResourceCaught, 0, 1, 3, 7)))
	require.NoError(t, log.Receive(info(event.KindElementStart, 2, 2, event.NoID, event.NoID)))

	assert.Equal(t, 4, log.Count())
	assert.Len(t, log.ByKind(event.KindElementStart), 2)
	assert.Len(t, log.ByElement(1), 3)
	assert.Len(t, log.ByActivity(3), 2)
	assert.Len(t, log.ByResource(7), 1)
	assert.Len(t, log.Since(0), 1)
	assert.Equal(t, []clock.Time{0, 2}, log.Timestamps(event.KindElementStart))

	log.Clear()
	assert.Equal(t, 0, log.Count())
	assert.Empty(t, log.All())
}

func TestInfoLog_CircularBuffer(t *testing.T) {
	log := NewInfoLog(3)
	for ts := clock.Time(0); ts < 5; ts++ {
		require.NoError(t, log.Receive(event.NewInfo(event.KindClockTick, ts)))
	}
	assert.Equal(t, 3, log.Count())
	assert.Equal(t, 2, log.Dropped())
	assert.Equal(t, []clock.Time{2, 3, 4}, log.Timestamps(event.KindClockTick))
}

func TestInfoLog_Concurrent(t *testing.T) {
	log := NewInfoLog(0)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				_ = log.Receive(event.NewInfo(event.KindClockTick, clock.Time(i)))
				_ = log.Count()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, log.Count())
}

func TestInfoLog_KindsViaBus(t *testing.T) {
	bus := event.NewBus()
	log := NewInfoLog(0, event.KindElementFinish)
	_, err := bus.Subscribe(log)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(event.NewInfo(event.KindElementStart, 0)))
	require.NoError(t, bus.Publish(event.NewInfo(event.KindElementFinish, 1)))
	assert.Equal(t, 1, log.Count())
}

func TestStatistics(t *testing.T) {
	s := NewStatistics()
	feed := []event.Info{
		info(event.KindElementStart, 0, 1, event.NoID, event.NoID),
		info(event.KindActivityRequest, 0, 1, 0, event.NoID),
		info(event.KindElementStart, 1, 2, event.NoID, event.NoID),
		info(event.KindActivityRequest, 1, 2, 0, event.NoID),
		info(event.KindActivityStart, 0, 1, 0, event.NoID),
		info(event.KindResourceCaught, 0, 1, 0, 4),
		info(event.KindResourceReleased, 5, 1, 0, 4),
		info(event.KindActivityEnd, 5, 1, 0, event.NoID),
		info(event.KindElementFinish, 5, 1, event.NoID, event.NoID),
		info(event.KindActivityStart, 5, 2, 0, event.NoID),
		info(event.KindResourceCaught, 5, 2, 0, 4),
		info(event.KindResourceReleased, 10, 2, 0, 4),
		info(event.KindActivityEnd, 10, 2, 0, event.NoID),
	}
	for _, i := range feed {
		require.NoError(t, s.Receive(i))
	}

	r := s.Report()
	assert.Equal(t, 2, r.ElementsStarted)
	assert.Equal(t, 1, r.ElementsFinished)
	assert.Equal(t, clock.Time(10), r.LastTimestamp)

	require.Len(t, r.Activities, 1)
	a := r.Activities[0]
	assert.Equal(t, 2, a.Requests)
	assert.Equal(t, 2, a.Starts)
	assert.Equal(t, 2, a.Ends)
	assert.Equal(t, clock.Time(4), a.TotalWait)
	assert.Equal(t, 2.0, a.MeanWait())
	assert.Equal(t, clock.Time(10), a.TotalService)

	require.Len(t, r.Resources, 1)
	assert.Equal(t, clock.Time(10), r.Resources[0].Busy)
	assert.Equal(t, 2, r.Resources[0].Caught)
	assert.Equal(t, 2, r.Resources[0].Released)
}
