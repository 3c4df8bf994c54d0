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

package event

import (
	"errors"
	"sync"
	"testing"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	kinds []Kind
	got   []Info
}

func (r *recorder) Kinds() []Kind { return r.kinds }
func (r *recorder) Receive(i Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, i)
	return nil
}

func TestBus_KindFiltering(t *testing.T) {
	bus := NewBus()
	starts := &recorder{kinds: []Kind{KindElementStart}}
	all := &recorder{}
	_, err := bus.Subscribe(starts)
	require.NoError(t, err)
	_, err = bus.Subscribe(all)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(NewInfo(KindElementStart, 1)))
	require.NoError(t, bus.Publish(NewInfo(KindActivityStart, 2)))

	assert.Len(t, starts.got, 1)
	assert.Len(t, all.got, 2)
	assert.True(t, bus.Wants(KindClockTick))
}

func TestBus_OrderAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	var order []string
	id1, err := bus.SubscribeFunc(func(Info) error { order = append(order, "a"); return nil })
	require.NoError(t, err)
	_, err = bus.SubscribeFunc(func(Info) error { order = append(order, "b"); return nil })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(NewInfo(KindClockTick, 0)))
	require.NoError(t, bus.Unsubscribe(id1))
	require.NoError(t, bus.Publish(NewInfo(KindClockTick, 1)))

	assert.Equal(t, []string{"a", "b", "b"}, order)
	assert.Equal(t, 1, bus.SubscriptionCount())
	assert.Error(t, bus.Unsubscribe(id1))
}

func TestBus_Wants(t *testing.T) {
	bus := NewBus()
	assert.False(t, bus.Wants(KindClockTick))
	_, err := bus.SubscribeFunc(func(Info) error { return nil }, KindElementFinish)
	require.NoError(t, err)
	assert.False(t, bus.Wants(KindClockTick))
	assert.True(t, bus.Wants(KindElementFinish))
}

func TestBus_ErrorsJoinedAndPanicsRecovered(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	called := false
	_, _ = bus.SubscribeFunc(func(Info) error { return boom })
	_, _ = bus.SubscribeFunc(func(Info) error { panic("bad receiver") })
	_, _ = bus.SubscribeFunc(func(Info) error { called = true; return nil })

	err := bus.Publish(NewInfo(KindSimulationStart, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, called, "later receivers still run")
}

func TestBus_Closed(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Close())
	assert.Error(t, bus.Close())
	assert.Error(t, bus.Publish(NewInfo(KindClockTick, 0)))
	_, err := bus.SubscribeFunc(func(Info) error { return nil })
	assert.Error(t, err)
}

func TestBus_NilReceiver(t *testing.T) {
	bus := NewBus()
	_, err := bus.Subscribe(nil)
	assert.Error(t, err)
	_, err = bus.SubscribeFunc(nil)
	assert.Error(t, err)
}

func TestAsync_DeliversInOrder(t *testing.T) {
	inner := &recorder{}
	boom := errors.New("boom")
	failing := &funcReceiver{fn: func(i Info) error {
		if i.Timestamp == 3 {
			return boom
		}
		return inner.Receive(i)
	}}
	a := NewAsync(failing, 2)

	bus := NewBus()
	_, err := bus.Subscribe(a)
	require.NoError(t, err)
	for ts := 0; ts < 6; ts++ {
		require.NoError(t, bus.Publish(NewInfo(KindClockTick, clock.Time(ts))))
	}

	err = a.Close()
	assert.ErrorIs(t, err, boom)
	require.Len(t, inner.got, 5)
	for i, info := range inner.got {
		if i < 3 {
			assert.Equal(t, clock.Time(i), info.Timestamp)
		} else {
			assert.Equal(t, clock.Time(i+1), info.Timestamp)
		}
	}
	assert.Error(t, a.Receive(NewInfo(KindClockTick, 9)))
	assert.Error(t, a.Close())
}

func TestKind_StringAndParse(t *testing.T) {
	for _, k := range AllKinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("nope")
	assert.Error(t, err)
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Len(t, AllKinds(), 12)
}

func TestInfo_String(t *testing.T) {
	i := NewInfo(KindResourceCaught, 4)
	i.ElementID = 2
	i.ResourceID = 1
	assert.Equal(t, "resource.caught@4 element=2 resource=1", i.String())
}
