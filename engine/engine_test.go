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
	stdcontext "context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, end clock.Time, cfg Config) *Engine {
	t.Helper()
	clk := clock.NewSimulationClock(0, end, clock.Minute)
	e, err := New(context.NewExecutionContext(stdcontext.Background(), clk), clk, cfg)
	require.NoError(t, err)
	return e
}

func strategies() []Config {
	return []Config{
		{Strategy: StrategySequential},
		{Strategy: StrategyPool, Workers: 4},
		{Strategy: StrategyPartitioned, Partitions: 3},
	}
}

func TestQueue_Order(t *testing.T) {
	q := NewQueue()
	events := []*Event{
		{At: 5, Priority: PriorityArrival, seq: 0},
		{At: 5, Priority: PriorityResourceOff, seq: 1},
		{At: 1, Priority: PriorityArrival, seq: 2},
		{At: 5, Priority: PriorityDispatch, Order: 2, seq: 3},
		{At: 5, Priority: PriorityDispatch, Order: 1, seq: 4},
		{At: 5, Priority: PriorityArrival, seq: 5},
	}
	for _, e := range events {
		q.Push(e)
	}
	var got []uint64
	for q.Len() > 0 {
		got = append(got, q.Pop().seq)
	}
	assert.Equal(t, []uint64{2, 1, 4, 3, 0, 5}, got)
	assert.Nil(t, q.Pop())
	assert.Nil(t, q.Peek())
}

func TestQueue_PopBatch(t *testing.T) {
	q := NewQueue()
	for i, p := range []Priority{PriorityArrival, PriorityActivityEnd, PriorityArrival} {
		q.Push(&Event{At: 3, Priority: p, seq: uint64(i)})
	}
	batch := q.PopBatch(Key{At: 3, Priority: PriorityActivityEnd})
	require.Len(t, batch, 1)
	batch = q.PopBatch(Key{At: 3, Priority: PriorityArrival})
	require.Len(t, batch, 2)
	assert.Equal(t, uint64(0), batch[0].seq)
	assert.Equal(t, 0, q.Len())
}

func TestContext_Schedule(t *testing.T) {
	c := newContext(nil, &Event{At: 10})
	assert.ErrorIs(t, c.Schedule(&Event{At: 9, Fn: func(*Context) error { return nil }}), ErrPastEvent)
	assert.ErrorIs(t, c.Schedule(&Event{At: 11}), ErrNoHandler)
	assert.ErrorIs(t, c.Schedule(nil), ErrNoHandler)
	require.NoError(t, c.Schedule(&Event{At: 10, Fn: func(*Context) error { return nil }}))
	assert.Len(t, c.out, 1)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Strategy: "threads"}.Validate())
	assert.Error(t, Config{Strategy: StrategyPool}.Validate())
	assert.Error(t, Config{Strategy: StrategyPartitioned}.Validate())

	s, err := ParseStrategy("pool")
	require.NoError(t, err)
	assert.Equal(t, StrategyPool, s)
}

func TestRun_MonotonicAndEndExclusive(t *testing.T) {
	for _, cfg := range strategies() {
		t.Run(string(cfg.Strategy), func(t *testing.T) {
			e := newEngine(t, 20, cfg)
			var seen []clock.Time
			var tick Handler
			tick = func(ctx *Context) error {
				ctx.Defer(func(ctx *Context) error {
					seen = append(seen, ctx.Now())
					return nil
				})
				return ctx.Schedule(&Event{At: ctx.Now() + 3, Priority: PriorityArrival, Source: "tick", Fn: tick})
			}
			require.NoError(t, e.Schedule(&Event{At: 2, Priority: PriorityArrival, Source: "tick", Fn: tick}))
			require.NoError(t, e.Run())

			assert.Equal(t, []clock.Time{2, 5, 8, 11, 14, 17}, seen)
			assert.Equal(t, clock.Time(20), e.Clock().Now(), "clock ends at the horizon")
			assert.Equal(t, 1, e.Pending(), "the event at 20 is never dispatched")
			assert.Equal(t, EngineFinished, e.State())
		})
	}
}

func TestRun_SameTimestampVisibleInSamePass(t *testing.T) {
	e := newEngine(t, clock.Infinity, DefaultConfig())
	var order []string
	record := func(name string) Handler {
		return func(ctx *Context) error {
			order = append(order, fmt.Sprintf("%s@%d", name, ctx.Now()))
			return nil
		}
	}
	require.NoError(t, e.Schedule(&Event{At: 4, Priority: PriorityArrival, Source: "arrival", Fn: func(ctx *Context) error {
		order = append(order, "arrival@4")
		if err := ctx.Schedule(&Event{At: 4, Priority: PriorityDispatch, Source: "sweep", Fn: record("sweep")}); err != nil {
			return err
		}
		return ctx.Schedule(&Event{At: 4, Priority: PriorityActivityEnd, Source: "end", Fn: record("end")})
	}}))
	require.NoError(t, e.Schedule(&Event{At: 7, Priority: PriorityResourceOff, Source: "off", Fn: record("off")}))

	require.NoError(t, e.Run())
	assert.Equal(t, []string{"arrival@4", "end@4", "sweep@4", "off@7"}, order)
	assert.Equal(t, clock.Time(7), e.Clock().Now(), "infinite horizon stops at the last event")
}

func TestRun_CanonicalPriorityOrder(t *testing.T) {
	e := newEngine(t, clock.Infinity, DefaultConfig())
	var order []Priority
	for _, p := range []Priority{PriorityArrival, PriorityDispatch, PriorityActivityEnd, PriorityResourceOn, PriorityResourceOff} {
		p := p
		require.NoError(t, e.Schedule(&Event{At: 1, Priority: p, Source: p.String(), Fn: func(*Context) error {
			order = append(order, p)
			return nil
		}}))
	}
	require.NoError(t, e.Run())
	assert.Equal(t, []Priority{PriorityResourceOff, PriorityResourceOn, PriorityActivityEnd, PriorityDispatch, PriorityArrival}, order)
}

// workload schedules a deterministic cascade of events across many affinity
// groups and partitions and records the trace through deferred functions.
func workload(t *testing.T, e *Engine) *[]string {
	t.Helper()
	trace := &[]string{}
	var actor func(id, hops int) Handler
	actor = func(id, hops int) Handler {
		return func(ctx *Context) error {
			delay := clock.Time((id*7 + hops*3) % 4)
			ctx.Defer(func(ctx *Context) error {
				*trace = append(*trace, fmt.Sprintf("%d:%d@%d", id, hops, ctx.Now()))
				return nil
			})
			if hops == 0 {
				return nil
			}
			for fan := 0; fan < 2; fan++ {
				next := (id + fan*5) % 9
				err := ctx.Schedule(&Event{
					At:        ctx.Now() + delay,
					Priority:  Priority(next % 5),
					Affinity:  Affinity(AffinityElement, uint64(next)),
					Partition: next,
					Source:    fmt.Sprintf("actor-%d", next),
					Fn:        actor(next, hops-1),
				})
				if err != nil {
					return err
				}
			}
			return nil
		}
	}
	for id := 0; id < 9; id++ {
		require.NoError(t, e.Schedule(&Event{
			At:        clock.Time(id % 3),
			Priority:  PriorityArrival,
			Affinity:  Affinity(AffinityElement, uint64(id)),
			Partition: id,
			Source:    fmt.Sprintf("actor-%d", id),
			Fn:        actor(id, 4),
		}))
	}
	return trace
}

func TestRun_StrategiesAgree(t *testing.T) {
	var reference []string
	for _, cfg := range strategies() {
		e := newEngine(t, clock.Infinity, cfg)
		trace := workload(t, e)
		require.NoError(t, e.Run())
		if reference == nil {
			reference = *trace
			require.NotEmpty(t, reference)
			continue
		}
		assert.Equal(t, reference, *trace, "strategy %s", cfg.Strategy)
	}
}

func TestRun_CallbackError(t *testing.T) {
	boom := errors.New("boom")
	for _, cfg := range strategies() {
		t.Run(string(cfg.Strategy), func(t *testing.T) {
			e := newEngine(t, 100, cfg)
			require.NoError(t, e.Schedule(&Event{At: 3, Priority: PriorityArrival, Source: "ok", Fn: func(*Context) error { return nil }}))
			require.NoError(t, e.Schedule(&Event{At: 3, Priority: PriorityArrival, Source: "element-7", Affinity: 7, Partition: 1, Fn: func(*Context) error { return boom }}))
			require.NoError(t, e.Schedule(&Event{At: 9, Priority: PriorityArrival, Source: "later", Fn: func(*Context) error {
				t.Fatal("must not run after an abort")
				return nil
			}}))

			err := e.Run()
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			var ee *EventError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, clock.Time(3), ee.Timestamp)
			assert.Equal(t, "element-7", ee.Source)
			assert.Equal(t, EngineAborted, e.State())
			assert.Equal(t, "aborted", e.HealthCheck().State)
		})
	}
}

func TestRun_PanicRecovered(t *testing.T) {
	e := newEngine(t, 100, DefaultConfig())
	require.NoError(t, e.Schedule(&Event{At: 1, Source: "bad", Fn: func(*Context) error { panic("nil map") }}))
	err := e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: nil map")
}

func TestRun_DeferredError(t *testing.T) {
	boom := errors.New("receiver failed")
	e := newEngine(t, 100, DefaultConfig())
	require.NoError(t, e.Schedule(&Event{At: 1, Source: "notify", Fn: func(ctx *Context) error {
		ctx.Defer(func(*Context) error { return boom })
		return nil
	}}))
	assert.ErrorIs(t, e.Run(), boom)
}

func TestRun_MaxEvents(t *testing.T) {
	e := newEngine(t, clock.Infinity, Config{Strategy: StrategySequential, MaxEvents: 10})
	var loop Handler
	loop = func(ctx *Context) error {
		return ctx.Schedule(&Event{At: ctx.Now() + 1, Source: "loop", Fn: loop})
	}
	require.NoError(t, e.Schedule(&Event{At: 0, Source: "loop", Fn: loop}))
	assert.ErrorIs(t, e.Run(), ErrEventLimit)
	assert.Equal(t, uint64(10), e.Statistics().Events)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	clk := clock.NewSimulationClock(0, clock.Infinity, clock.Second)
	e, err := New(context.NewExecutionContext(ctx, clk), clk, DefaultConfig())
	require.NoError(t, err)

	var loop Handler
	loop = func(c *Context) error {
		if c.Now() == 5 {
			cancel()
		}
		return c.Schedule(&Event{At: c.Now() + 1, Source: "loop", Fn: loop})
	}
	require.NoError(t, e.Schedule(&Event{At: 0, Source: "loop", Fn: loop}))
	assert.ErrorIs(t, e.Run(), stdcontext.Canceled)
	assert.Equal(t, clock.Time(5), e.Clock().Now())
}

func TestRun_OnAdvance(t *testing.T) {
	e := newEngine(t, clock.Infinity, DefaultConfig())
	var ticks []clock.Time
	e.OnAdvance(func(ts clock.Time) error {
		ticks = append(ticks, ts)
		return nil
	})
	for _, at := range []clock.Time{0, 3, 3, 8} {
		require.NoError(t, e.Schedule(&Event{At: at, Source: "x", Fn: func(*Context) error { return nil }}))
	}
	require.NoError(t, e.Run())
	assert.Equal(t, []clock.Time{3, 8}, ticks, "the start timestamp is not an advance")

	e2 := newEngine(t, clock.Infinity, DefaultConfig())
	e2.OnAdvance(func(clock.Time) error { return errors.New("tick receiver") })
	require.NoError(t, e2.Schedule(&Event{At: 2, Source: "x", Fn: func(*Context) error { return nil }}))
	var ee *EventError
	require.ErrorAs(t, e2.Run(), &ee)
	assert.Equal(t, "clock", ee.Source)
}

func TestSchedule_Validation(t *testing.T) {
	e := newEngine(t, 10, DefaultConfig())
	assert.ErrorIs(t, e.Schedule(&Event{At: 1}), ErrNoHandler)
	require.NoError(t, e.Clock().AdvanceTo(5))
	assert.ErrorIs(t, e.Schedule(&Event{At: 1, Fn: func(*Context) error { return nil }}), ErrPastEvent)
}

func TestStatisticsAndHealth(t *testing.T) {
	m := context.NewMemoryMetrics()
	clk := clock.NewSimulationClock(0, 50, clock.Second)
	e, err := New(context.NewExecutionContext(nil, clk).WithMetrics(m), clk, Config{Strategy: StrategyPool, Workers: 2})
	require.NoError(t, err)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.SetWallClock(clock.FixedClock{At: start})

	assert.Equal(t, "idle", e.HealthCheck().State)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Schedule(&Event{At: 1, Priority: PriorityArrival, Affinity: uint64(i), Source: "x", Fn: func(*Context) error { return nil }}))
	}
	require.NoError(t, e.Schedule(&Event{At: 2, Priority: PriorityActivityEnd, Source: "y", Fn: func(*Context) error { return nil }}))
	require.NoError(t, e.Run())

	s := e.Statistics()
	assert.Equal(t, uint64(4), s.Events)
	assert.Equal(t, uint64(2), s.Batches)
	assert.Equal(t, 3, s.MaxBatch)
	assert.Equal(t, clock.Time(2), s.LastTimestamp)
	assert.Equal(t, uint64(3), s.ByPriority[PriorityArrival])
	assert.Equal(t, time.Duration(0), s.WallTime)
	assert.Equal(t, 0.0, s.EventsPerSecond())

	h := e.HealthCheck()
	assert.Equal(t, "finished", h.State)
	assert.Equal(t, "pool", h.Config["strategy"])
	assert.Equal(t, uint64(4), h.EventsDispatched)

	assert.Equal(t, 4.0, m.Counter("engine_events_total"))
	assert.Equal(t, 2.0, m.Counter("engine_batches_total"))
}

func TestAffinity(t *testing.T) {
	a := Affinity(AffinityElement, 7)
	b := Affinity(AffinityManager, 7)
	assert.NotEqual(t, a, b)
	assert.Equal(t, Affinity(AffinityElement, 7), a)
}

func BenchmarkQueue(b *testing.B) {
	q := NewQueue()
	for i := 0; i < b.N; i++ {
		q.Push(&Event{At: clock.Time(i % 97), Priority: Priority(i % 5), seq: uint64(i)})
		if q.Len() > 1024 {
			q.Pop()
		}
	}
}

func benchmarkStrategy(b *testing.B, cfg Config) {
	for i := 0; i < b.N; i++ {
		clk := clock.NewSimulationClock(0, 200, clock.Second)
		e, err := New(nil, clk, cfg)
		if err != nil {
			b.Fatal(err)
		}
		var loop Handler
		loop = func(ctx *Context) error {
			return ctx.Schedule(&Event{At: ctx.Now() + 1, Affinity: ctx.Event().Affinity, Partition: ctx.Event().Partition, Fn: loop})
		}
		for a := 0; a < 64; a++ {
			_ = e.Schedule(&Event{At: 0, Affinity: uint64(a), Partition: a, Fn: loop})
		}
		if err := e.Run(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSequential(b *testing.B)  { benchmarkStrategy(b, Config{Strategy: StrategySequential}) }
func BenchmarkPool(b *testing.B)        { benchmarkStrategy(b, Config{Strategy: StrategyPool, Workers: 4}) }
func BenchmarkPartitioned(b *testing.B) { benchmarkStrategy(b, Config{Strategy: StrategyPartitioned, Partitions: 4}) }
