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

// Package engine provides the discrete-event execution loop of a simulation.
//
// The engine owns the event queues and the simulation clock. It repeatedly
// takes the batch of events sharing the smallest (timestamp, priority) key,
// advances the clock, runs the batch and queues whatever the batch produced.
// Events produced for the current timestamp are dispatched in the same pass.
//
// # Strategies
//
// Sequential: one goroutine runs every event. This is the reference
// behavior.
//
// Pool: the events of a batch are grouped by affinity and the groups run
// concurrently on a bounded worker pool.
//
// Partitioned: events are routed to several logical processes, each owning
// its own queue and goroutine. A coordinator steps every process to the
// global minimum key and routes produced events between them.
//
// All three strategies produce the same dispatch order: deferred work and
// produced events are always applied in batch order once the batch is done.
//
// # Usage Example
//
//	clk := clock.NewSimulationClock(0, 100, clock.Minute)
//	eng, _ := engine.New(context.NewExecutionContext(nil, clk), clk, engine.DefaultConfig())
//	_ = eng.Schedule(&engine.Event{At: 5, Priority: engine.PriorityArrival, Source: "gen",
//	    Fn: func(ctx *engine.Context) error { return nil }})
//	err := eng.Run()
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/context"
)

// Strategy selects how batches are executed.
type Strategy string

const (
	StrategySequential  Strategy = "sequential"
	StrategyPool        Strategy = "pool"
	StrategyPartitioned Strategy = "partitioned"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySequential, StrategyPool, StrategyPartitioned:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("engine: unknown strategy %q", s)
}

// EngineState is the lifecycle state of an engine.
type EngineState int

const (
	EngineIdle EngineState = iota
	EngineRunning
	EngineFinished
	EngineAborted
)

func (s EngineState) String() string {
	switch s {
	case EngineIdle:
		return "idle"
	case EngineRunning:
		return "running"
	case EngineFinished:
		return "finished"
	case EngineAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config defines how the engine executes.
type Config struct {
	Strategy Strategy
	// Workers bounds concurrent groups in the pool strategy.
	Workers int
	// Partitions is the number of logical processes in the partitioned
	// strategy.
	Partitions int
	// MaxEvents aborts the run once this many events were dispatched.
	// Zero means unlimited.
	MaxEvents uint64
}

// DefaultConfig returns a sequential configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:   StrategySequential,
		Workers:    DefaultWorkers,
		Partitions: DefaultPartitions,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.Strategy == StrategyPool && c.Workers < 1 {
		return fmt.Errorf("engine: pool strategy needs at least one worker, got %d", c.Workers)
	}
	if c.Strategy == StrategyPartitioned && c.Partitions < 1 {
		return fmt.Errorf("engine: partitioned strategy needs at least one partition, got %d", c.Partitions)
	}
	return nil
}

// ErrEventLimit is returned when Config.MaxEvents is exceeded.
var ErrEventLimit = errors.New("engine: event limit reached")

// ErrRunning is returned when the engine is used while a run is active.
var ErrRunning = errors.New("engine: already running")

// Engine drives one simulation run.
type Engine struct {
	exec   *context.ExecutionContext
	clock  *clock.SimulationClock
	config Config
	x      executor

	onAdvance func(t clock.Time) error
	wall      clock.WallClock

	mu    sync.RWMutex
	seq   uint64
	state EngineState
	stats Statistics
}

// New creates an engine for clk. The engine owns clk from now on.
func New(exec *context.ExecutionContext, clk *clock.SimulationClock, config Config) (*Engine, error) {
	if clk == nil {
		return nil, fmt.Errorf("engine: clock is required")
	}
	if exec == nil {
		exec = context.NewExecutionContext(nil, clk)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{exec: exec, clock: clk, config: config, wall: clock.NewRealTimeClock()}
	switch config.Strategy {
	case StrategyPool:
		e.x = newPool(config.Workers)
	case StrategyPartitioned:
		e.x = newPartitioned(config.Partitions)
	default:
		e.x = newSequential()
	}
	e.stats.Strategy = config.Strategy
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Clock returns the simulation clock.
func (e *Engine) Clock() *clock.SimulationClock {
	return e.clock
}

// OnAdvance registers fn, called each time the clock moves to a new
// timestamp and before that timestamp's first batch runs.
func (e *Engine) OnAdvance(fn func(t clock.Time) error) {
	e.onAdvance = fn
}

// SetWallClock replaces the wall clock used for run statistics.
func (e *Engine) SetWallClock(w clock.WallClock) {
	e.wall = w
}

// Schedule queues an initial event. It fails while a run is active.
func (e *Engine) Schedule(ev *Event) error {
	if ev == nil || ev.Fn == nil {
		return ErrNoHandler
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EngineRunning {
		return ErrRunning
	}
	if ev.At < e.clock.Now() {
		return fmt.Errorf("%w: %s before %s", ErrPastEvent, ev.At, e.clock.Now())
	}
	ev.seq = e.seq
	e.seq++
	e.x.push([]*Event{ev})
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Pending returns the number of queued events.
func (e *Engine) Pending() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == EngineRunning {
		return e.stats.Pending
	}
	return e.x.pending()
}

// Run dispatches events until the queue drains, the end timestamp is
// reached, the context is cancelled or a callback fails. Events at or after
// the end timestamp are never dispatched. A failing callback is reported as
// an *EventError.
func (e *Engine) Run() (err error) {
	e.mu.Lock()
	if e.state == EngineRunning {
		e.mu.Unlock()
		return ErrRunning
	}
	e.state = EngineRunning
	e.stats.StartTime = e.wall.Now()
	e.x.start()
	e.mu.Unlock()

	logger := e.exec.GetLogger()
	metrics := e.exec.GetMetrics()
	span := e.exec.GetTracer().StartSpan("engine.run")
	span.SetAttribute("strategy", string(e.config.Strategy))
	logger.Info("engine started", map[string]interface{}{
		"simulation_id": e.exec.RunID,
		"strategy":      string(e.config.Strategy),
		"timestamp":     int64(e.clock.Now()),
		"operation":     "engine_run",
	})

	defer func() {
		stopErr := e.x.stop()
		if err == nil {
			err = stopErr
		}
		e.mu.Lock()
		e.stats.WallTime += e.wall.Now().Sub(e.stats.StartTime)
		if err != nil {
			e.state = EngineAborted
		} else {
			e.state = EngineFinished
		}
		stats := e.stats
		e.mu.Unlock()

		if err != nil {
			span.RecordError(err)
			e.exec.GetErrorRecorder().RecordError(err, map[string]interface{}{
				"simulation_id": e.exec.RunID,
				"timestamp":     int64(e.clock.Now()),
				"phase":         "run",
			})
			logger.Error("engine aborted", map[string]interface{}{
				"simulation_id": e.exec.RunID,
				"timestamp":     int64(e.clock.Now()),
				"error":         err.Error(),
			})
		} else {
			logger.Info("engine finished", map[string]interface{}{
				"simulation_id": e.exec.RunID,
				"timestamp":     int64(e.clock.Now()),
				"events":        stats.Events,
				"batches":       stats.Batches,
			})
		}
		span.End()
	}()

	for {
		if cerr := e.exec.Err(); cerr != nil {
			return cerr
		}
		k, ok := e.x.peek()
		if !ok || k.At >= e.clock.End() {
			break
		}
		if k.At > e.clock.Now() {
			if aerr := e.clock.AdvanceTo(k.At); aerr != nil {
				return aerr
			}
			if e.onAdvance != nil {
				if herr := e.onAdvance(k.At); herr != nil {
					return &EventError{Timestamp: k.At, Source: "clock", Err: herr}
				}
			}
		}

		ctxs := e.x.runBatch(k, e.exec)
		for _, c := range ctxs {
			if c.err != nil {
				return c.fail()
			}
		}
		for _, c := range ctxs {
			if c.err = c.runDeferred(); c.err != nil {
				return c.fail()
			}
		}

		var produced []*Event
		e.mu.Lock()
		for _, c := range ctxs {
			for _, out := range c.out {
				out.seq = e.seq
				e.seq++
				produced = append(produced, out)
			}
		}
		e.stats.record(k, len(ctxs))
		events := e.stats.Events
		e.mu.Unlock()
		e.x.push(produced)
		pending := e.x.pending()
		e.mu.Lock()
		e.stats.Pending = pending
		e.mu.Unlock()

		metrics.Set("engine_queue_depth", float64(pending))
		metrics.Inc("engine_batches_total")
		metrics.Add("engine_events_total", float64(len(ctxs)))
		metrics.Observe("engine_batch_size", float64(len(ctxs)))

		if e.config.MaxEvents > 0 && events >= e.config.MaxEvents {
			return fmt.Errorf("%w (%d)", ErrEventLimit, e.config.MaxEvents)
		}
	}

	if end := e.clock.End(); end != clock.Infinity {
		if aerr := e.clock.AdvanceTo(end); aerr != nil {
			return aerr
		}
	}
	return nil
}

// Statistics returns a copy of the run statistics.
func (e *Engine) Statistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.stats
	if e.state == EngineRunning {
		s.WallTime += e.wall.Now().Sub(s.StartTime)
	}
	return s
}
