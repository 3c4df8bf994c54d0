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

// Package sim builds and runs discrete-event workflow simulations.
//
// A model is built against one Simulation: resource types and resources
// with timetables, activities with work groups, element types, a flow
// graph and generators. Run validates the model, partitions activities
// into managers and drives the engine until the end timestamp.
//
// # Usage Example
//
//	s, _ := sim.New(sim.Options{End: 100, Unit: clock.Minute, StrictOrder: true})
//	doctor := s.NewResourceType("doctor")
//	r := s.NewResource("dr-1")
//	periodic, _ := cycle.NewPeriodicIterations(timefunc.Constant(0), timefunc.Constant(100), 1)
//	_ = r.AddTimeTableEntry(periodic, 100, doctor)
//	visit := s.NewActivity("visit", 0)
//	wg, _ := visit.NewWorkGroup(0, timefunc.Constant(5))
//	_ = wg.Add(doctor, 1)
//	task, _ := s.Graph().NewTask("visit", visit.ID())
//	patient := s.NewElementType("patient", 0)
//	_, _ = s.NewGenerator(arrivals, patient, task, timefunc.Constant(1))
//	result, err := s.Run()
package sim

import (
	stdcontext "context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/context"
	"github.com/jazzpetri/flowsim/cycle"
	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/event"
	"github.com/jazzpetri/flowsim/flow"
	"github.com/jazzpetri/flowsim/timefunc"
)

// Options configures a simulation.
type Options struct {
	// Name describes the model.
	Name string

	// Start and End bound simulated time. Events at or after End are not
	// dispatched. Use clock.Infinity to run until the queue drains.
	Start clock.Time
	End   clock.Time
	Unit  clock.TimeUnit

	// Engine selects the execution strategy.
	Engine engine.Config

	// StrictOrder serializes the sweeps of managers whose resource types
	// share resources, so every strategy produces the same results. Without
	// it those sweeps run concurrently and conflict zones arbitrate.
	StrictOrder bool

	// Context carries cancellation and observability. Optional.
	Context stdcontext.Context
	Logger  context.Logger
	Metrics context.MetricsCollector
	Tracer  context.Tracer

	// Errors records the error of an aborted run. Optional.
	Errors context.ErrorRecorder
}

// DefaultOptions returns a sequential, strictly ordered configuration
// running until the queue drains.
func DefaultOptions() Options {
	return Options{
		End:         clock.Infinity,
		Unit:        clock.Minute,
		Engine:      engine.DefaultConfig(),
		StrictOrder: true,
	}
}

// Status is the outcome of a run.
type Status string

const (
	// StatusCompleted means the run reached its end timestamp or drained
	// its queue.
	StatusCompleted Status = "completed"
	// StatusAborted means an event failed.
	StatusAborted Status = "aborted"
	// StatusInvalid means the model was rejected before the run started.
	StatusInvalid Status = "invalid"
)

// Result describes a finished run.
type Result struct {
	RunID  string
	Status Status

	// End is the clock when the run stopped. LastTimestamp is the
	// timestamp of the last dispatched event.
	End           clock.Time
	LastTimestamp clock.Time

	// Entity names the entity whose event failed.
	Entity string
	Err    error

	ElementsCreated   uint64
	ElementsFinished  uint64
	ActivitiesStarted uint64
	Engine            engine.Statistics
}

type counters struct {
	elementsCreated   atomic.Uint64
	elementsFinished  atomic.Uint64
	activitiesStarted atomic.Uint64
}

// Simulation owns a model and runs it once.
type Simulation struct {
	id   string
	opts Options

	graph   *flow.Graph
	bus     *event.Bus
	exec    *context.ExecutionContext
	metrics context.MetricsCollector
	logger  context.Logger

	resourceTypes []*ResourceType
	resources     []*Resource
	windows       []*window
	activities    []*Activity
	managers      []*ActivityManager
	elementTypes  []*ElementType
	generators    []*Generator
	nextWorkGroup int

	mu      sync.Mutex
	started bool
	live    map[uint64]*Element
	eng     *engine.Engine

	// nextElement is only touched by deferred functions, which run
	// sequentially.
	nextElement uint64
	zoneIDs     atomic.Uint64
	stats       counters
}

// New creates an empty simulation.
func New(opts Options) (*Simulation, error) {
	if opts.End == 0 {
		opts.End = clock.Infinity
	}
	if opts.End <= opts.Start {
		return nil, fmt.Errorf("sim: end %s must be after start %s", opts.End, opts.Start)
	}
	if opts.Engine.Strategy == "" {
		opts.Engine = engine.DefaultConfig()
	}
	if err := opts.Engine.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:    uuid.NewString(),
		opts:  opts,
		graph: flow.NewGraph(opts.Name),
		bus:   event.NewBus(),
		live:  make(map[uint64]*Element),
	}
	return s, nil
}

// ID returns the run identifier.
func (s *Simulation) ID() string { return s.id }

// Options returns the configuration.
func (s *Simulation) Options() Options { return s.opts }

// Graph returns the flow graph of the model.
func (s *Simulation) Graph() *flow.Graph { return s.graph }

// Bus returns the notification bus. Subscribe receivers before Run.
func (s *Simulation) Bus() *event.Bus { return s.bus }

// Managers returns the activity managers. They are computed by Run unless
// created explicitly.
func (s *Simulation) Managers() []*ActivityManager {
	out := make([]*ActivityManager, len(s.managers))
	copy(out, s.managers)
	return out
}

// Activities returns the activities in creation order.
func (s *Simulation) Activities() []*Activity {
	out := make([]*Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// ResourceTypes returns the resource types in creation order.
func (s *Simulation) ResourceTypes() []*ResourceType {
	out := make([]*ResourceType, len(s.resourceTypes))
	copy(out, s.resourceTypes)
	return out
}

// Resources returns the resources in creation order.
func (s *Simulation) Resources() []*Resource {
	out := make([]*Resource, len(s.resources))
	copy(out, s.resources)
	return out
}

func (s *Simulation) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	return nil
}

// NewResourceType adds a resource type.
func (s *Simulation) NewResourceType(name string) *ResourceType {
	rt := &ResourceType{id: len(s.resourceTypes), name: name, sim: s}
	s.resourceTypes = append(s.resourceTypes, rt)
	return rt
}

// NewResource adds a resource without timetable.
func (s *Simulation) NewResource(name string) *Resource {
	r := &Resource{id: len(s.resources), name: name, sim: s}
	s.resources = append(s.resources, r)
	return r
}

// NewActivity adds an activity. Activities with lower priority values are
// served first when they compete for resources.
func (s *Simulation) NewActivity(name string, priority int) *Activity {
	a := &Activity{id: len(s.activities), name: name, priority: priority, sim: s}
	s.activities = append(s.activities, a)
	return a
}

// NewActivityManager adds an explicit manager. Once one exists, every
// activity must be assigned with Activity.SetManager.
func (s *Simulation) NewActivityManager(name string) (*ActivityManager, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	m := &ActivityManager{id: len(s.managers), name: name, sim: s}
	s.managers = append(s.managers, m)
	return m, nil
}

// NewElementType adds an element type.
func (s *Simulation) NewElementType(name string, priority int) *ElementType {
	et := &ElementType{
		id:       len(s.elementTypes),
		name:     name,
		priority: priority,
		sim:      s,
		vars:     make(map[string]interface{}),
	}
	s.elementTypes = append(s.elementTypes, et)
	return et
}

// NewGenerator adds a generator creating count elements of type et at
// every timestamp of c. The elements start at the initial flow, which must
// be a top-level node.
func (s *Simulation) NewGenerator(c cycle.Cycle, et *ElementType, initial flow.ID, count timefunc.TimeFunction) (*Generator, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entity := entityName("generator", len(s.generators))
	if c == nil {
		return nil, modelErrorf(entity, "cycle is required")
	}
	if et == nil || et.sim != s {
		return nil, modelErrorf(entity, "element type belongs to another simulation")
	}
	if _, err := s.graph.Node(initial); err != nil {
		return nil, modelErrorf(entity, "initial flow: %v", err)
	}
	if count == nil {
		count = timefunc.Constant(1)
	}
	g := &Generator{id: len(s.generators), sim: s, cycle: c, typ: et, initial: initial, count: count}
	s.generators = append(s.generators, g)
	return g, nil
}

func (s *Simulation) newInfo(kind event.Kind, ts clock.Time, e *Element) event.Info {
	info := event.NewInfo(kind, ts)
	info.SimulationID = s.id
	if e != nil {
		info.ElementID = e.id
		info.ElementType = e.typ.name
	}
	return info
}

// emit publishes info once the current batch is done, so receivers see
// notifications in the same order under every strategy.
func (s *Simulation) emit(ctx *engine.Context, info event.Info) {
	if !s.bus.Wants(info.Kind) {
		return
	}
	ctx.Defer(func(*engine.Context) error {
		return s.bus.Publish(info)
	})
}

func (s *Simulation) buildExec(clk *clock.SimulationClock) *context.ExecutionContext {
	b := context.NewExecutionContextBuilder().
		WithClock(clk).
		WithRunID(s.id)
	if s.opts.Context != nil {
		b = b.WithContext(s.opts.Context)
	}
	if s.opts.Logger != nil {
		b = b.WithLogger(s.opts.Logger)
	}
	if s.opts.Metrics != nil {
		b = b.WithMetrics(s.opts.Metrics)
	}
	if s.opts.Tracer != nil {
		b = b.WithTracer(s.opts.Tracer)
	}
	if s.opts.Errors != nil {
		b = b.WithErrorRecorder(s.opts.Errors)
	}
	return b.Build()
}

// Run validates the model and runs it. The returned error is Result.Err.
// A simulation runs once.
func (s *Simulation) Run() (*Result, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrStarted
	}
	s.started = true
	s.mu.Unlock()

	clk := clock.NewSimulationClock(s.opts.Start, s.opts.End, s.opts.Unit)
	s.exec = s.buildExec(clk)
	s.logger = s.exec.GetLogger()
	s.metrics = s.exec.GetMetrics()
	result := &Result{RunID: s.id, Status: StatusCompleted}

	if err := s.validate(); err != nil {
		s.logger.Warn("model rejected", map[string]interface{}{
			"simulation_id": s.id,
			"error":         err.Error(),
		})
		result.Status, result.Err = StatusInvalid, err
		return result, err
	}

	eng, err := engine.New(s.exec, clk, s.opts.Engine)
	if err != nil {
		result.Status, result.Err = StatusInvalid, err
		return result, err
	}
	s.mu.Lock()
	s.eng = eng
	s.mu.Unlock()

	eng.OnAdvance(func(t clock.Time) error {
		if !s.bus.Wants(event.KindClockTick) {
			return nil
		}
		return s.bus.Publish(s.newInfo(event.KindClockTick, t, nil))
	})
	if err := s.scheduleTimetables(eng); err != nil {
		result.Status, result.Err = StatusInvalid, err
		return result, err
	}
	for _, g := range s.generators {
		if err := g.schedule(eng); err != nil {
			result.Status, result.Err = StatusInvalid, err
			return result, err
		}
	}

	s.logger.Info("simulation started", map[string]interface{}{
		"simulation_id": s.id,
		"name":          s.opts.Name,
		"strategy":      string(s.opts.Engine.Strategy),
		"strict_order":  s.opts.StrictOrder,
		"managers":      len(s.managers),
		"operation":     "simulation_run",
	})
	if err := s.bus.Publish(s.newInfo(event.KindSimulationStart, clk.Now(), nil)); err != nil {
		result.Status, result.Err = StatusAborted, err
		return result, err
	}

	runErr := eng.Run()

	stats := eng.Statistics()
	result.End = clk.Now()
	result.LastTimestamp = stats.LastTimestamp
	result.Engine = stats
	result.ElementsCreated = s.stats.elementsCreated.Load()
	result.ElementsFinished = s.stats.elementsFinished.Load()
	result.ActivitiesStarted = s.stats.activitiesStarted.Load()

	if runErr != nil {
		result.Status = StatusAborted
		result.Err = s.wrapRunError(runErr, clk.Now())
		if re, ok := result.Err.(*RunError); ok {
			result.Entity = re.Entity
		}
		s.logger.Error("simulation aborted", map[string]interface{}{
			"simulation_id": s.id,
			"timestamp":     int64(clk.Now()),
			"entity":        result.Entity,
			"error":         result.Err.Error(),
		})
		return result, result.Err
	}

	if err := s.bus.Publish(s.newInfo(event.KindSimulationEnd, clk.Now(), nil)); err != nil {
		result.Status, result.Err = StatusAborted, err
		return result, err
	}
	s.logger.Info("simulation finished", map[string]interface{}{
		"simulation_id":     s.id,
		"timestamp":         int64(clk.Now()),
		"elements_created":  result.ElementsCreated,
		"elements_finished": result.ElementsFinished,
		"events":            stats.Events,
	})
	return result, nil
}

func (s *Simulation) wrapRunError(err error, now clock.Time) error {
	if ee, ok := err.(*engine.EventError); ok {
		return &RunError{Timestamp: ee.Timestamp, Entity: ee.Source, Cause: ee.Err}
	}
	return &RunError{Timestamp: now, Entity: "simulation", Cause: err}
}

// Engine returns the engine of a started run.
func (s *Simulation) Engine() *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng
}
