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

package bench

import (
	"fmt"
	"time"

	"github.com/jazzpetri/flowsim/config"
	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/event"
	"github.com/jazzpetri/flowsim/sim"
	"github.com/jazzpetri/flowsim/state"
	"github.com/jazzpetri/flowsim/verification"
)

// Run builds the model and runs it once. Receivers are subscribed before
// the run starts.
func Run(cfg *config.Config, opts sim.Options, receivers ...event.Receiver) (*sim.Result, error) {
	m, err := Build(cfg, opts)
	if err != nil {
		return nil, err
	}
	for _, r := range receivers {
		if _, err := m.Sim.Bus().Subscribe(r); err != nil {
			return nil, err
		}
	}
	return m.Sim.Run()
}

// Outcome is the result of one run of a comparison.
type Outcome struct {
	Strategy engine.Strategy
	Result   *sim.Result
	Trace    int

	// Matches is true when the trace equals the trace of the first outcome.
	Matches bool

	// Certificate holds the default verification properties checked over
	// the run.
	Certificate *verification.ProofCertificate
}

// Compare runs cfg under every strategy and compares the notification
// traces against the sequential one.
func Compare(cfg *config.Config, opts sim.Options) ([]Outcome, error) {
	configs := []engine.Config{
		{Strategy: engine.StrategySequential},
		{Strategy: engine.StrategyPool, Workers: cfg.Engine.Workers},
		{Strategy: engine.StrategyPartitioned, Partitions: cfg.Engine.Partitions},
	}
	var reference []event.Info
	out := make([]Outcome, 0, len(configs))
	for _, ec := range configs {
		ec.MaxEvents = cfg.Engine.MaxEvents
		o := opts
		o.Engine = ec

		log := state.NewInfoLog(0)
		v := verification.NewVerifier(false, verification.DefaultProperties(o.End)...)
		res, err := Run(cfg, o, log, v)
		if err != nil {
			return out, fmt.Errorf("bench: %s: %w", ec.Strategy, err)
		}
		trace := normalize(log.All())
		if reference == nil {
			reference = trace
		}
		out = append(out, Outcome{
			Strategy:    ec.Strategy,
			Result:      res,
			Trace:       len(trace),
			Matches:     sameTrace(reference, trace),
			Certificate: v.Certificate(),
		})
	}
	return out, nil
}

// normalize clears the per-run fields of a trace.
func normalize(trace []event.Info) []event.Info {
	for i := range trace {
		trace[i].SimulationID = ""
	}
	return trace
}

func sameTrace(a, b []event.Info) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Throughput is the number of events dispatched per wall-clock second.
func Throughput(res *sim.Result) float64 {
	wall := res.Engine.WallTime
	if wall <= 0 {
		wall = time.Nanosecond
	}
	return float64(res.Engine.Events) / wall.Seconds()
}
