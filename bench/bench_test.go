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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/config"
	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/event"
	"github.com/jazzpetri/flowsim/sim"
	"github.com/jazzpetri/flowsim/state"
)

func small(pattern string) *config.Config {
	cfg := config.Default()
	cfg.Horizon = 200
	cfg.Model.Pattern = pattern
	cfg.Model.ArrivalsUntil = 60
	cfg.Model.ResourcesPerType = 4
	return cfg
}

func TestBuild_Shape(t *testing.T) {
	cfg := small(config.PatternSequence)
	m, err := Build(cfg, Options(cfg))
	require.NoError(t, err)

	assert.Len(t, m.Activities, 3)
	assert.Len(t, m.Sim.ResourceTypes(), 2)
	assert.Len(t, m.Sim.Resources(), 8)
	assert.Equal(t, clock.Time(200), m.Sim.Options().End)
	assert.Equal(t, "single-queue", m.Sim.Options().Name)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := small(config.PatternSequence)
	cfg.Model.Activities = 0
	_, err := Build(cfg, Options(cfg))
	require.Error(t, err)
}

func TestRun_Patterns(t *testing.T) {
	tests := []struct {
		pattern string
		// activity starts per element
		perElement func(id uint64) int
	}{
		{config.PatternSequence, func(uint64) int { return 3 }},
		{config.PatternParallel, func(uint64) int { return 3 }},
		{config.PatternLoop, func(uint64) int { return 6 }},
		{config.PatternExclusive, func(uint64) int { return 1 }},
		{config.PatternMulti, func(id uint64) int {
			n := 0
			for k := uint64(1); k <= 3; k++ {
				if id%k == 0 {
					n++
				}
			}
			return n
		}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			cfg := small(tt.pattern)
			log := state.NewInfoLog(0, event.KindActivityStart, event.KindElementFinish)
			res, err := Run(cfg, Options(cfg), log)
			require.NoError(t, err)
			require.Equal(t, sim.StatusCompleted, res.Status)

			// 20 arrivals over [0, 60), all finished well before 200.
			assert.Equal(t, uint64(20), res.ElementsCreated)
			assert.Equal(t, uint64(20), res.ElementsFinished)

			want := map[uint64]int{}
			for id := uint64(1); id <= 20; id++ {
				want[id] = tt.perElement(id)
			}
			got := map[uint64]int{}
			for _, info := range log.ByKind(event.KindActivityStart) {
				got[info.ElementID]++
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestCompare_StrategiesAgree(t *testing.T) {
	for _, pattern := range []string{config.PatternSequence, config.PatternParallel, config.PatternMulti} {
		t.Run(pattern, func(t *testing.T) {
			cfg := small(pattern)
			cfg.Model.ElementsPerTick = 3
			outcomes, err := Compare(cfg, Options(cfg))
			require.NoError(t, err)
			require.Len(t, outcomes, 3)

			assert.Equal(t, engine.StrategySequential, outcomes[0].Strategy)
			for _, o := range outcomes {
				assert.True(t, o.Matches, o.Strategy)
				assert.True(t, o.Certificate.AllSatisfied(), "%s: %+v", o.Strategy, o.Certificate.Violations())
				assert.Equal(t, outcomes[0].Trace, o.Trace)
				assert.Equal(t, outcomes[0].Result.ActivitiesStarted, o.Result.ActivitiesStarted)
			}
		})
	}
}

func TestThroughput(t *testing.T) {
	cfg := small(config.PatternSequence)
	res, err := Run(cfg, Options(cfg))
	require.NoError(t, err)
	assert.Positive(t, Throughput(res))
}

func benchmarkPattern(b *testing.B, pattern string, ec engine.Config) {
	cfg := config.Default()
	cfg.Horizon = 2000
	cfg.Model.Pattern = pattern
	cfg.Model.ElementsPerTick = 4
	cfg.Model.ResourcesPerType = 8
	opts := Options(cfg)
	opts.Engine = ec

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Run(cfg, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSequence_Sequential(b *testing.B) {
	benchmarkPattern(b, config.PatternSequence, engine.DefaultConfig())
}

func BenchmarkSequence_Pool(b *testing.B) {
	benchmarkPattern(b, config.PatternSequence, engine.Config{Strategy: engine.StrategyPool, Workers: 8})
}

func BenchmarkSequence_Partitioned(b *testing.B) {
	benchmarkPattern(b, config.PatternSequence, engine.Config{Strategy: engine.StrategyPartitioned, Partitions: 4})
}

func BenchmarkParallel_Pool(b *testing.B) {
	benchmarkPattern(b, config.PatternParallel, engine.Config{Strategy: engine.StrategyPool, Workers: 8})
}
