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

// Package config models flowsim.yml, the experiment description read by the
// flowsim command.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jazzpetri/flowsim/clock"
	"github.com/jazzpetri/flowsim/engine"
	"github.com/jazzpetri/flowsim/timefunc"
)

// FileName is the default config file name.
const FileName = "flowsim.yml"

// Patterns accepted by Model.Pattern.
const (
	PatternSequence  = "sequence"
	PatternParallel  = "parallel"
	PatternExclusive = "exclusive"
	PatternMulti     = "multi"
	PatternLoop      = "loop"
)

var patterns = []string{PatternSequence, PatternParallel, PatternExclusive, PatternMulti, PatternLoop}

// Config models flowsim.yml.
type Config struct {
	Name        string `yaml:"name"`
	Horizon     int64  `yaml:"horizon"`
	Unit        string `yaml:"unit"`
	Seed        uint64 `yaml:"seed"`
	Experiments int    `yaml:"experiments"`
	StrictOrder bool   `yaml:"strict_order"`
	Engine      Engine `yaml:"engine"`
	Model       Model  `yaml:"model"`
}

// Engine selects the concurrency strategy.
type Engine struct {
	Strategy   string `yaml:"strategy"`
	Workers    int    `yaml:"workers"`
	Partitions int    `yaml:"partitions"`
	MaxEvents  uint64 `yaml:"max_events"`
}

// Model is the shape of the synthetic benchmark model.
type Model struct {
	Pattern          string       `yaml:"pattern"`
	Activities       int          `yaml:"activities"`
	ResourceTypes    int          `yaml:"resource_types"`
	ResourcesPerType int          `yaml:"resources_per_type"`
	ElementsPerTick  int          `yaml:"elements_per_tick"`
	Period           int64        `yaml:"period"`
	ArrivalsUntil    int64        `yaml:"arrivals_until"`
	Iterations       int          `yaml:"iterations"`
	Duration         Distribution `yaml:"duration"`
}

// Distribution names a timefunc.Factory constructor and its parameters.
type Distribution struct {
	Name   string    `yaml:"name"`
	Params []float64 `yaml:"params"`
}

func (d Distribution) String() string {
	return fmt.Sprintf("%s%v", d.Name, d.Params)
}

// Validate ensures the config is runnable.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("config.horizon must be positive, got %d", c.Horizon)
	}
	if _, err := clock.ParseUnit(c.Unit); err != nil {
		return fmt.Errorf("config.unit: %w", err)
	}
	if c.Experiments < 1 {
		return fmt.Errorf("config.experiments must be at least 1, got %d", c.Experiments)
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("config.engine: %w", err)
	}
	return c.Model.Validate()
}

// Validate checks the model shape.
func (m *Model) Validate() error {
	known := false
	for _, p := range patterns {
		if m.Pattern == p {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("config.model.pattern must be one of %v, got %q", patterns, m.Pattern)
	}
	if m.Activities < 1 {
		return fmt.Errorf("config.model.activities must be at least 1")
	}
	if m.ResourceTypes < 1 {
		return fmt.Errorf("config.model.resource_types must be at least 1")
	}
	if m.ResourcesPerType < 1 {
		return fmt.Errorf("config.model.resources_per_type must be at least 1")
	}
	if m.ElementsPerTick < 1 {
		return fmt.Errorf("config.model.elements_per_tick must be at least 1")
	}
	if m.Period < 1 {
		return fmt.Errorf("config.model.period must be at least 1")
	}
	if m.ArrivalsUntil < 0 {
		return fmt.Errorf("config.model.arrivals_until must not be negative")
	}
	if m.Pattern == PatternLoop && m.Iterations < 1 {
		return fmt.Errorf("config.model.iterations must be at least 1 for the loop pattern")
	}
	if _, err := m.Duration.New(timefunc.NewSource(0)); err != nil {
		return fmt.Errorf("config.model.duration: %w", err)
	}
	return nil
}

// New builds the time function named by d, drawing from src.
func (d Distribution) New(src *timefunc.Source) (timefunc.TimeFunction, error) {
	return timefunc.NewFactory(src).New(d.Name, d.Params...)
}

// TimeUnit returns the parsed unit. Call after Validate.
func (c *Config) TimeUnit() clock.TimeUnit {
	u, _ := clock.ParseUnit(c.Unit)
	return u
}

// EngineConfig returns the engine section as an engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Strategy:   engine.Strategy(c.Engine.Strategy),
		Workers:    c.Engine.Workers,
		Partitions: c.Engine.Partitions,
		MaxEvents:  c.Engine.MaxEvents,
	}
}

// Deterministic reports whether runs of the model produce identical traces
// under every strategy. Random durations share one source, so concurrent
// strategies may sample them in a different order.
func (c *Config) Deterministic() bool {
	return c.Model.Duration.Name == "constant"
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}

// Default returns the default config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses config from raw YAML bytes on top of the defaults and
// validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Encode renders cfg as YAML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const defaultTemplate = `name: single-queue
horizon: 1440
unit: minute
seed: 1
experiments: 1
strict_order: true

engine:
  strategy: sequential
  workers: 8
  partitions: 4
  max_events: 0

model:
  pattern: sequence
  activities: 3
  resource_types: 2
  resources_per_type: 2
  elements_per_tick: 1
  period: 3
  arrivals_until: 0
  iterations: 2
  duration:
    name: constant
    params: [5]
`
