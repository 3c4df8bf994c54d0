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

// Command flowsim runs synthetic simulation models described by flowsim.yml
// and reports engine throughput.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jazzpetri/flowsim/config"
	"github.com/jazzpetri/flowsim/context"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries the state shared by the commands.
type app struct {
	v *viper.Viper
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	a := &app{v: v}
	root := &cobra.Command{
		Use:   "flowsim",
		Short: "Discrete-event workflow simulation",
		Long: `flowsim builds a synthetic workflow model from flowsim.yml and simulates it.
- Elements arrive periodically and follow a workflow pattern over activities.
- Activities compete for resources of typed pools.
- The engine runs sequentially, on a worker pool or on partitioned logical processes.
Flags override the file; FLOWSIM_* environment variables override both defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	v.SetEnvPrefix("FLOWSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default ./"+config.FileName+" when present)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Int64("horizon", 0, "simulation horizon")
	flags.String("strategy", "", "engine strategy: sequential, pool, partitioned")
	flags.Int("workers", 0, "pool workers")
	flags.Int("partitions", 0, "logical processes of the partitioned strategy")
	flags.Int("experiments", 0, "number of runs")
	flags.Uint64("seed", 0, "random seed")
	flags.String("pattern", "", "workflow pattern: sequence, parallel, exclusive, multi, loop")
	flags.Uint64("max-events", 0, "abort a run after this many events")
	for _, name := range []string{"config", "log-level", "horizon", "strategy", "workers", "partitions", "experiments", "seed", "pattern", "max-events"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(a.runCmd())
	root.AddCommand(a.compareCmd())
	root.AddCommand(a.graphCmd())
	root.AddCommand(a.configCmd())
	return root
}

// loadConfig reads the config file and applies flag and environment
// overrides.
func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := a.v.GetString("config"); path != "" {
		cfg, err = config.FromFile(path)
	} else {
		cfg, err = config.LoadOptional(config.Path("."))
	}
	if err != nil {
		return nil, err
	}
	if a.v.IsSet("horizon") {
		cfg.Horizon = a.v.GetInt64("horizon")
	}
	if a.v.IsSet("strategy") {
		cfg.Engine.Strategy = a.v.GetString("strategy")
	}
	if a.v.IsSet("workers") {
		cfg.Engine.Workers = a.v.GetInt("workers")
	}
	if a.v.IsSet("partitions") {
		cfg.Engine.Partitions = a.v.GetInt("partitions")
	}
	if a.v.IsSet("experiments") {
		cfg.Experiments = a.v.GetInt("experiments")
	}
	if a.v.IsSet("seed") {
		cfg.Seed = a.v.GetUint64("seed")
	}
	if a.v.IsSet("pattern") {
		cfg.Model.Pattern = a.v.GetString("pattern")
	}
	if a.v.IsSet("max-events") {
		cfg.Engine.MaxEvents = a.v.GetUint64("max-events")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) logger(w io.Writer) (context.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return context.NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))), nil
}
