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

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jazzpetri/flowsim/bench"
	"github.com/jazzpetri/flowsim/context"
	"github.com/jazzpetri/flowsim/event"
	"github.com/jazzpetri/flowsim/state"
	"github.com/jazzpetri/flowsim/verification"
)

// errViolations is returned when a verified run broke an invariant.
var errViolations = errors.New("verification failed")

func (a *app) runCmd() *cobra.Command {
	var verify, showMetrics, showActivities bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured model once per experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			metrics := context.NewMemoryMetrics()

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"#", "Run", "Strategy", "Status", "Events", "Batches", "Created", "Finished", "Last", "Wall", "Events/s"})
			var failed []string
			var reports []state.Report
			for i := 0; i < cfg.Experiments; i++ {
				opts := bench.Options(cfg)
				opts.Logger, opts.Metrics = logger, metrics
				var receivers []event.Receiver
				var v *verification.Verifier
				if verify {
					v = verification.NewVerifier(false, verification.DefaultProperties(opts.End)...)
					receivers = append(receivers, v)
				}
				var stats *state.Statistics
				if showActivities {
					stats = state.NewStatistics()
					receivers = append(receivers, stats)
				}

				logger.Info("experiment started", map[string]interface{}{"experiment": i, "seed": cfg.Seed})
				res, err := bench.Run(cfg, opts, receivers...)
				if res == nil {
					return err
				}
				tw.AppendRow(table.Row{
					i, res.RunID, res.Engine.Strategy, res.Status, res.Engine.Events, res.Engine.Batches,
					res.ElementsCreated, res.ElementsFinished, res.LastTimestamp,
					res.Engine.WallTime.Round(time.Microsecond), fmt.Sprintf("%.0f", bench.Throughput(res)),
				})
				if err != nil {
					failed = append(failed, fmt.Sprintf("experiment %d: %v", i, err))
				}
				if v != nil {
					for _, r := range v.Certificate().Violations() {
						failed = append(failed, fmt.Sprintf("experiment %d: %s: %s", i, r.Property, r.Message))
					}
				}
				if stats != nil {
					reports = append(reports, stats.Report())
				}
				cfg.Seed++
			}
			tw.Render()

			for i, r := range reports {
				printActivities(cmd, i, r)
			}
			if showMetrics {
				printMetrics(cmd, metrics)
			}
			if len(failed) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), strings.Join(failed, "\n"))
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check the default safety properties")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print collected metrics")
	cmd.Flags().BoolVar(&showActivities, "activities", false, "print per-activity waits and service times")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Run the model under every strategy and compare traces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, err := a.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts := bench.Options(cfg)
			opts.Logger = logger
			id := uuid.NewString()
			logger.Info("comparison started", map[string]interface{}{"comparison_id": id})

			outcomes, err := bench.Compare(cfg, opts)
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetTitle("comparison " + id)
			tw.AppendHeader(table.Row{"Strategy", "Events", "Notifications", "Started", "Wall", "Matches", "Verified"})
			mismatch := false
			for _, o := range outcomes {
				tw.AppendRow(table.Row{
					o.Strategy, o.Result.Engine.Events, o.Trace, o.Result.ActivitiesStarted,
					o.Result.Engine.WallTime.Round(time.Microsecond), o.Matches, o.Certificate.AllSatisfied(),
				})
				if !o.Matches || !o.Certificate.AllSatisfied() {
					mismatch = true
				}
			}
			tw.Render()
			if mismatch && cfg.Deterministic() {
				return errors.New("strategies disagree on a deterministic model")
			}
			if mismatch {
				fmt.Fprintln(cmd.ErrOrStderr(), "traces differ: random durations are sampled in strategy-dependent order")
			}
			return nil
		},
	}
}

func printMetrics(cmd *cobra.Command, m *context.MemoryMetrics) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"Metric", "Value"})
	for _, name := range m.Names() {
		tw.AppendRow(table.Row{name, m.Value(name)})
	}
	tw.Render()
}

func printActivities(cmd *cobra.Command, experiment int, r state.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetTitle(fmt.Sprintf("experiment %d activities", experiment))
	tw.AppendHeader(table.Row{"Activity", "Requests", "Starts", "Ends", "Mean wait", "Service"})
	for _, a := range r.Activities {
		tw.AppendRow(table.Row{a.Name, a.Requests, a.Starts, a.Ends, fmt.Sprintf("%.2f", a.MeanWait()), a.TotalService})
	}
	tw.Render()
}
