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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/flowsim/config"
)

const testConfig = `name: cli
horizon: 120
model:
  arrivals_until: 30
  resources_per_type: 3
`

// execute runs the command line against a fresh viper instance.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(viper.New())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCommand(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, _, err := execute(t, "run", "--config", path, "--experiments", "2", "--verify", "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "STRATEGY")
	assert.Contains(t, out, "sequential")
	assert.Equal(t, 2, strings.Count(out, "completed"))
	assert.Contains(t, out, "sim_elements_created_total")
	assert.Contains(t, out, "engine_events_total")
}

func TestRunCommand_Activities(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, _, err := execute(t, "run", "--config", path, "--activities")
	require.NoError(t, err)

	assert.Contains(t, out, "experiment 0 activities")
	assert.Contains(t, out, "MEAN WAIT")
	for _, name := range []string{"activity-0", "activity-1", "activity-2"} {
		assert.Contains(t, out, name)
	}
}

func TestRunCommand_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, _, err := execute(t, "run", "--config", path, "--strategy", "partitioned", "--partitions", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "partitioned")
}

func TestRunCommand_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, testConfig)
	t.Setenv("FLOWSIM_STRATEGY", "pool")
	t.Setenv("FLOWSIM_PATTERN", "parallel")
	out, _, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: pool")
	assert.Contains(t, out, "pattern: parallel")
	assert.Contains(t, out, "horizon: 120")
}

func TestRunCommand_InvalidOverride(t *testing.T) {
	path := writeConfig(t, testConfig)
	_, _, err := execute(t, "run", "--config", path, "--strategy", "magic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.engine")

	_, _, err = execute(t, "run", "--config", path, "--log-level", "loud")
	require.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, _, err := execute(t, "compare", "--config", path)
	require.NoError(t, err)
	for _, s := range []string{"sequential", "pool", "partitioned"} {
		assert.Contains(t, out, s)
	}
	assert.NotContains(t, out, "false")
}

func TestGraphCommand(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, _, err := execute(t, "graph", "--config", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph"))

	out, _, err = execute(t, "graph", "--config", path, "--format", "mermaid", "--pattern", "parallel")
	require.NoError(t, err)
	assert.Contains(t, out, "graph")

	_, _, err = execute(t, "graph", "--config", path, "--format", "svg")
	require.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "config", "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, config.Path(dir))

	cfg, err := config.FromFile(config.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, _, err = execute(t, "config", "init", "--dir", dir)
	require.Error(t, err, "existing file needs --force")
	_, _, err = execute(t, "config", "init", "--dir", dir, "--force")
	require.NoError(t, err)
}
