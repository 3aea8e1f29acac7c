package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/storageopt/app"
	"github.com/kilianp07/storageopt/core/optimiser"
	"github.com/kilianp07/storageopt/core/runlog"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestObjectivesCommand(t *testing.T) {
	out, err := execute(t, "objectives")
	require.NoError(t, err)
	assert.Contains(t, out, "btm:\n")
	assert.Contains(t, out, "  connection_point_cost\n")
	assert.Contains(t, out, "  local_models: local_models_cost, throughput_cost, equal_storage_actions\n")
}

func TestEnginesCommand(t *testing.T) {
	out, err := execute(t, "engines")
	require.NoError(t, err)
	assert.Contains(t, out, "gonum")
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "cbc: cbc process, linear objectives only")
	assert.Contains(t, out, "highs: highs process, squared objective terms on models without binaries only")
}

const scenarioYAML = `
name: cli
interval_minutes: 30
objectives: [connection_point_cost, stored_energy_value]
big_m: 100
storage:
  max_capacity: 10
  charging_power_limit: 10
  discharging_power_limit: -10
  charging_efficiency: 1
  discharging_efficiency: 1
  stored_energy_value: 0.2
demand: [1, 1]
generation: [-2, 0]
tariff:
  import: [0.3, 0.3]
  export: [0.05, 0.05]
`

func TestRunThenQueryRuns(t *testing.T) {
	t.Setenv("OPTIMISER_ENGINE", "")
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	cfg := "run_log:\n  path: " + filepath.Join(dir, "runs.jsonl") + "\nrunner:\n  output_dir: " + filepath.Join(dir, "out") + "\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o644))
	scen := filepath.Join(dir, "cli.yaml")
	require.NoError(t, os.WriteFile(scen, []byte(scenarioYAML), 0o644))

	out, err := execute(t, "-c", cfgFile, "run", scen, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "SCENARIO")
	assert.Regexp(t, `cli\s+ok`, out)
	assert.Contains(t, out, "SELF_SUFFICIENCY")
	assert.FileExists(t, filepath.Join(dir, "out", "cli.json"))

	out, err = execute(t, "-c", cfgFile, "runs", "--status", "ok", "--since", "1h", "--json")
	require.NoError(t, err)
	var recs []runlog.Record
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var r runlog.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		recs = append(recs, r)
	}
	require.Len(t, recs, 1)
	assert.Equal(t, "cli", recs[0].Scenario)
	assert.Equal(t, "gonum", recs[0].Engine)

	_, err = execute(t, "-c", cfgFile, "runs", "--status", "pending", "--json")
	assert.Error(t, err)
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := parseSince("90m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-90*time.Minute), got)

	got, err = parseSince("2024-02-01T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseSince("yesterday", now)
	assert.Error(t, err)
}

func TestPrintOutcomes(t *testing.T) {
	res := &optimiser.Result{
		Variant:   optimiser.BTM,
		Objective: 0.5,
		Intervals: 2,
		Series: map[string][]float64{
			optimiser.BTMNetImport: {2, 0},
			optimiser.BTMNetExport: {0, -1},
		},
		Params: map[string][]float64{
			optimiser.ParamDemand:        {2, 1},
			optimiser.ParamGenerationMax: {0, -2},
			optimiser.ParamImportTariff:  {0.3, 0.3},
			optimiser.ParamExportTariff:  {0.1, 0.1},
		},
	}
	outs := []app.Outcome{
		{Scenario: "site-a", Status: runlog.StatusOK, Result: res, Files: []string{"a.json"}},
		{Scenario: "site-b", Status: runlog.StatusFailed, Err: errors.New("boom")},
	}
	var buf bytes.Buffer
	require.NoError(t, printOutcomes(&buf, outs))
	out := buf.String()
	assert.Regexp(t, `site-a\s+ok\s+0\.5\s+2\s+-1\s+0\.5\s+0\.3333\s+1\s`, out)
	assert.Regexp(t, `site-b\s+failed(\s+-){5}\s+0\s+boom`, out)
}
