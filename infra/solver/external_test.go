package solver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/storageopt/core/milp"
	coresolver "github.com/kilianp07/storageopt/core/solver"
)

func knapsack() *milp.Model {
	m := milp.NewModel("knapsack")
	ids, _ := m.AddIndexed("take", 3, 0, 1, milp.Binary)
	m.AddConstraint("capacity", milp.Sum(milp.Lin(ids[0], 2), milp.Lin(ids[1], 3), milp.Lin(ids[2], 1)), milp.LessEqual, milp.Const(5))
	m.SetObjective(milp.LinearObjective(milp.Sum(milp.Lin(ids[0], -5), milp.Lin(ids[1], -4), milp.Lin(ids[2], -3))))
	return m
}

// fakeSolver writes an executable shell script standing in for a solver.
func fakeSolver(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "fake-solver")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExternal_CBCRoundTrip(t *testing.T) {
	exe := fakeSolver(t, `grep -q "Binaries" "$1" || exit 3
cat > "$4" <<'EOF'
Optimal - objective value -9.00000000
      0 take_0                   1                      -5
      1 take_1                   1                      -4
EOF
`)
	s := NewCBC(ExternalConfig{Executable: exe})
	assert.Equal(t, "cbc", s.Name())
	sol, err := s.Solve(context.Background(), knapsack())
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1, 1, 0}, sol.Values)
	assert.InDelta(t, -9, sol.Objective, 1e-9)
}

func TestExternal_InfeasibleWithoutSolutionFile(t *testing.T) {
	exe := fakeSolver(t, "echo 'Problem is infeasible - 0.01 seconds'\n")
	sol, err := NewCBC(ExternalConfig{Executable: exe}).Solve(context.Background(), knapsack())
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())
}

func TestExternal_Failures(t *testing.T) {
	exe := fakeSolver(t, "echo 'license expired' >&2\nexit 2\n")
	_, err := NewHiGHS(ExternalConfig{Executable: exe}).Solve(context.Background(), knapsack())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "license expired")

	_, err = NewSCIP(ExternalConfig{Executable: filepath.Join(t.TempDir(), "missing")}).Solve(context.Background(), knapsack())
	assert.Error(t, err)

	q := knapsack()
	q.SetObjective(q.Objective().Plus(milp.SquareObjective(1, milp.V(0))))
	_, err = NewCBC(ExternalConfig{Executable: exe}).Solve(context.Background(), q)
	assert.ErrorIs(t, err, coresolver.ErrQuadraticUnsupported)
	assert.Contains(t, err.Error(), "linear objectives only")
	assert.Contains(t, err.Error(), "need gonum, scip or cplex")
	_, err = NewHiGHS(ExternalConfig{Executable: exe}).Solve(context.Background(), q)
	assert.ErrorIs(t, err, coresolver.ErrQuadraticUnsupported)
}

func TestExternal_KeepFiles(t *testing.T) {
	exe := fakeSolver(t, `printf 'Model status\nOptimal\n\n# Primal solution values\nFeasible\nObjective -9\n# Columns 3\ntake_0 1\ntake_1 1\ntake_2 0\n# Rows 1\ncapacity 5\n' > "$4"
`)
	dir := t.TempDir()
	sol, err := NewHiGHS(ExternalConfig{Executable: exe, WorkDir: dir, KeepFiles: true}).Solve(context.Background(), knapsack())
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	matches, err := filepath.Glob(filepath.Join(dir, "storageopt-highs-*", "model.lp"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestParsers(t *testing.T) {
	m := knapsack()

	sol, err := parseCBC(strings.NewReader("Infeasible - objective value 0.00000000\n"), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)

	sol, err = parseCBC(strings.NewReader("Stopped on time - objective value -8\n      2 take_2  1  -3\n"), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOther, sol.Status)
	assert.Equal(t, []float64{0, 0, 1}, sol.Values)

	_, err = parseCBC(strings.NewReader("Optimal - objective value 1\n 0 nope 1 0\n"), m)
	assert.Error(t, err)

	sol, err = parseHiGHS(strings.NewReader("Model status\nInfeasible\n\n# Primal solution values\nNone\n"), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())

	scip := `solution status: optimal solution found
objective value:                                   -9
take_0                                              1 	(obj:-5)
take_1                                              1 	(obj:-4)
`
	sol, err = parseSCIP(strings.NewReader(scip), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1, 1, 0}, sol.Values)

	sol, err = parseSCIP(strings.NewReader("solution status: infeasible\nno solution available\n"), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())

	cplex := `<?xml version = "1.0" encoding="UTF-8" standalone="yes"?>
<CPLEXSolution version="1.2">
 <header problemName="model.lp" objectiveValue="-9" solutionStatusValue="101" solutionStatusString="integer optimal solution"/>
 <variables>
  <variable name="take_0" index="0" value="1"/>
  <variable name="take_1" index="1" value="1"/>
  <variable name="take_2" index="2" value="0"/>
 </variables>
</CPLEXSolution>`
	sol, err = parseCPLEX(strings.NewReader(cplex), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1, 1, 0}, sol.Values)

	sol, err = parseCPLEX(strings.NewReader(`<CPLEXSolution><header solutionStatusValue="103" solutionStatusString="integer infeasible"/></CPLEXSolution>`), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
}

func TestEngineRegistration(t *testing.T) {
	for _, name := range []string{"gonum", "cbc", "highs", "scip", "cplex"} {
		assert.Contains(t, coresolver.Engines(), name)
	}
	s, err := coresolver.New(coresolver.Config{Engine: "gonum", Options: map[string]any{"max_nodes": "50"}})
	require.NoError(t, err)
	g, ok := s.(*Gonum)
	require.True(t, ok)
	assert.Equal(t, 50, g.cfg.MaxNodes)

	s, err = coresolver.New(coresolver.Config{Engine: "cbc", Executable: "/opt/cbc"})
	require.NoError(t, err)
	assert.Equal(t, "/opt/cbc", s.(*External).cfg.Executable)
}
