package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/storageopt/core/factory"
	"github.com/kilianp07/storageopt/core/milp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Env(t *testing.T) {
	env := map[string]string{EnvEngine: " cbc ", EnvExecutable: "/opt/cbc/bin/cbc"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	c := Config{Engine: "gonum"}.withLookup(lookup)
	assert.Equal(t, "cbc", c.Engine)
	assert.Equal(t, "/opt/cbc/bin/cbc", c.Executable)

	c = Config{Engine: "highs", Executable: "highs"}.withLookup(func(string) (string, bool) { return "", false })
	assert.Equal(t, "highs", c.Engine)
	assert.Equal(t, "highs", c.Executable)

	var d Config
	require.Error(t, d.Validate())
	d.SetDefaults()
	assert.Equal(t, DefaultEngine, d.Engine)
	require.NoError(t, d.Validate())
}

func TestNew_RegisteredEngine(t *testing.T) {
	var got map[string]any
	require.NoError(t, Register("test-engine", func(conf map[string]any) (Solver, error) {
		got = conf
		return Func{ID: "test-engine", Fn: func(context.Context, *milp.Model) (*milp.Solution, error) {
			return &milp.Solution{Status: milp.StatusOptimal}, nil
		}}, nil
	}))
	s, err := New(Config{Engine: "test-engine", Executable: "/bin/x", Options: map[string]any{"threads": 2}})
	require.NoError(t, err)
	assert.Equal(t, "test-engine", s.Name())
	assert.Equal(t, "/bin/x", got["executable"])
	assert.Equal(t, 2, got["threads"])
	assert.Contains(t, Engines(), "test-engine")

	sol, err := s.Solve(context.Background(), milp.NewModel("m"))
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, sol.Status)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Engine: "does-not-exist"})
	assert.True(t, errors.Is(err, ErrUnknownEngine))

	boom := errors.New("boom")
	require.NoError(t, Register("broken-engine", func(map[string]any) (Solver, error) { return nil, boom }))
	_, err = New(Config{Engine: "broken-engine"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, factory.ErrUnknownModule))
}
