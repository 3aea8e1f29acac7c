// Package solver defines the boundary between the optimiser and the engines
// that solve its mixed-integer programs. Engines register themselves by name
// and are selected through Config.
package solver

import (
	"context"
	"errors"

	"github.com/kilianp07/storageopt/core/milp"
)

// Solver solves a model and reports the termination status. Implementations
// must not modify the model.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *milp.Model) (*milp.Solution, error)
}

var (
	// ErrInfeasible reports that the engine proved the model infeasible.
	ErrInfeasible = errors.New("model is infeasible")
	// ErrUnknownEngine is returned by New for unregistered engine names.
	ErrUnknownEngine = errors.New("unknown solver engine")
	// ErrQuadraticUnsupported is returned by engines that only accept
	// linear objectives.
	ErrQuadraticUnsupported = errors.New("engine does not support quadratic objectives")
)

// Describer is implemented by engines that can summarise how they run and
// which objectives they accept.
type Describer interface {
	Describe() string
}

// Func adapts a function to the Solver interface.
type Func struct {
	ID string
	Fn func(ctx context.Context, m *milp.Model) (*milp.Solution, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Solve(ctx context.Context, m *milp.Model) (*milp.Solution, error) {
	return f.Fn(ctx, m)
}
