package optimiser

import (
	"fmt"

	"github.com/kilianp07/storageopt/core/milp"
)

// Direction is the side of a regime bound.
type Direction int

const (
	// Upper emits quantity <= limit·indicator.
	Upper Direction = iota
	// Lower emits quantity >= limit·indicator.
	Lower
)

// Indicator is a binary variable, optionally complemented.
type Indicator struct {
	Var     milp.VarID
	Negated bool
}

// On is the indicator b.
func On(b milp.VarID) Indicator { return Indicator{Var: b} }

// Off is the indicator 1 - b.
func Off(b milp.VarID) Indicator { return Indicator{Var: b, Negated: true} }

func (ind Indicator) expr() milp.Expr {
	if ind.Negated {
		return milp.Const(1).Minus(milp.V(ind.Var))
	}
	return milp.V(ind.Var)
}

// regime bounds quantity by limit while the indicator is one and pins it to
// zero on that side while the indicator is zero. With limit set to ±M the
// bound is inactive in the first case.
func (s *State) regime(name string, i int, quantity milp.Expr, ind Indicator, limit float64, dir Direction) {
	sense := milp.LessEqual
	if dir == Lower {
		sense = milp.GreaterEqual
	}
	s.Model.AddConstraint(fmt.Sprintf("%s_%d", name, i), quantity, sense, ind.expr().Times(limit))
}
