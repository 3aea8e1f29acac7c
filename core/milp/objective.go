package milp

import "fmt"

// Square is Weight·(Expr)².
type Square struct {
	Weight float64
	Expr   Expr
}

// Objective is a linear expression plus a sum of weighted squares.
type Objective struct {
	Linear  Expr
	Squares []Square
}

// LinearObjective wraps a linear expression.
func LinearObjective(e Expr) Objective { return Objective{Linear: e} }

// SquareObjective returns weight·e².
func SquareObjective(weight float64, e Expr) Objective {
	return Objective{Squares: []Square{{Weight: weight, Expr: e}}}
}

// Plus returns the sum of two objectives.
func (o Objective) Plus(p Objective) Objective {
	sq := make([]Square, 0, len(o.Squares)+len(p.Squares))
	sq = append(sq, o.Squares...)
	sq = append(sq, p.Squares...)
	return Objective{Linear: o.Linear.Plus(p.Linear), Squares: sq}
}

// IsQuadratic reports whether the objective carries squared terms.
func (o Objective) IsQuadratic() bool { return len(o.Squares) > 0 }

// Convex reports an error when a square carries a negative weight.
func (o Objective) Convex() error {
	for i, s := range o.Squares {
		if s.Weight < 0 {
			return fmt.Errorf("squared term %d has negative weight %v", i, s.Weight)
		}
	}
	return nil
}

// Eval computes the objective value for the assignment.
func (o Objective) Eval(values []float64) float64 {
	v := o.Linear.Eval(values)
	for _, s := range o.Squares {
		x := s.Expr.Eval(values)
		v += s.Weight * x * x
	}
	return v
}

// QuadKey identifies a monomial x_i·x_j with I <= J.
type QuadKey struct{ I, J VarID }

// Expand multiplies the squares out into linear and pairwise coefficients.
// The constant part of the result is returned separately.
func (o Objective) Expand() (linear map[VarID]float64, quad map[QuadKey]float64, constant float64) {
	linear = make(map[VarID]float64)
	quad = make(map[QuadKey]float64)
	lin := o.Linear.Normalize()
	for _, t := range lin.Terms {
		linear[t.Var] += t.Coef
	}
	constant = lin.Constant
	for _, s := range o.Squares {
		e := s.Expr.Normalize()
		w := s.Weight
		for a, ta := range e.Terms {
			quad[QuadKey{ta.Var, ta.Var}] += w * ta.Coef * ta.Coef
			for _, tb := range e.Terms[a+1:] {
				quad[QuadKey{ta.Var, tb.Var}] += 2 * w * ta.Coef * tb.Coef
			}
			linear[ta.Var] += 2 * w * e.Constant * ta.Coef
		}
		constant += w * e.Constant * e.Constant
	}
	return linear, quad, constant
}
