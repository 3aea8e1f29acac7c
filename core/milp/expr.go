// Package milp holds a small algebraic model of a mixed-integer program:
// bounded variables, linear expressions, constraints and an objective made
// of a linear part plus weighted squares of linear expressions. Models are
// always minimised. Solving is left to the engines behind core/solver.
package milp

import (
	"sort"
)

// VarID identifies a variable inside its Model.
type VarID int

// Term is a coefficient applied to one variable.
type Term struct {
	Var  VarID
	Coef float64
}

// Expr is an immutable linear expression Σ coef·var + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Lin returns coef·v.
func Lin(v VarID, coef float64) Expr {
	return Expr{Terms: []Term{{Var: v, Coef: coef}}}
}

// V returns the expression made of v alone.
func V(v VarID) Expr { return Lin(v, 1) }

// Const returns a constant expression.
func Const(c float64) Expr { return Expr{Constant: c} }

// Sum adds expressions together.
func Sum(es ...Expr) Expr {
	var out Expr
	for _, e := range es {
		out = out.Plus(e)
	}
	return out
}

// Plus returns e + o.
func (e Expr) Plus(o Expr) Expr {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, o.Terms...)
	return Expr{Terms: terms, Constant: e.Constant + o.Constant}
}

// Minus returns e - o.
func (e Expr) Minus(o Expr) Expr { return e.Plus(o.Times(-1)) }

// Times scales e by k.
func (e Expr) Times(k float64) Expr {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Var: t.Var, Coef: t.Coef * k}
	}
	return Expr{Terms: terms, Constant: e.Constant * k}
}

// AddConst returns e + c.
func (e Expr) AddConst(c float64) Expr {
	return Expr{Terms: append([]Term(nil), e.Terms...), Constant: e.Constant + c}
}

// Eval computes the value of e for the given assignment indexed by VarID.
func (e Expr) Eval(values []float64) float64 {
	v := e.Constant
	for _, t := range e.Terms {
		v += t.Coef * values[t.Var]
	}
	return v
}

// Normalize merges repeated variables, drops zero coefficients and orders
// terms by variable.
func (e Expr) Normalize() Expr {
	acc := make(map[VarID]float64, len(e.Terms))
	for _, t := range e.Terms {
		acc[t.Var] += t.Coef
	}
	terms := make([]Term, 0, len(acc))
	for v, c := range acc {
		if c != 0 {
			terms = append(terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Var < terms[j].Var })
	return Expr{Terms: terms, Constant: e.Constant}
}

// Coef returns the merged coefficient of v in e.
func (e Expr) Coef(v VarID) float64 {
	var c float64
	for _, t := range e.Terms {
		if t.Var == v {
			c += t.Coef
		}
	}
	return c
}
