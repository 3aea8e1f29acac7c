// Package solver provides the engines registered with core/solver: an
// in-process branch and bound engine over a dual simplex and engines
// driving external MILP solvers through LP files.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/storageopt/core/milp"
)

// GonumConfig tunes the in-process engine.
type GonumConfig struct {
	MaxNodes int `json:"max_nodes"`
	// TimeLimitSeconds bounds the wall-clock time of one solve. The best
	// schedule found so far is returned with a non-optimal status when it
	// runs out.
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	// RelativeGap prunes nodes whose relaxation cannot improve the
	// incumbent by more than this fraction of its objective.
	RelativeGap          float64 `json:"relative_gap"`
	Tolerance            float64 `json:"tolerance"`
	FeasibilityTolerance float64 `json:"feasibility_tolerance"`
	IntegralityTolerance float64 `json:"integrality_tolerance"`
	// SquareSegments is the number of geometric breakpoints placed on each
	// side of zero when squared objective terms are linearised.
	SquareSegments int `json:"square_segments"`
	// Range bounds expressions with infinite bounds when the model carries
	// no Magnitude.
	Range float64 `json:"range"`
}

func (c *GonumConfig) setDefaults() {
	if c.MaxNodes <= 0 {
		c.MaxNodes = 20000
	}
	if c.TimeLimitSeconds <= 0 {
		c.TimeLimitSeconds = 60
	}
	if c.RelativeGap <= 0 {
		c.RelativeGap = 1e-6
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-9
	}
	if c.FeasibilityTolerance <= 0 {
		c.FeasibilityTolerance = 1e-7
	}
	if c.IntegralityTolerance <= 0 {
		c.IntegralityTolerance = 1e-6
	}
	if c.SquareSegments <= 0 {
		c.SquareSegments = 8
	}
	if c.Range <= 0 {
		c.Range = 1e4
	}
}

// solveLP solves the relaxation held by a dualSimplex. Tests replace it to
// simulate numerical failures.
var solveLP = (*dualSimplex).solve

// Gonum solves models in process with a bounded dual simplex and
// depth-first branch and bound over the binary variables. The tableau is
// kept between nodes, so each node only repairs the bounds its branch
// changed. Squared objective terms are replaced by the piecewise-linear
// interpolation of the square through geometric breakpoints, which keeps
// zero as the unique minimiser of each square.
//
// The tableau is dense: a day of half-hourly intervals is a few thousand
// columns and solves in seconds, longer horizons belong on an external
// engine. A node whose relaxation fails numerically is dropped and the
// solve reports a non-optimal status instead of an error.
type Gonum struct {
	cfg GonumConfig
}

// NewGonum returns an engine with cfg, unset fields taking defaults.
func NewGonum(cfg GonumConfig) *Gonum {
	cfg.setDefaults()
	return &Gonum{cfg: cfg}
}

func (g *Gonum) Name() string { return "gonum" }

// Describe implements core/solver.Describer.
func (g *Gonum) Describe() string {
	return fmt.Sprintf("in process, squared objective terms linearised, %gs time limit", g.cfg.TimeLimitSeconds)
}

// Solve implements core/solver.Solver.
func (g *Gonum) Solve(ctx context.Context, m *milp.Model) (*milp.Solution, error) {
	if err := m.Objective().Convex(); err != nil {
		return nil, err
	}
	p := g.linearise(m)
	sol, err := g.branchAndBound(ctx, p, g.span(m))
	if err != nil {
		return nil, err
	}
	if sol.HasValues() {
		sol.Values = sol.Values[:m.NumVars()]
		for i, v := range m.Vars() {
			if v.Domain == milp.Binary {
				sol.Values[i] = math.Round(sol.Values[i])
			}
		}
		sol.Objective = m.Objective().Eval(sol.Values)
	}
	return sol, nil
}

func (g *Gonum) span(m *milp.Model) float64 {
	if m.Magnitude > 0 {
		return m.Magnitude
	}
	return g.cfg.Range
}

type row struct {
	idx   []int
	coef  []float64
	sense milp.Sense
	rhs   float64
}

// problem is a linear model over the model variables followed by the
// segment columns of the linearised squares.
type problem struct {
	cost     []float64
	lower    []float64
	upper    []float64
	binary   []bool
	rows     []row
	constant float64
}

func exprRow(e milp.Expr, sense milp.Sense, rhs float64) row {
	e = e.Normalize()
	r := row{sense: sense, rhs: rhs - e.Constant}
	for _, t := range e.Terms {
		r.idx = append(r.idx, int(t.Var))
		r.coef = append(r.coef, t.Coef)
	}
	return r
}

func (p *problem) addColumn(cost, lo, hi float64) int {
	p.cost = append(p.cost, cost)
	p.lower = append(p.lower, lo)
	p.upper = append(p.upper, hi)
	p.binary = append(p.binary, false)
	return len(p.cost) - 1
}

func (g *Gonum) linearise(m *milp.Model) *problem {
	n := m.NumVars()
	p := &problem{
		cost:   make([]float64, n),
		lower:  make([]float64, n),
		upper:  make([]float64, n),
		binary: make([]bool, n),
	}
	for i, v := range m.Vars() {
		p.lower[i], p.upper[i] = v.Lower, v.Upper
		p.binary[i] = v.Domain == milp.Binary
	}
	for _, c := range m.Constraints() {
		p.rows = append(p.rows, exprRow(c.Expr, c.Sense, c.RHS))
	}
	obj := m.Objective()
	lin := obj.Linear.Normalize()
	for _, t := range lin.Terms {
		p.cost[t.Var] += t.Coef
	}
	p.constant = lin.Constant

	span := g.span(m)
	for _, sq := range obj.Squares {
		e := sq.Expr.Normalize()
		if sq.Weight == 0 {
			continue
		}
		if len(e.Terms) == 0 {
			p.constant += sq.Weight * e.Constant * e.Constant
			continue
		}
		lo, hi := p.exprRange(e, span)
		pts := breakpoints(lo, hi, g.cfg.SquareSegments)
		p.constant += sq.Weight * pts[0] * pts[0]
		if len(pts) == 1 {
			continue
		}
		// e = p0 + Σ s_k with s_k in [0, p_k+1 - p_k]. Slopes grow with k, so
		// the segments fill in order and the cost interpolates the square.
		r := exprRow(e, milp.Equal, pts[0])
		for k := 0; k+1 < len(pts); k++ {
			a, b := pts[k], pts[k+1]
			r.idx = append(r.idx, p.addColumn(sq.Weight*(a+b), 0, b-a))
			r.coef = append(r.coef, -1)
		}
		p.rows = append(p.rows, r)
	}
	return p
}

// exprRange bounds e over the variable box, replacing infinite ends by
// span scaled with the coefficient mass of e.
func (p *problem) exprRange(e milp.Expr, span float64) (float64, float64) {
	lo, hi := e.Constant, e.Constant
	var mass float64
	for _, t := range e.Terms {
		l, u := p.lower[t.Var]*t.Coef, p.upper[t.Var]*t.Coef
		if t.Coef < 0 {
			l, u = u, l
		}
		lo += l
		hi += u
		mass += math.Abs(t.Coef)
	}
	if math.IsInf(lo, 0) || math.IsNaN(lo) {
		lo = e.Constant - span*mass
	}
	if math.IsInf(hi, 0) || math.IsNaN(hi) {
		hi = e.Constant + span*mass
	}
	return lo, hi
}

// breakpoints places geometric points from the value closest to zero
// towards both ends of [lo, hi].
func breakpoints(lo, hi float64, segments int) []float64 {
	if hi <= lo {
		return []float64{lo}
	}
	c := math.Min(math.Max(0, lo), hi)
	pts := []float64{lo, hi, c}
	f := 1.0
	for k := 0; k < segments; k++ {
		pts = append(pts, c+(hi-c)*f, c-(c-lo)*f)
		f /= 2
	}
	sort.Float64s(pts)
	out := pts[:1]
	for _, v := range pts[1:] {
		if v-out[len(out)-1] > 1e-9*math.Max(1, math.Abs(v)) {
			out = append(out, v)
		}
	}
	return out
}

type node struct {
	lower []float64
	upper []float64
}

func (g *Gonum) branchAndBound(ctx context.Context, p *problem, span float64) (*milp.Solution, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(g.cfg.TimeLimitSeconds * float64(time.Second)))
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	var bins []int
	for j, b := range p.binary {
		if b {
			bins = append(bins, j)
		}
	}
	root := node{lower: make([]float64, len(bins)), upper: make([]float64, len(bins))}
	for k, j := range bins {
		root.lower[k], root.upper[k] = p.lower[j], p.upper[j]
	}
	lp := newDualSimplex(p, 1e3*span, g.cfg.FeasibilityTolerance, g.cfg.Tolerance)

	stack := []node{root}
	var (
		best      []float64
		bestObj   = math.Inf(1)
		nodes     int
		troubled  int
		unbounded bool
		limit     string
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if nodes >= g.cfg.MaxNodes {
			limit = fmt.Sprintf("node limit %d", g.cfg.MaxNodes)
			break
		}
		if time.Now().After(deadline) {
			limit = fmt.Sprintf("time limit %s", time.Since(start).Round(time.Millisecond))
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		for k, j := range bins {
			if lp.lower[j] != nd.lower[k] || lp.upper[j] != nd.upper[k] {
				lp.setBounds(j, nd.lower[k], nd.upper[k])
			}
		}
		st, err := solveLP(lp, deadline)
		if errors.Is(err, errDeadline) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			limit = fmt.Sprintf("time limit %s", time.Since(start).Round(time.Millisecond))
			break
		}
		if err != nil {
			troubled++
			continue
		}
		switch st {
		case lpInfeasible:
			continue
		case lpUnbounded:
			unbounded = true
			continue
		}
		obj := lp.objective() + p.constant
		if best != nil && obj >= bestObj-g.cfg.RelativeGap*math.Max(1, math.Abs(bestObj)) {
			continue
		}
		x := lp.values()
		j := mostFractional(x, p.binary, g.cfg.IntegralityTolerance)
		if j < 0 {
			best, bestObj = x, obj
			continue
		}
		k := sort.SearchInts(bins, j)
		down := node{lower: append([]float64(nil), nd.lower...), upper: append([]float64(nil), nd.upper...)}
		down.upper[k] = 0
		up := node{lower: append([]float64(nil), nd.lower...), upper: append([]float64(nil), nd.upper...)}
		up.lower[k] = 1
		// The child nearest the relaxed value is explored first.
		if x[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	switch {
	case limit != "" && best == nil:
		return &milp.Solution{Status: milp.StatusOther, Message: fmt.Sprintf("%s reached after %d nodes without a feasible point", limit, nodes)}, nil
	case limit != "":
		return &milp.Solution{Status: milp.StatusOther, Values: best, Message: fmt.Sprintf("%s reached after %d nodes", limit, nodes)}, nil
	case troubled > 0:
		return &milp.Solution{Status: milp.StatusOther, Values: best, Message: fmt.Sprintf("numerical trouble at %d of %d nodes", troubled, nodes)}, nil
	case unbounded:
		return &milp.Solution{Status: milp.StatusOther, Values: best, Message: "relaxation unbounded"}, nil
	case best == nil:
		return &milp.Solution{Status: milp.StatusInfeasible, Message: fmt.Sprintf("infeasible after %d nodes", nodes)}, nil
	}
	return &milp.Solution{Status: milp.StatusOptimal, Values: best, Message: fmt.Sprintf("optimal after %d nodes", nodes)}, nil
}

func mostFractional(x []float64, binary []bool, tol float64) int {
	idx, dist := -1, tol
	for j, b := range binary {
		if !b {
			continue
		}
		f := math.Abs(x[j] - math.Round(x[j]))
		if f > dist {
			idx, dist = j, f
		}
	}
	return idx
}
