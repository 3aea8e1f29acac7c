package solver

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/storageopt/core/milp"
)

var (
	errNumerical = errors.New("numerical trouble")
	errDeadline  = errors.New("time limit reached")
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

type columnState uint8

const (
	basic columnState = iota
	atLower
	atUpper
	// atZero holds a free column that has no bound to sit at.
	atZero
)

const (
	pivotTolerance    = 1e-9
	residualTolerance = 1e-6
	// blandAfter is the number of consecutive degenerate pivots after
	// which the smallest-index rule takes over.
	blandAfter = 100
	// refactorEvery bounds the pivots applied to the tableau between two
	// factorisations of the basis.
	refactorEvery = 10000
)

// dualSimplex is a bounded dual simplex over a dense tableau. Rows are
// scaled to a unit largest coefficient and each gets a slack column, so
// a·x + s = b with the slack bounds carrying the row sense. Nonbasic
// columns sit at the bound matching the sign of their reduced cost, which
// keeps the tableau dual feasible across bound changes: branch and bound
// only has to restore primal feasibility at each node. Infinite bounds a
// reduced cost points at are replaced by ±big; a column left there at the
// optimum flags an unbounded relaxation.
type dualSimplex struct {
	m, n, cols int
	rows       []row
	rhs        []float64
	cost       []float64
	lower      []float64
	upper      []float64
	big        float64
	tolP, tolD float64
	maxIter    int

	tab    [][]float64
	d      []float64
	x      []float64
	head   []int
	state  []columnState
	pivots int
	nz     []int
}

func newDualSimplex(p *problem, big, tolP, tolD float64) *dualSimplex {
	m, n := len(p.rows), len(p.cost)
	s := &dualSimplex{
		m:     m,
		n:     n,
		cols:  n + m,
		rows:  make([]row, m),
		rhs:   make([]float64, m),
		cost:  make([]float64, n+m),
		lower: make([]float64, n+m),
		upper: make([]float64, n+m),
		big:   big,
		tolP:  tolP,
		tolD:  tolD,
		tab:   make([][]float64, m),
		d:     make([]float64, n+m),
		x:     make([]float64, n+m),
		head:  make([]int, m),
		state: make([]columnState, n+m),
	}
	s.maxIter = 50*(n+m) + 1000
	copy(s.cost, p.cost)
	copy(s.lower, p.lower)
	copy(s.upper, p.upper)
	for i, r := range p.rows {
		scale := 0.0
		for _, a := range r.coef {
			scale = math.Max(scale, math.Abs(a))
		}
		if scale == 0 {
			scale = 1
		}
		sr := row{idx: r.idx, coef: make([]float64, len(r.coef)), sense: r.sense}
		for k, a := range r.coef {
			sr.coef[k] = a / scale
		}
		s.rows[i], s.rhs[i] = sr, r.rhs/scale
		j := n + i
		switch r.sense {
		case milp.LessEqual:
			s.lower[j], s.upper[j] = 0, math.Inf(1)
		case milp.GreaterEqual:
			s.lower[j], s.upper[j] = math.Inf(-1), 0
		default:
			s.lower[j], s.upper[j] = 0, 0
		}
		s.tab[i] = make([]float64, n+m)
	}
	s.cold()
	return s
}

// cold restarts from the slack basis.
func (s *dualSimplex) cold() {
	for i, r := range s.rows {
		t := s.tab[i]
		clear(t)
		for k, j := range r.idx {
			t[j] += r.coef[k]
		}
		t[s.n+i] = 1
		s.head[i] = s.n + i
	}
	copy(s.d, s.cost)
	for j := 0; j < s.n; j++ {
		s.state[j] = s.place(j)
		s.x[j] = s.bound(j, s.state[j])
	}
	for i, r := range s.rows {
		v := s.rhs[i]
		for k, j := range r.idx {
			v -= r.coef[k] * s.x[j]
		}
		s.state[s.n+i] = basic
		s.x[s.n+i] = v
	}
	s.pivots = 0
}

// bound is the value of column j in a nonbasic state.
func (s *dualSimplex) bound(j int, st columnState) float64 {
	switch st {
	case atLower:
		if math.IsInf(s.lower[j], -1) {
			return -s.big
		}
		return s.lower[j]
	case atUpper:
		if math.IsInf(s.upper[j], 1) {
			return s.big
		}
		return s.upper[j]
	}
	return 0
}

// place picks the nonbasic state the reduced cost of column j calls for.
func (s *dualSimplex) place(j int) columnState {
	switch {
	case s.d[j] > s.tolD:
		return atLower
	case s.d[j] < -s.tolD:
		return atUpper
	case !math.IsInf(s.lower[j], -1):
		return atLower
	case !math.IsInf(s.upper[j], 1):
		return atUpper
	}
	return atZero
}

func (s *dualSimplex) fixed(j int) bool { return s.lower[j] == s.upper[j] }

// misplaced reports a nonbasic column whose reduced cost has the wrong
// sign for the bound it sits at.
func (s *dualSimplex) misplaced(j int) bool {
	switch s.state[j] {
	case atLower:
		return s.d[j] < -s.tolD && !s.fixed(j)
	case atUpper:
		return s.d[j] > s.tolD && !s.fixed(j)
	case atZero:
		return math.Abs(s.d[j]) > s.tolD
	}
	return false
}

// move puts nonbasic column j in state st and carries the change of its
// value through the basic columns.
func (s *dualSimplex) move(j int, st columnState) {
	v := s.bound(j, st)
	delta := v - s.x[j]
	s.state[j], s.x[j] = st, v
	if delta == 0 {
		return
	}
	for i, t := range s.tab {
		if a := t[j]; a != 0 {
			s.x[s.head[i]] -= delta * a
		}
	}
}

// setBounds changes the bounds of structural column j.
func (s *dualSimplex) setBounds(j int, lo, hi float64) {
	s.lower[j], s.upper[j] = lo, hi
	if s.state[j] != basic {
		s.move(j, s.place(j))
	}
}

// solve runs the dual simplex from the current basis. A failed run is
// retried after refactoring the basis and then from the slack basis; the
// next call starts cold when both retries fail.
func (s *dualSimplex) solve(deadline time.Time) (lpStatus, error) {
	st, err := s.run(deadline)
	if s.settled(st, err) {
		return st, err
	}
	if s.refactor() == nil {
		if st, err = s.run(deadline); s.settled(st, err) {
			return st, err
		}
	}
	s.cold()
	if st, err = s.run(deadline); s.settled(st, err) {
		return st, err
	}
	s.cold()
	if err == nil {
		err = fmt.Errorf("%w: residual %.3g", errNumerical, s.residual())
	}
	return 0, err
}

func (s *dualSimplex) settled(st lpStatus, err error) bool {
	if err != nil {
		return errors.Is(err, errDeadline)
	}
	return st != lpOptimal || s.residual() <= residualTolerance
}

func (s *dualSimplex) run(deadline time.Time) (lpStatus, error) {
	var degenerate int
	for iter := 0; ; iter++ {
		if iter >= s.maxIter {
			return 0, fmt.Errorf("%w: %d iterations", errNumerical, iter)
		}
		if iter%64 == 0 && !deadline.IsZero() && time.Now().After(deadline) {
			return 0, errDeadline
		}
		if s.pivots >= refactorEvery {
			if err := s.refactor(); err != nil {
				return 0, err
			}
		}
		bland := degenerate > blandAfter
		r, delta := s.leaving(bland)
		if r < 0 {
			if s.onArtificialBound() {
				return lpUnbounded, nil
			}
			return lpOptimal, nil
		}
		q, err := s.entering(r, delta, bland)
		if err != nil {
			return 0, err
		}
		if q < 0 {
			j := s.head[r]
			if (delta < 0 && math.IsInf(s.lower[j], -1)) || (delta > 0 && math.IsInf(s.upper[j], 1)) {
				return 0, fmt.Errorf("%w: column %d beyond %.3g", errNumerical, j, s.big)
			}
			return lpInfeasible, nil
		}
		if math.Abs(s.d[q]/s.tab[r][q]) <= s.tolD {
			degenerate++
		} else {
			degenerate = 0
		}
		s.pivot(r, q, delta)
	}
}

// leaving returns the basic row with the largest bound violation and the
// signed violation.
func (s *dualSimplex) leaving(bland bool) (int, float64) {
	r, worst := -1, 0.0
	for i, j := range s.head {
		v := s.x[j]
		var delta float64
		if lo := s.bound(j, atLower); v < lo-s.tolP {
			delta = v - lo
		} else if hi := s.bound(j, atUpper); v > hi+s.tolP {
			delta = v - hi
		} else {
			continue
		}
		if bland {
			if r < 0 || j < s.head[r] {
				r, worst = i, delta
			}
			continue
		}
		if math.Abs(delta) > math.Abs(worst) {
			r, worst = i, delta
		}
	}
	return r, worst
}

// entering runs the two-pass ratio test on row r. The candidates are the
// columns whose move towards their open side pushes the leaving column
// back towards its bound.
func (s *dualSimplex) entering(r int, delta float64, bland bool) (int, error) {
	t := s.tab[r]
	eligible := func(j int) (float64, bool) {
		a := t[j]
		if a == 0 || s.state[j] == basic || s.fixed(j) {
			return 0, false
		}
		g := a
		if delta > 0 {
			g = -a
		}
		switch s.state[j] {
		case atLower:
			return a, g < 0
		case atUpper:
			return a, g > 0
		}
		return a, true
	}
	limit := math.Inf(1)
	var tiny bool
	for j := 0; j < s.cols; j++ {
		a, ok := eligible(j)
		if !ok {
			continue
		}
		if math.Abs(a) < pivotTolerance {
			tiny = true
			continue
		}
		limit = math.Min(limit, (math.Abs(s.d[j])+s.tolD)/math.Abs(a))
	}
	if math.IsInf(limit, 1) {
		if tiny {
			return -1, fmt.Errorf("%w: no stable pivot in row %d", errNumerical, r)
		}
		return -1, nil
	}
	q, piv := -1, 0.0
	for j := 0; j < s.cols; j++ {
		a, ok := eligible(j)
		if !ok || math.Abs(a) < pivotTolerance || math.Abs(s.d[j])/math.Abs(a) > limit {
			continue
		}
		if bland {
			return j, nil
		}
		if math.Abs(a) > piv {
			q, piv = j, math.Abs(a)
		}
	}
	return q, nil
}

// pivot brings column q into the basis in place of the basic column of
// row r, which leaves at the bound it violates by delta.
func (s *dualSimplex) pivot(r, q int, delta float64) {
	t := s.tab[r]
	alpha := t[q]
	leave := s.head[r]

	theta := delta / alpha
	s.x[q] += theta
	for i, ti := range s.tab {
		if a := ti[q]; a != 0 && i != r {
			s.x[s.head[i]] -= theta * a
		}
	}
	st := atLower
	if delta > 0 {
		st = atUpper
	}
	s.state[leave], s.x[leave] = st, s.bound(leave, st)
	s.state[q], s.head[r] = basic, q

	nz := s.nz[:0]
	for j, v := range t {
		if v != 0 {
			nz = append(nz, j)
		}
	}
	s.nz = nz
	inv := 1 / alpha
	for _, j := range nz {
		t[j] *= inv
	}
	t[q] = 1
	for i, ti := range s.tab {
		f := ti[q]
		if i == r || f == 0 {
			continue
		}
		for _, j := range nz {
			ti[j] -= f * t[j]
		}
		ti[q] = 0
	}
	if dq := s.d[q]; dq != 0 {
		for _, j := range nz {
			s.d[j] -= dq * t[j]
		}
	}
	s.d[q] = 0
	for _, j := range nz {
		if s.misplaced(j) {
			s.move(j, s.place(j))
		}
	}
	s.pivots++
}

func (s *dualSimplex) onArtificialBound() bool {
	for j, st := range s.state {
		if math.Abs(s.d[j]) <= s.tolD {
			continue
		}
		if (st == atLower && math.IsInf(s.lower[j], -1)) || (st == atUpper && math.IsInf(s.upper[j], 1)) {
			return true
		}
	}
	return false
}

// residual is the largest violation of a·x + s = b over the rows.
func (s *dualSimplex) residual() float64 {
	var worst float64
	for i, r := range s.rows {
		v := s.x[s.n+i] - s.rhs[i]
		for k, j := range r.idx {
			v += r.coef[k] * s.x[j]
		}
		worst = math.Max(worst, math.Abs(v))
	}
	return worst
}

// refactor recomputes the tableau, the reduced costs and the basic values
// from an LU factorisation of the current basis.
func (s *dualSimplex) refactor() error {
	s.pivots = 0
	if s.m == 0 {
		return nil
	}
	full := mat.NewDense(s.m, s.cols, nil)
	for i, r := range s.rows {
		for k, j := range r.idx {
			full.Set(i, j, full.At(i, j)+r.coef[k])
		}
		full.Set(i, s.n+i, 1)
	}
	basis := mat.NewDense(s.m, s.m, nil)
	for i, j := range s.head {
		for k := 0; k < s.m; k++ {
			basis.Set(k, i, full.At(k, j))
		}
	}
	var lu mat.LU
	lu.Factorize(basis)
	if c := lu.Cond(); c > 1e14 || math.IsNaN(c) {
		return fmt.Errorf("%w: basis condition %.3g", errNumerical, c)
	}
	var tab mat.Dense
	if err := lu.SolveTo(&tab, false, full); err != nil {
		return fmt.Errorf("%w: %v", errNumerical, err)
	}
	for i := range s.tab {
		copy(s.tab[i], tab.RawRowView(i))
		for j, v := range s.tab[i] {
			if math.Abs(v) < 1e-12 {
				s.tab[i][j] = 0
			}
		}
	}
	for i, j := range s.head {
		for k := range s.tab {
			s.tab[k][j] = 0
		}
		s.tab[i][j] = 1
	}

	copy(s.d, s.cost)
	for i, j := range s.head {
		if c := s.cost[j]; c != 0 {
			for k, v := range s.tab[i] {
				s.d[k] -= c * v
			}
		}
	}
	for _, j := range s.head {
		s.d[j] = 0
	}

	w := mat.NewVecDense(s.m, nil)
	for i := 0; i < s.m; i++ {
		v := s.rhs[i]
		for j, a := range full.RawRowView(i) {
			if a != 0 && s.state[j] != basic {
				v -= a * s.x[j]
			}
		}
		w.SetVec(i, v)
	}
	var xb mat.VecDense
	if err := lu.SolveVecTo(&xb, false, w); err != nil {
		return fmt.Errorf("%w: %v", errNumerical, err)
	}
	for i, j := range s.head {
		s.x[j] = xb.AtVec(i)
	}
	for j, st := range s.state {
		if st != basic && s.misplaced(j) {
			s.move(j, s.place(j))
		}
	}
	return nil
}

// objective is the cost of the current point, without the constant.
func (s *dualSimplex) objective() float64 {
	var v float64
	for j := 0; j < s.n; j++ {
		v += s.cost[j] * s.x[j]
	}
	return v
}

// values copies the structural columns of the current point.
func (s *dualSimplex) values() []float64 {
	return append([]float64(nil), s.x[:s.n]...)
}
