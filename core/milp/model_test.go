package milp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpr_NormalizeAndEval(t *testing.T) {
	e := Sum(Lin(0, 2), Lin(1, 3), Lin(0, -2), Const(4)).Times(2)
	n := e.Normalize()
	require.Len(t, n.Terms, 1)
	assert.Equal(t, VarID(1), n.Terms[0].Var)
	assert.Equal(t, 6.0, n.Terms[0].Coef)
	assert.Equal(t, 8.0, n.Constant)
	assert.Equal(t, 6.0*5+8, e.Eval([]float64{7, 5}))
	assert.Equal(t, 0.0, e.Coef(0))
}

func TestModel_AddConstraintFoldsConstants(t *testing.T) {
	m := NewModel("t")
	x, err := m.AddVar("x", 0, 10, Continuous)
	require.NoError(t, err)
	y, err := m.AddVar("y", math.Inf(-1), math.Inf(1), Continuous)
	require.NoError(t, err)
	// x + 3 <= y - 2  ->  x - y <= -5
	m.AddConstraint("c", V(x).AddConst(3), LessEqual, V(y).AddConst(-2))
	c := m.Constraints()[0]
	assert.Equal(t, -5.0, c.RHS)
	assert.Equal(t, 1.0, c.Expr.Coef(x))
	assert.Equal(t, -1.0, c.Expr.Coef(y))
	assert.True(t, c.Satisfied([]float64{1, 6}, 1e-9))
	assert.False(t, c.Satisfied([]float64{2, 6}, 1e-9))
}

func TestModel_Families(t *testing.T) {
	m := NewModel("t")
	ids, err := m.AddIndexed("soc", 3, 0, 5, Continuous)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	_, err = m.AddIndexed("soc", 2, 0, 5, Continuous)
	assert.Error(t, err)
	b, err := m.AddVar("flag", -3, 4, Binary)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Var(b).Lower)
	assert.Equal(t, 1.0, m.Var(b).Upper)
	assert.True(t, m.HasIntegers())

	f, ok := m.Family("soc")
	require.True(t, ok)
	assert.True(t, f.Indexed)
	id, ok := m.Lookup("soc_2")
	require.True(t, ok)
	assert.Equal(t, ids[2], id)

	_, err = m.AddIndexedBounds("bad", []float64{2}, []float64{1}, Continuous)
	assert.Error(t, err)
}

func TestModel_Feasible(t *testing.T) {
	m := NewModel("t")
	x, _ := m.AddVar("x", 0, 1, Binary)
	y, _ := m.AddVar("y", 0, 10, Continuous)
	m.AddConstraint("link", V(y), LessEqual, Lin(x, 5))
	assert.NoError(t, m.Feasible([]float64{1, 4}, 1e-9))
	assert.Error(t, m.Feasible([]float64{0, 4}, 1e-9))
	assert.Error(t, m.Feasible([]float64{0.5, 0}, 1e-9))
	m.Fix(y, 3)
	assert.Error(t, m.Feasible([]float64{1, 4}, 1e-9))
}

func TestObjective_Expand(t *testing.T) {
	// 2·(x + 3y - 1)² + 4x
	o := LinearObjective(Lin(0, 4)).Plus(SquareObjective(2, Sum(Lin(0, 1), Lin(1, 3), Const(-1))))
	lin, quad, c := o.Expand()
	assert.InDelta(t, 4-4, lin[0], 1e-12)
	assert.InDelta(t, -12, lin[1], 1e-12)
	assert.InDelta(t, 2, quad[QuadKey{0, 0}], 1e-12)
	assert.InDelta(t, 18, quad[QuadKey{1, 1}], 1e-12)
	assert.InDelta(t, 12, quad[QuadKey{0, 1}], 1e-12)
	assert.InDelta(t, 2, c, 1e-12)

	vals := []float64{1.5, -2}
	want := o.Eval(vals)
	got := c + lin[0]*vals[0] + lin[1]*vals[1] +
		quad[QuadKey{0, 0}]*vals[0]*vals[0] + quad[QuadKey{1, 1}]*vals[1]*vals[1] + quad[QuadKey{0, 1}]*vals[0]*vals[1]
	assert.InDelta(t, want, got, 1e-9)
	assert.True(t, o.IsQuadratic())
	assert.NoError(t, o.Convex())
	assert.Error(t, SquareObjective(-1, V(0)).Convex())
}
