package milp

import (
	"fmt"
	"math"
	"strconv"
)

// Domain is the value domain of a variable.
type Domain int

const (
	Continuous Domain = iota
	Binary
)

// Var describes one decision variable. Index is the interval the variable
// belongs to, or -1 for scalar variables.
type Var struct {
	Family string
	Index  int
	Lower  float64
	Upper  float64
	Domain Domain
}

// Name is the unique name of the variable, e.g. "storage_charge_grid_3".
func (v Var) Name() string {
	if v.Index < 0 {
		return v.Family
	}
	return v.Family + "_" + strconv.Itoa(v.Index)
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

// Constraint is Expr Sense RHS with the expression constant already moved
// into RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Satisfied reports whether the assignment meets the constraint within tol.
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LessEqual:
		return lhs <= c.RHS+tol
	case GreaterEqual:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// Family groups the variables sharing a name.
type Family struct {
	Name    string
	Vars    []VarID
	Indexed bool
}

// Model is a minimisation MILP under construction.
type Model struct {
	Name string

	// Magnitude is the largest value any quantity of the model is expected
	// to reach. Engines use it to bound expressions without finite bounds.
	Magnitude float64

	vars      []Var
	names     map[string]VarID
	families  []Family
	famIndex  map[string]int
	cons      []Constraint
	objective Objective
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name, names: make(map[string]VarID), famIndex: make(map[string]int)}
}

func (m *Model) addVar(v Var) (VarID, error) {
	if v.Lower > v.Upper {
		return 0, fmt.Errorf("variable %s: lower bound %v above upper bound %v", v.Name(), v.Lower, v.Upper)
	}
	if _, ok := m.names[v.Name()]; ok {
		return 0, fmt.Errorf("variable %s already defined", v.Name())
	}
	id := VarID(len(m.vars))
	m.vars = append(m.vars, v)
	m.names[v.Name()] = id
	return id, nil
}

// AddVar adds a scalar variable.
func (m *Model) AddVar(family string, lo, hi float64, d Domain) (VarID, error) {
	if _, ok := m.famIndex[family]; ok {
		return 0, fmt.Errorf("variable family %s already defined", family)
	}
	if d == Binary {
		lo, hi = math.Max(lo, 0), math.Min(hi, 1)
	}
	id, err := m.addVar(Var{Family: family, Index: -1, Lower: lo, Upper: hi, Domain: d})
	if err != nil {
		return 0, err
	}
	m.famIndex[family] = len(m.families)
	m.families = append(m.families, Family{Name: family, Vars: []VarID{id}})
	return id, nil
}

// AddIndexed adds a family of n variables sharing bounds and domain.
func (m *Model) AddIndexed(family string, n int, lo, hi float64, d Domain) ([]VarID, error) {
	los := make([]float64, n)
	his := make([]float64, n)
	for i := range los {
		los[i], his[i] = lo, hi
	}
	return m.AddIndexedBounds(family, los, his, d)
}

// AddIndexedBounds adds a family with per-interval bounds.
func (m *Model) AddIndexedBounds(family string, lo, hi []float64, d Domain) ([]VarID, error) {
	if len(lo) != len(hi) {
		return nil, fmt.Errorf("variable family %s: %d lower bounds for %d upper bounds", family, len(lo), len(hi))
	}
	if _, ok := m.famIndex[family]; ok {
		return nil, fmt.Errorf("variable family %s already defined", family)
	}
	ids := make([]VarID, len(lo))
	for i := range lo {
		l, h := lo[i], hi[i]
		if d == Binary {
			l, h = math.Max(l, 0), math.Min(h, 1)
		}
		id, err := m.addVar(Var{Family: family, Index: i, Lower: l, Upper: h, Domain: d})
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	m.famIndex[family] = len(m.families)
	m.families = append(m.families, Family{Name: family, Vars: ids, Indexed: true})
	return ids, nil
}

// AddConstraint records lhs sense rhs.
func (m *Model) AddConstraint(name string, lhs Expr, sense Sense, rhs Expr) {
	e := lhs.Minus(rhs).Normalize()
	m.cons = append(m.cons, Constraint{
		Name:  name,
		Expr:  Expr{Terms: e.Terms},
		Sense: sense,
		RHS:   -e.Constant,
	})
}

// Fix pins v to value by collapsing its bounds.
func (m *Model) Fix(v VarID, value float64) {
	m.vars[v].Lower = value
	m.vars[v].Upper = value
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(o Objective) { m.objective = o }

func (m *Model) Objective() Objective      { return m.objective }
func (m *Model) Constraints() []Constraint { return m.cons }
func (m *Model) NumVars() int              { return len(m.vars) }
func (m *Model) Var(v VarID) Var           { return m.vars[v] }
func (m *Model) Families() []Family        { return m.families }

// Lookup finds a variable by its full name.
func (m *Model) Lookup(name string) (VarID, bool) {
	id, ok := m.names[name]
	return id, ok
}

// Vars returns a copy of the variable table.
func (m *Model) Vars() []Var {
	out := make([]Var, len(m.vars))
	copy(out, m.vars)
	return out
}

// Family returns the variables of a family.
func (m *Model) Family(name string) (Family, bool) {
	i, ok := m.famIndex[name]
	if !ok {
		return Family{}, false
	}
	return m.families[i], true
}

// HasIntegers reports whether any variable is binary.
func (m *Model) HasIntegers() bool {
	for _, v := range m.vars {
		if v.Domain == Binary {
			return true
		}
	}
	return false
}

// Feasible checks bounds, integrality and every constraint for values.
func (m *Model) Feasible(values []float64, tol float64) error {
	if len(values) != len(m.vars) {
		return fmt.Errorf("assignment has %d values for %d variables", len(values), len(m.vars))
	}
	for i, v := range m.vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("%s = %v outside [%v, %v]", v.Name(), x, v.Lower, v.Upper)
		}
		if v.Domain == Binary && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("%s = %v is not integral", v.Name(), x)
		}
	}
	for _, c := range m.cons {
		if !c.Satisfied(values, tol) {
			return fmt.Errorf("constraint %s violated: %v %s %v", c.Name, c.Expr.Eval(values), c.Sense, c.RHS)
		}
	}
	return nil
}
