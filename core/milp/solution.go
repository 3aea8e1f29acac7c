package milp

// Status is the termination state reported by an engine.
type Status int

const (
	StatusOther Status = iota
	StatusOptimal
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "other"
	}
}

// Solution is the outcome of one solve. Values is indexed by VarID and is
// nil when the engine returned no assignment.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Message   string
}

// Value returns the solved value of v.
func (s *Solution) Value(v VarID) float64 {
	if s == nil || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// HasValues reports whether an assignment is available.
func (s *Solution) HasValues() bool { return s != nil && len(s.Values) > 0 }
