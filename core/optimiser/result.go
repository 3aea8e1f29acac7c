package optimiser

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/storageopt/core/milp"
)

var ErrUnknownSeries = errors.New("unknown series")

// Result is the extracted schedule of one solve.
type Result struct {
	Variant   Variant
	Status    milp.Status
	Objective float64
	Message   string
	Intervals int
	// Series holds every indexed variable family, one value per interval.
	Series map[string][]float64
	// Scalars holds the non-indexed variables such as peaks.
	Scalars map[string]float64
	// Params holds the indexed inputs the model was built from.
	Params map[string][]float64
	Stats  Stats
}

// Values returns a copy of the named series, looking up variables first and
// parameters second.
func (r *Result) Values(name string) ([]float64, error) {
	if v, ok := r.Series[name]; ok {
		return append([]float64(nil), v...), nil
	}
	if v, ok := r.Params[name]; ok {
		return append([]float64(nil), v...), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownSeries, name)
}

// Scalar returns a non-indexed variable.
func (r *Result) Scalar(name string) (float64, error) {
	v, ok := r.Scalars[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownSeries, name)
	}
	return v, nil
}

// Names lists the variable series in lexical order.
func (r *Result) Names() []string {
	out := make([]string, 0, len(r.Series))
	for k := range r.Series {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParamNames lists the parameter series in lexical order.
func (r *Result) ParamNames() []string {
	out := make([]string, 0, len(r.Params))
	for k := range r.Params {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (o *Optimiser) extract(sol *milp.Solution) *Result {
	s := o.state
	r := &Result{
		Variant:   s.Variant,
		Status:    sol.Status,
		Objective: sol.Objective,
		Message:   sol.Message,
		Intervals: s.N,
		Series:    make(map[string][]float64),
		Scalars:   make(map[string]float64),
		Params:    make(map[string][]float64, len(s.params)),
		Stats:     o.stats,
	}
	for _, f := range s.Model.Families() {
		if !f.Indexed {
			r.Scalars[f.Name] = o.round(sol.Value(f.Vars[0]), s.Model.Var(f.Vars[0]).Domain)
			continue
		}
		vals := make([]float64, len(f.Vars))
		for i, id := range f.Vars {
			vals[i] = o.round(sol.Value(id), s.Model.Var(id).Domain)
		}
		r.Series[f.Name] = vals
	}
	for k, v := range s.params {
		r.Params[k] = append([]float64(nil), v...)
	}
	return r
}

func (o *Optimiser) round(v float64, d milp.Domain) float64 {
	if d == milp.Binary {
		v = math.Round(v)
	} else if o.decimals >= 0 {
		p := math.Pow(10, float64(o.decimals))
		v = math.Round(v*p) / p
	}
	if v == 0 {
		return 0
	}
	return v
}
