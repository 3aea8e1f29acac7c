// Package optimiser turns an EnergySystem into a mixed-integer program,
// hands it to a solver engine once and extracts the dispatch schedule.
//
// Two variants share the storage model: behind-the-meter (BTM), which
// settles flows at a single connection point, and local-market, which
// separates locally traded energy from remote grid energy. The objective is
// the sum of the requested terms, each resolved through an open registry.
package optimiser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/kilianp07/storageopt/core/logger"
	"github.com/kilianp07/storageopt/core/milp"
	"github.com/kilianp07/storageopt/core/model"
	"github.com/kilianp07/storageopt/core/solver"
)

// Variant selects the settlement model.
type Variant string

const (
	BTM   Variant = "btm"
	Local Variant = "local"
)

// ParseVariant maps a configuration string onto a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case BTM, "":
		return BTM, nil
	case Local:
		return Local, nil
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

var (
	ErrUnknownObjective     = errors.New("unknown objective")
	ErrUnsupportedObjective = errors.New("objective not supported by variant")
	ErrMissingInput         = errors.New("missing input")
	ErrInvalidOptions       = errors.New("invalid options")
	ErrAlreadySolved        = errors.New("optimiser already solved")
	ErrNoSolution           = errors.New("solver returned no solution")
)

// DefaultDecimals is the rounding applied to extracted series.
const DefaultDecimals = 3

// Options parameterises one optimisation.
type Options struct {
	// IntervalMinutes is the duration of one interval.
	IntervalMinutes float64
	// Intervals is the horizon length. Zero uses the length of the profiles.
	Intervals  int
	Objectives []ObjectiveKind
	// BigM bounds the quantities switched off by binary indicators. Zero
	// derives it from the input magnitudes.
	BigM float64
	// SmallM weights the tie-break terms. It has no default and must be set
	// when a tie-break objective is requested.
	SmallM float64
	// Decimals is the rounding of extracted series. Nil selects
	// DefaultDecimals, zero rounds to whole numbers and a negative value
	// disables rounding.
	Decimals *int
	Logger   logger.Logger
}

// Stats describes a built model and its solve.
type Stats struct {
	Variables   int
	Binaries    int
	Constraints int
	BuildTime   time.Duration
	SolveTime   time.Duration
}

// Optimiser is built once and solved once.
type Optimiser struct {
	state    *State
	decimals int
	log      logger.Logger
	stats    Stats
	solved   atomic.Bool
}

// NewBTM builds the behind-the-meter model.
func NewBTM(sys *model.EnergySystem, opts Options) (*Optimiser, error) {
	return New(BTM, sys, opts)
}

// NewLocal builds the local-market model.
func NewLocal(sys *model.EnergySystem, opts Options) (*Optimiser, error) {
	return New(Local, sys, opts)
}

// New validates the inputs and builds the complete model: variables,
// constraints and objective. Every configuration error surfaces here.
func New(variant Variant, sys *model.EnergySystem, opts Options) (*Optimiser, error) {
	start := time.Now()
	if sys == nil {
		return nil, fmt.Errorf("%w: energy system", ErrMissingInput)
	}
	if variant != BTM && variant != Local {
		return nil, fmt.Errorf("%w: variant %q", ErrInvalidOptions, variant)
	}
	if !(opts.IntervalMinutes > 0) || math.IsInf(opts.IntervalMinutes, 0) {
		return nil, fmt.Errorf("%w: interval duration %v", ErrInvalidOptions, opts.IntervalMinutes)
	}
	if opts.BigM < 0 || math.IsNaN(opts.BigM) || math.IsInf(opts.BigM, 0) {
		return nil, fmt.Errorf("%w: big_m %v", ErrInvalidOptions, opts.BigM)
	}
	if opts.SmallM < 0 || math.IsNaN(opts.SmallM) || math.IsInf(opts.SmallM, 0) {
		return nil, fmt.Errorf("%w: small_m %v", ErrInvalidOptions, opts.SmallM)
	}
	if len(opts.Objectives) == 0 {
		return nil, fmt.Errorf("%w: no objective requested", ErrInvalidOptions)
	}
	n := opts.Intervals
	if n == 0 {
		n = sys.Horizon()
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: empty horizon", ErrInvalidOptions)
	}
	if err := sys.ValidateHorizon(n); err != nil {
		return nil, err
	}
	decimals := DefaultDecimals
	if opts.Decimals != nil {
		decimals = *opts.Decimals
	}
	log := logger.OrNop(opts.Logger)

	s := &State{
		Model:           milp.NewModel(string(variant)),
		System:          sys,
		Variant:         variant,
		N:               n,
		IntervalMinutes: opts.IntervalMinutes,
		BigM:            opts.BigM,
		SmallM:          opts.SmallM,
		requested:       make(map[ObjectiveKind]bool, len(opts.Objectives)),
		params:          make(map[string][]float64),
	}
	for _, k := range opts.Objectives {
		s.requested[k] = true
	}
	terms, err := resolve(variant, opts.Objectives)
	if err != nil {
		return nil, err
	}
	if s.BigM == 0 {
		s.BigM = DeriveBigM(sys, n, opts.IntervalMinutes)
		log.Infof("derived big_m %.6g for %d intervals", s.BigM, n)
	}
	s.Model.Magnitude = s.BigM

	if err := s.build(); err != nil {
		return nil, err
	}
	obj, err := s.compose(terms)
	if err != nil {
		return nil, err
	}
	s.Model.SetObjective(obj)

	o := &Optimiser{state: s, decimals: decimals, log: log}
	o.stats = Stats{
		Variables:   s.Model.NumVars(),
		Constraints: len(s.Model.Constraints()),
		BuildTime:   time.Since(start),
	}
	for _, v := range s.Model.Vars() {
		if v.Domain == milp.Binary {
			o.stats.Binaries++
		}
	}
	log.Debugw("model built", map[string]any{
		"variant":     variant,
		"intervals":   n,
		"variables":   o.stats.Variables,
		"binaries":    o.stats.Binaries,
		"constraints": o.stats.Constraints,
		"big_m":       s.BigM,
		"objectives":  opts.Objectives,
	})
	return o, nil
}

// DeriveBigM returns a constant larger than any flow the model can reach:
// twice the sum of the largest storage, profile and power magnitudes, plus
// one.
func DeriveBigM(sys *model.EnergySystem, n int, intervalMinutes float64) float64 {
	st := sys.Storage()
	toEnergy := intervalMinutes / 60
	var maxDemand, maxGen, maxFixed float64
	for i := 0; i < n && i < sys.Demand().Len(); i++ {
		maxDemand = math.Max(maxDemand, sys.Demand().At(i))
		maxGen = math.Max(maxGen, math.Abs(sys.Generation().At(i)))
	}
	for _, i := range st.FixedIntervals() {
		v, _ := st.FixedDispatch(i)
		maxFixed = math.Max(maxFixed, math.Abs(v))
	}
	power := st.ChargingPowerLimit() + math.Abs(st.DischargingPowerLimit())
	total := st.UsableCapacity() + maxDemand + maxGen +
		power*toEnergy + maxFixed + power
	return 2*total + 1
}

// Model exposes the built model. It must not be modified.
func (o *Optimiser) Model() *milp.Model { return o.state.Model }

// State exposes the variable handles of the built model.
func (o *Optimiser) State() *State { return o.state }

// BigM returns the big-M constant in use.
func (o *Optimiser) BigM() float64 { return o.state.BigM }

// Stats returns the model statistics, including the solve time once solved.
func (o *Optimiser) Stats() Stats { return o.stats }

// Optimise solves the model with s and extracts the schedule. It may be
// called once; infeasibility is reported as solver.ErrInfeasible.
func (o *Optimiser) Optimise(ctx context.Context, s solver.Solver) (*Result, error) {
	if !o.solved.CompareAndSwap(false, true) {
		return nil, ErrAlreadySolved
	}
	if s == nil {
		return nil, fmt.Errorf("%w: solver", ErrMissingInput)
	}
	start := time.Now()
	sol, err := s.Solve(ctx, o.state.Model)
	o.stats.SolveTime = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("solve with %s: %w", s.Name(), err)
	}
	switch sol.Status {
	case milp.StatusInfeasible:
		o.log.Errorf("%s model infeasible (%s)", o.state.Variant, sol.Message)
		return nil, solver.ErrInfeasible
	case milp.StatusOther:
		if !sol.HasValues() {
			return nil, fmt.Errorf("%w: %s", ErrNoSolution, sol.Message)
		}
		o.log.Warnf("%s returned a non-optimal solution: %s", s.Name(), sol.Message)
	}
	if len(sol.Values) != o.state.Model.NumVars() {
		return nil, fmt.Errorf("%w: %d values for %d variables", ErrNoSolution, len(sol.Values), o.state.Model.NumVars())
	}
	o.log.Infof("%s solved %s model in %s: %s objective %.6g", s.Name(), o.state.Variant, o.stats.SolveTime, sol.Status, sol.Objective)
	return o.extract(sol), nil
}
