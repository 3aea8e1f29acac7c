package optimiser

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/storageopt/core/milp"
)

// ObjectiveKind names one additive objective term. The set is open: new
// kinds are added with RegisterObjective.
type ObjectiveKind string

const (
	ThroughputCost           ObjectiveKind = "throughput_cost"
	Throughput               ObjectiveKind = "throughput"
	EqualStorageActions      ObjectiveKind = "equal_storage_actions"
	StoredEnergyValue        ObjectiveKind = "stored_energy_value"
	GreedyGenerationCharging ObjectiveKind = "greedy_generation_charging"
	GreedyDemandDischarging  ObjectiveKind = "greedy_demand_discharging"

	ConnectionPointCost          ObjectiveKind = "connection_point_cost"
	ConnectionPointEnergy        ObjectiveKind = "connection_point_energy"
	ConnectionPointPeakPower     ObjectiveKind = "connection_point_peak_power"
	ConnectionPointQuantisedPeak ObjectiveKind = "connection_point_quantised_peak"
	CapacityAvailability         ObjectiveKind = "capacity_availability"
	DemandCharges                ObjectiveKind = "demand_charges"

	LocalModelsCost    ObjectiveKind = "local_models_cost"
	LocalThirdParty    ObjectiveKind = "local_third_party"
	LocalGridPeakPower ObjectiveKind = "local_grid_peak_power"
	LocalGridMinimiser ObjectiveKind = "local_grid_minimiser"
)

// TermFunc builds the contribution of one objective kind from the built
// model. It must not add variables or constraints.
type TermFunc func(s *State) (milp.Objective, error)

var (
	objectivesMu sync.RWMutex
	objectives   = map[Variant]map[ObjectiveKind]TermFunc{
		BTM:   {},
		Local: {},
	}
)

// RegisterObjective makes kind available to the given variants, or to all
// variants when none are listed. A kind registered twice for the same
// variant is an error.
func RegisterObjective(kind ObjectiveKind, fn TermFunc, variants ...Variant) error {
	if kind == "" || fn == nil {
		return fmt.Errorf("register objective %q: empty kind or nil term", kind)
	}
	if len(variants) == 0 {
		variants = []Variant{BTM, Local}
	}
	objectivesMu.Lock()
	defer objectivesMu.Unlock()
	for _, v := range variants {
		reg, ok := objectives[v]
		if !ok {
			return fmt.Errorf("register objective %q: %w: variant %q", kind, ErrInvalidOptions, v)
		}
		if _, dup := reg[kind]; dup {
			return fmt.Errorf("objective %q already registered for %s", kind, v)
		}
	}
	for _, v := range variants {
		objectives[v][kind] = fn
	}
	return nil
}

func mustRegister(kind ObjectiveKind, fn TermFunc, variants ...Variant) {
	if err := RegisterObjective(kind, fn, variants...); err != nil {
		panic(err)
	}
}

// Objectives lists the kinds available to a variant in lexical order.
func Objectives(v Variant) []ObjectiveKind {
	objectivesMu.RLock()
	defer objectivesMu.RUnlock()
	out := make([]ObjectiveKind, 0, len(objectives[v]))
	for k := range objectives[v] {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type term struct {
	kind ObjectiveKind
	fn   TermFunc
}

// resolve looks every requested kind up for the variant, keeping the
// request order and dropping repeats.
func resolve(v Variant, kinds []ObjectiveKind) ([]term, error) {
	objectivesMu.RLock()
	defer objectivesMu.RUnlock()
	seen := make(map[ObjectiveKind]bool, len(kinds))
	out := make([]term, 0, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true
		if fn, ok := objectives[v][k]; ok {
			out = append(out, term{kind: k, fn: fn})
			continue
		}
		if known(k) {
			return nil, fmt.Errorf("%w: %q with %s", ErrUnsupportedObjective, k, v)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjective, k)
	}
	return out, nil
}

func known(k ObjectiveKind) bool {
	for _, reg := range objectives {
		if _, ok := reg[k]; ok {
			return true
		}
	}
	return false
}

// compose sums the contributions of the resolved terms.
func (s *State) compose(terms []term) (milp.Objective, error) {
	var obj milp.Objective
	for _, t := range terms {
		part, err := t.fn(s)
		if err != nil {
			return milp.Objective{}, fmt.Errorf("objective %s: %w", t.kind, err)
		}
		obj = obj.Plus(part)
	}
	return obj, nil
}

var objectiveSets = map[string][]ObjectiveKind{
	"financial":                {ConnectionPointCost, ThroughputCost, EqualStorageActions},
	"fcas":                     {ConnectionPointCost, ThroughputCost, EqualStorageActions, CapacityAvailability},
	"energy":                   {ConnectionPointEnergy, GreedyGenerationCharging, GreedyDemandDischarging, Throughput, EqualStorageActions},
	"peak":                     {ConnectionPointPeakPower},
	"quantised_peak":           {ConnectionPointQuantisedPeak},
	"demand_charge":            {ConnectionPointCost, ThroughputCost, EqualStorageActions, DemandCharges},
	"local_models":             {LocalModelsCost, ThroughputCost, EqualStorageActions},
	"local_models_third_party": {LocalThirdParty, ThroughputCost, EqualStorageActions},
	"local_peak":               {LocalGridPeakPower},
}

// ObjectiveSet returns a copy of a named objective set.
func ObjectiveSet(name string) ([]ObjectiveKind, error) {
	set, ok := objectiveSets[name]
	if !ok {
		return nil, fmt.Errorf("%w: objective set %q", ErrUnknownObjective, name)
	}
	return append([]ObjectiveKind(nil), set...), nil
}

// ObjectiveSets lists the named sets in lexical order.
func ObjectiveSets() []string {
	out := make([]string, 0, len(objectiveSets))
	for name := range objectiveSets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
