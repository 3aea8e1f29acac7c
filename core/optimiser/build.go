package optimiser

import (
	"fmt"
	"math"

	"github.com/kilianp07/storageopt/core/milp"
)

var (
	inf    = math.Inf(1)
	negInf = math.Inf(-1)
)

// build declares the shared variables and applies the shared constraint
// families followed by the variant constraints.
func (s *State) build() error {
	if err := s.declare(); err != nil {
		return err
	}
	s.energyConservation()
	s.stateOfCharge()
	s.electricalFeasibility()
	s.netDecomposition()
	if err := s.fixedDispatch(); err != nil {
		return err
	}
	switch s.Variant {
	case BTM:
		return s.buildBTM()
	case Local:
		return s.buildLocal()
	}
	return fmt.Errorf("%w: variant %q", ErrInvalidOptions, s.Variant)
}

func (s *State) declare() error {
	st := s.System.Storage()
	chargeLimit := s.Energy(st.ChargingPowerLimit())

	demand := make([]float64, s.N)
	genMax := make([]float64, s.N)
	for i := 0; i < s.N; i++ {
		demand[i] = s.System.Demand().At(i)
		genMax[i] = s.System.Generation().At(i)
	}
	s.setParam(ParamDemand, demand)
	s.setParam(ParamGenerationMax, genMax)

	type family struct {
		dst    *[]milp.VarID
		name   string
		lo, hi float64
		domain milp.Domain
	}
	families := []family{
		{&s.SoC, StateOfCharge, 0, st.UsableCapacity(), milp.Continuous},
		{&s.ChargeTotal, ChargeTotal, negInf, inf, milp.Continuous},
		{&s.DischargeTotal, DischargeTotal, negInf, inf, milp.Continuous},
		{&s.ChargeGrid, ChargeGrid, 0, chargeLimit, milp.Continuous},
		{&s.ChargeGeneration, ChargeGeneration, 0, chargeLimit, milp.Continuous},
		{&s.DischargeDemand, DischargeDemand, negInf, 0, milp.Continuous},
		{&s.DischargeGrid, DischargeGrid, negInf, 0, milp.Continuous},
		{&s.IsCharging, IsCharging, 0, 1, milp.Binary},
		{&s.IsDischarging, IsDischarging, 0, 1, milp.Binary},
		{&s.IsNetDemand, IsNetDemand, 0, 1, milp.Binary},
		{&s.NetDemand, SystemNetDemand, 0, inf, milp.Continuous},
		{&s.NetGeneration, SystemNetGeneration, negInf, 0, milp.Continuous},
	}
	for _, f := range families {
		ids, err := s.indexed(f.name, f.lo, f.hi, f.domain)
		if err != nil {
			return err
		}
		*f.dst = ids
	}
	// Realised generation may be curtailed down to zero but never exceeds
	// the available generation.
	ids, err := s.Model.AddIndexedBounds(SystemGeneration, genMax, make([]float64, s.N), milp.Continuous)
	if err != nil {
		return err
	}
	s.Generation = ids
	return nil
}

// netDecomposition splits demand plus realised generation into a
// non-negative residual demand and a non-positive residual generation, at
// most one of them non-zero.
func (s *State) netDecomposition() {
	m := s.Model
	for i := 0; i < s.N; i++ {
		d := s.System.Demand().At(i)
		m.AddConstraint(fmt.Sprintf("demand_generation_balance_%d", i),
			milp.V(s.Generation[i]).AddConst(d), milp.Equal,
			milp.V(s.NetDemand[i]).Plus(milp.V(s.NetGeneration[i])))
		s.regime("net_demand_regime", i, milp.V(s.NetDemand[i]), On(s.IsNetDemand[i]), s.BigM, Upper)
		s.regime("net_generation_regime", i, milp.V(s.NetGeneration[i]), Off(s.IsNetDemand[i]), -s.BigM, Lower)
	}
}
