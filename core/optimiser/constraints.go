package optimiser

import (
	"fmt"

	"github.com/kilianp07/storageopt/core/milp"
	"github.com/kilianp07/storageopt/core/model"
)

func name(family string, i int) string { return fmt.Sprintf("%s_%d", family, i) }

// energyConservation links the storage totals to the flows feeding them and
// applies the per-interval rate limits.
func (s *State) energyConservation() {
	st := s.System.Storage()
	m := s.Model
	etaC, etaD := st.ChargingEfficiency(), st.DischargingEfficiency()
	chargeLimit := s.Energy(st.ChargingPowerLimit())
	dischargeLimit := s.Energy(st.DischargingPowerLimit())
	for i := 0; i < s.N; i++ {
		charged := milp.V(s.ChargeGrid[i]).Plus(milp.V(s.ChargeGeneration[i]))
		discharged := milp.V(s.DischargeDemand[i]).Plus(milp.V(s.DischargeGrid[i]))

		m.AddConstraint(name("storage_charge_behaviour", i), milp.V(s.ChargeTotal[i]), milp.Equal, charged.Times(etaC))
		// Delivered energy is the stored energy scaled by the efficiency.
		m.AddConstraint(name("storage_discharge_behaviour", i), discharged, milp.Equal, milp.Lin(s.DischargeTotal[i], etaD))
		m.AddConstraint(name("storage_charge_rate_limit", i), charged, milp.LessEqual, milp.Const(chargeLimit))
		if _, fixed := st.FixedDispatch(i); !fixed {
			m.AddConstraint(name("storage_discharge_rate_limit", i), discharged, milp.GreaterEqual, milp.Const(dischargeLimit))
		}
	}
}

// stateOfCharge chains the state of charge through the horizon.
func (s *State) stateOfCharge() {
	st := s.System.Storage()
	m := s.Model
	for i := 0; i < s.N; i++ {
		prev := milp.Const(st.InitialStateOfCharge())
		if i > 0 {
			prev = milp.V(s.SoC[i-1])
		}
		m.AddConstraint(name("storage_soc", i), milp.V(s.SoC[i]), milp.Equal,
			prev.Plus(milp.V(s.ChargeTotal[i])).Plus(milp.V(s.DischargeTotal[i])))
	}
	if final, ok := st.FinalStateOfChargeMin(); ok {
		m.AddConstraint("storage_final_soc", milp.V(s.SoC[s.N-1]), milp.GreaterEqual, milp.Const(final))
	}
}

// electricalFeasibility keeps the storage in a single mode per interval and
// keeps residual generation within realised generation.
func (s *State) electricalFeasibility() {
	m := s.Model
	for i := 0; i < s.N; i++ {
		ct, dt := milp.V(s.ChargeTotal[i]), milp.V(s.DischargeTotal[i])
		s.regime("charge_mode_lower", i, ct, On(s.IsCharging[i]), -s.BigM, Lower)
		s.regime("charge_mode_upper", i, ct, Off(s.IsDischarging[i]), s.BigM, Upper)
		s.regime("discharge_mode_upper", i, dt, On(s.IsDischarging[i]), s.BigM, Upper)
		s.regime("discharge_mode_lower", i, dt, Off(s.IsCharging[i]), -s.BigM, Lower)
		m.AddConstraint(name("single_mode", i), milp.V(s.IsCharging[i]).Plus(milp.V(s.IsDischarging[i])), milp.Equal, milp.Const(1))
		m.AddConstraint(name("net_generation_feasibility", i), milp.V(s.NetGeneration[i]), milp.GreaterEqual, milp.V(s.Generation[i]))
	}
}

// fixedDispatch pins the storage totals of intervals with an externally
// supplied dispatch value. Non-positive values are discharges.
func (s *State) fixedDispatch() error {
	st := s.System.Storage()
	for _, i := range st.FixedIntervals() {
		if i >= s.N {
			return fmt.Errorf("%w: fixed dispatch interval %d outside horizon %d", model.ErrInvalid, i, s.N)
		}
		rate, _ := st.FixedDispatch(i)
		if rate <= 0 {
			s.Model.Fix(s.ChargeTotal[i], 0)
			s.Model.Fix(s.DischargeTotal[i], rate)
			continue
		}
		s.Model.Fix(s.ChargeTotal[i], rate)
		s.Model.Fix(s.DischargeTotal[i], 0)
	}
	return nil
}
