package optimiser

import (
	"fmt"

	"github.com/kilianp07/storageopt/core/milp"
)

// buildBTM adds the connection point accounting of a behind-the-meter site.
func (s *State) buildBTM() error {
	var err error
	if s.NetImport, err = s.indexed(BTMNetImport, 0, inf, milp.Continuous); err != nil {
		return err
	}
	if s.NetExport, err = s.indexed(BTMNetExport, negInf, 0, milp.Continuous); err != nil {
		return err
	}
	if s.IsImporting, err = s.indexed(IsImporting, 0, 1, milp.Binary); err != nil {
		return err
	}
	s.btmParams()

	m := s.Model
	for i := 0; i < s.N; i++ {
		// Storage can only absorb generation that is left after demand and
		// only serve demand that is left after generation.
		m.AddConstraint(name("generation_charging_behaviour", i),
			milp.V(s.ChargeGeneration[i]), milp.LessEqual, milp.Lin(s.NetGeneration[i], -1))
		m.AddConstraint(name("demand_discharging_behaviour", i),
			milp.V(s.DischargeDemand[i]), milp.GreaterEqual, milp.Lin(s.NetDemand[i], -1))

		m.AddConstraint(name("btm_net_import_balance", i), milp.V(s.NetImport[i]), milp.Equal,
			milp.Sum(milp.V(s.NetDemand[i]), milp.V(s.ChargeGrid[i]), milp.V(s.DischargeDemand[i])))
		m.AddConstraint(name("btm_net_export_balance", i), milp.V(s.NetExport[i]), milp.Equal,
			milp.Sum(milp.V(s.NetGeneration[i]), milp.V(s.ChargeGeneration[i]), milp.V(s.DischargeGrid[i])))

		s.regime("import_regime", i, milp.V(s.NetImport[i]), On(s.IsImporting[i]), s.BigM, Upper)
		s.regime("export_regime", i, milp.V(s.NetExport[i]), Off(s.IsImporting[i]), -s.BigM, Lower)
	}

	if err := s.peaks(); err != nil {
		return err
	}
	if err := s.demandCharge(); err != nil {
		return err
	}
	if s.Requested(CapacityAvailability) {
		return s.capacityAvailability()
	}
	return nil
}

func (s *State) btmParams() {
	if t := s.System.Tariff(); t != nil {
		s.setParam(ParamImportTariff, series(s.N, t.Import))
		s.setParam(ParamExportTariff, series(s.N, t.Export))
	}
	if d := s.System.DemandTariff(); d != nil {
		s.setParam(ParamDemandPeriods, series(s.N, d.Active))
	}
	if c := s.System.CapacityPrices(); c != nil {
		s.setParam(ParamChargePrices, series(s.N, c.Charge))
		s.setParam(ParamDischargePrices, series(s.N, c.Discharge))
	}
}

// peaks tracks the largest connection point import and export.
func (s *State) peaks() error {
	exportCap := inf
	if limit, ok := s.System.ExportLimit(); ok {
		exportCap = s.Energy(limit)
	}
	var err error
	if s.PeakImport, err = s.Model.AddVar(PeakImport, 0, inf, milp.Continuous); err != nil {
		return err
	}
	if s.PeakExport, err = s.Model.AddVar(PeakExport, 0, exportCap, milp.Continuous); err != nil {
		return err
	}
	for i := 0; i < s.N; i++ {
		s.Model.AddConstraint(name("peak_import", i), milp.V(s.PeakImport), milp.GreaterEqual, milp.V(s.NetImport[i]))
		s.Model.AddConstraint(name("peak_export", i), milp.V(s.PeakExport), milp.GreaterEqual, milp.Lin(s.NetExport[i], -1))
	}
	return nil
}

// demandCharge tracks the largest import during active demand periods,
// floored at the minimum chargeable demand.
func (s *State) demandCharge() error {
	dt := s.System.DemandTariff()
	if dt == nil {
		return nil
	}
	id, err := s.Model.AddVar(ExcessDemand, dt.MinimumDemand(), inf, milp.Continuous)
	if err != nil {
		return err
	}
	s.ExcessDemand, s.HasExcess = id, true
	for i := 0; i < s.N; i++ {
		if a := dt.Active(i); a != 0 {
			s.Model.AddConstraint(name("excess_demand", i), milp.V(id), milp.GreaterEqual, milp.Lin(s.NetImport[i], a))
		}
	}
	return nil
}

// capacityAvailability sizes the contingency bids the storage can hold on
// top of its scheduled dispatch. Bids are powers; the scheduled flows are
// converted from energy per interval.
func (s *State) capacityAvailability() error {
	st := s.System.Storage()
	if s.System.CapacityPrices() == nil {
		return fmt.Errorf("%w: %s needs capacity prices", ErrMissingInput, CapacityAvailability)
	}
	etaC, etaD := st.ChargingEfficiency(), st.DischargingEfficiency()
	if etaC == 0 {
		return fmt.Errorf("%w: %s needs a non-zero charging efficiency", ErrMissingInput, CapacityAvailability)
	}
	var err error
	if s.FCASDischarge, err = s.indexed(FCASDischargePower, negInf, 0, milp.Continuous); err != nil {
		return err
	}
	if s.FCASCharge, err = s.indexed(FCASChargePower, negInf, inf, milp.Continuous); err != nil {
		return err
	}
	toPower := 60 / s.IntervalMinutes
	hours := fcasDuration / 60
	exportLimit, hasLimit := s.System.ExportLimit()

	m := s.Model
	for i := 0; i < s.N; i++ {
		allocated := milp.Sum(
			milp.V(s.ChargeGrid[i]), milp.V(s.ChargeGeneration[i]),
			milp.V(s.DischargeDemand[i]), milp.V(s.DischargeGrid[i]),
		).Times(toPower)
		soc := milp.V(s.SoC[i])
		fdp, fcp := milp.V(s.FCASDischarge[i]), milp.V(s.FCASCharge[i])

		m.AddConstraint(name("fcas_raise_power", i), fdp, milp.GreaterEqual,
			milp.Const(st.DischargingPowerLimit()).Minus(allocated))
		m.AddConstraint(name("fcas_raise_energy", i), fdp, milp.GreaterEqual,
			soc.Times(-etaD/hours).Minus(allocated))
		m.AddConstraint(name("fcas_lower_power", i), fcp, milp.LessEqual,
			milp.Const(st.ChargingPowerLimit()).Minus(allocated))
		m.AddConstraint(name("fcas_lower_energy", i), fcp, milp.LessEqual,
			milp.Const(st.MaxCapacity()).Minus(soc).Times(1/(etaC*hours)).Plus(allocated))
		if hasLimit {
			net := milp.Sum(milp.V(s.Generation[i]), milp.V(s.ChargeTotal[i]), milp.V(s.DischargeTotal[i])).Times(toPower)
			m.AddConstraint(name("fcas_raise_export_limit", i), fdp.Times(-1).Minus(net), milp.LessEqual, milp.Const(exportLimit))
		}
	}
	return nil
}
