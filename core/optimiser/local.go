package optimiser

import (
	"github.com/kilianp07/storageopt/core/milp"
	"github.com/kilianp07/storageopt/core/model"
)

// Local tariff parameter names.
const (
	ParamLocalEnergyImport     = "le_import_tariff"
	ParamLocalEnergyExport     = "le_export_tariff"
	ParamLocalTransportImport  = "lt_import_tariff"
	ParamLocalTransportExport  = "lt_export_tariff"
	ParamRemoteEnergyImport    = "re_import_tariff"
	ParamRemoteEnergyExport    = "re_export_tariff"
	ParamRemoteTransportImport = "rt_import_tariff"
	ParamRemoteTransportExport = "rt_export_tariff"
)

// buildLocal separates locally traded energy from remote grid energy and
// forces the storage to exhaust local demand and generation before it
// trades with the grid.
func (s *State) buildLocal() error {
	families := []struct {
		dst    *[]milp.VarID
		name   string
		lo, hi float64
		domain milp.Domain
	}{
		{&s.LocalNetImport, LocalNetImport, 0, inf, milp.Continuous},
		{&s.LocalNetExport, LocalNetExport, negInf, 0, milp.Continuous},
		{&s.LocalDemandTransfer, LocalDemandTransfer, 0, inf, milp.Continuous},
		{&s.LocalDemandSatisfied, LocalDemandSatisfied, 0, 1, milp.Binary},
		{&s.LocalGenerationSatisfied, LocalGenerationSatisfied, 0, 1, milp.Binary},
		{&s.IsLocalExporting, IsLocalExporting, 0, 1, milp.Binary},
	}
	for _, f := range families {
		ids, err := s.indexed(f.name, f.lo, f.hi, f.domain)
		if err != nil {
			return err
		}
		*f.dst = ids
	}
	s.localParams()

	m := s.Model
	for i := 0; i < s.N; i++ {
		ldt := milp.V(s.LocalDemandTransfer[i])
		m.AddConstraint(name("local_net_import_balance", i), milp.V(s.LocalNetImport[i]), milp.Equal,
			milp.V(s.NetDemand[i]).Plus(milp.V(s.DischargeDemand[i])).Minus(ldt))
		m.AddConstraint(name("local_net_export_balance", i), milp.V(s.LocalNetExport[i]), milp.Equal,
			milp.Sum(milp.V(s.NetGeneration[i]), milp.V(s.ChargeGeneration[i]), ldt))
		m.AddConstraint(name("local_demand_transfer_export", i),
			ldt.Plus(milp.V(s.ChargeGeneration[i])), milp.LessEqual, milp.Lin(s.NetGeneration[i], -1))
		m.AddConstraint(name("local_demand_transfer_import", i),
			milp.V(s.DischargeDemand[i]).Minus(ldt), milp.GreaterEqual, milp.Lin(s.NetDemand[i], -1))

		residual := -(s.System.Demand().At(i) + s.System.Generation().At(i))
		s.regime("local_discharge_grid", i, milp.V(s.DischargeGrid[i]), On(s.LocalDemandSatisfied[i]), -s.BigM, Lower)
		s.regime("local_discharge_demand", i, milp.V(s.DischargeDemand[i]), On(s.LocalDemandSatisfied[i]), residual, Upper)
		s.regime("local_charge_grid", i, milp.V(s.ChargeGrid[i]), On(s.LocalGenerationSatisfied[i]), s.BigM, Upper)
		s.regime("local_charge_generation", i, milp.V(s.ChargeGeneration[i]), On(s.LocalGenerationSatisfied[i]), residual, Lower)

		s.regime("local_export_regime", i, milp.V(s.LocalNetExport[i]), On(s.IsLocalExporting[i]), -s.BigM, Lower)
		s.regime("local_import_regime", i, milp.V(s.LocalNetImport[i]), Off(s.IsLocalExporting[i]), s.BigM, Upper)
	}
	return s.localPeaks()
}

// localGridFlow is the energy crossing the local grid boundary in interval i.
func (s *State) localGridFlow(i int) milp.Expr {
	return milp.Sum(
		milp.V(s.ChargeGrid[i]), milp.V(s.DischargeGrid[i]),
		milp.V(s.LocalNetImport[i]), milp.V(s.LocalNetExport[i]),
	)
}

func (s *State) localPeaks() error {
	var err error
	if s.LocalPeakImport, err = s.Model.AddVar(LocalPeakImport, 0, inf, milp.Continuous); err != nil {
		return err
	}
	if s.LocalPeakExport, err = s.Model.AddVar(LocalPeakExport, 0, inf, milp.Continuous); err != nil {
		return err
	}
	for i := 0; i < s.N; i++ {
		flow := s.localGridFlow(i)
		s.Model.AddConstraint(name("local_peak_import", i), milp.V(s.LocalPeakImport), milp.GreaterEqual, flow)
		s.Model.AddConstraint(name("local_peak_export", i), milp.V(s.LocalPeakExport), milp.GreaterEqual, flow.Times(-1))
	}
	return nil
}

func (s *State) localParams() {
	lt := s.System.LocalTariff()
	if lt == nil {
		return
	}
	for _, p := range []struct {
		name string
		at   func(int) float64
	}{
		{ParamLocalEnergyImport, lt.LocalEnergyImport},
		{ParamLocalEnergyExport, lt.LocalEnergyExport},
		{ParamLocalTransportImport, lt.LocalTransportImport},
		{ParamLocalTransportExport, lt.LocalTransportExport},
		{ParamRemoteEnergyImport, lt.RemoteEnergyImport},
		{ParamRemoteEnergyExport, lt.RemoteEnergyExport},
		{ParamRemoteTransportImport, lt.RemoteTransportImport},
		{ParamRemoteTransportExport, lt.RemoteTransportExport},
	} {
		s.setParam(p.name, series(s.N, p.at))
	}
}

func series(n int, at func(int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}

// localPrices is a snapshot of the local tariff at one interval.
type localPrices struct {
	leImp, leExp, ltImp, ltExp float64
	reImp, reExp, rtImp, rtExp float64
}

func pricesAt(lt *model.LocalTariff, i int) localPrices {
	return localPrices{
		leImp: lt.LocalEnergyImport(i), leExp: lt.LocalEnergyExport(i),
		ltImp: lt.LocalTransportImport(i), ltExp: lt.LocalTransportExport(i),
		reImp: lt.RemoteEnergyImport(i), reExp: lt.RemoteEnergyExport(i),
		rtImp: lt.RemoteTransportImport(i), rtExp: lt.RemoteTransportExport(i),
	}
}
