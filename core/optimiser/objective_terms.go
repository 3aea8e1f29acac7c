package optimiser

import (
	"fmt"

	"github.com/kilianp07/storageopt/core/milp"
)

func init() {
	mustRegister(ThroughputCost, throughputCost)
	mustRegister(Throughput, throughput)
	mustRegister(EqualStorageActions, equalStorageActions)
	mustRegister(StoredEnergyValue, storedEnergyValue)

	mustRegister(ConnectionPointCost, connectionPointCost, BTM)
	mustRegister(ConnectionPointEnergy, connectionPointEnergy, BTM)
	mustRegister(GreedyGenerationCharging, btmGreedyGeneration, BTM)
	mustRegister(GreedyDemandDischarging, btmGreedyDemand, BTM)
	mustRegister(ConnectionPointPeakPower, connectionPointPeakPower, BTM)
	mustRegister(ConnectionPointQuantisedPeak, connectionPointQuantisedPeak, BTM)
	mustRegister(CapacityAvailability, capacityValue, BTM)
	mustRegister(DemandCharges, demandCharges, BTM)

	mustRegister(LocalModelsCost, localModelsCost, Local)
	mustRegister(LocalThirdParty, localThirdParty, Local)
	mustRegister(LocalGridPeakPower, localGridPeakPower, Local)
	mustRegister(LocalGridMinimiser, localGridMinimiser, Local)
	mustRegister(GreedyGenerationCharging, localGreedyGeneration, Local)
	mustRegister(GreedyDemandDischarging, localGreedyDemand, Local)
}

func needSmallM(s *State, kind ObjectiveKind) error {
	if s.SmallM <= 0 {
		return fmt.Errorf("%w: %s needs small_m > 0", ErrMissingInput, kind)
	}
	return nil
}

// netStorage is Σ(charge_total - discharge_total)·k. Discharge totals are
// non-positive so this counts throughput in both directions.
func (s *State) netStorage(k float64) milp.Expr {
	return sum(s.ChargeTotal, constant(k)).Plus(sum(s.DischargeTotal, constant(-k)))
}

// Half the throughput cost is attributed to charging and half to
// discharging.
func throughputCost(s *State) (milp.Objective, error) {
	return milp.LinearObjective(s.netStorage(s.System.Storage().ThroughputCost() / 2)), nil
}

func throughput(s *State) (milp.Objective, error) {
	if err := needSmallM(s, Throughput); err != nil {
		return milp.Objective{}, err
	}
	return milp.LinearObjective(s.netStorage(s.SmallM)), nil
}

func equalStorageActions(s *State) (milp.Objective, error) {
	if err := needSmallM(s, EqualStorageActions); err != nil {
		return milp.Objective{}, err
	}
	var obj milp.Objective
	for i := 0; i < s.N; i++ {
		for _, v := range []milp.VarID{s.ChargeGrid[i], s.ChargeGeneration[i], s.DischargeGrid[i], s.DischargeDemand[i]} {
			obj = obj.Plus(milp.SquareObjective(s.SmallM, milp.V(v)))
		}
	}
	return obj, nil
}

func storedEnergyValue(s *State) (milp.Objective, error) {
	v, ok := s.System.Storage().StoredEnergyValue()
	if !ok {
		return milp.Objective{}, fmt.Errorf("%w: %s needs a stored energy value", ErrMissingInput, StoredEnergyValue)
	}
	return milp.LinearObjective(milp.Lin(s.SoC[s.N-1], -v)), nil
}

func connectionPointCost(s *State) (milp.Objective, error) {
	t := s.System.Tariff()
	if t == nil {
		return milp.Objective{}, fmt.Errorf("%w: %s needs a tariff", ErrMissingInput, ConnectionPointCost)
	}
	return milp.LinearObjective(sum(s.NetImport, t.Import).Plus(sum(s.NetExport, t.Export))), nil
}

func connectionPointEnergy(s *State) (milp.Objective, error) {
	return milp.LinearObjective(sum(s.NetImport, constant(1)).Plus(sum(s.NetExport, constant(-1)))), nil
}

// earlyWeight decays linearly from 1/N so that earlier intervals weigh
// more.
func (s *State) earlyWeight(i int) float64 {
	n := float64(s.N)
	return 1 / n * (1 - float64(i)/n)
}

func btmGreedyGeneration(s *State) (milp.Objective, error) {
	return milp.LinearObjective(sum(s.NetExport, func(i int) float64 { return -s.earlyWeight(i) })), nil
}

func btmGreedyDemand(s *State) (milp.Objective, error) {
	return milp.LinearObjective(sum(s.NetImport, s.earlyWeight)), nil
}

func connectionPointPeakPower(s *State) (milp.Objective, error) {
	return milp.LinearObjective(milp.V(s.PeakImport).Plus(milp.V(s.PeakExport))), nil
}

func connectionPointQuantisedPeak(s *State) (milp.Objective, error) {
	var obj milp.Objective
	for i := 0; i < s.N; i++ {
		obj = obj.Plus(milp.SquareObjective(1, milp.V(s.NetExport[i])))
		obj = obj.Plus(milp.SquareObjective(1, milp.V(s.NetImport[i])))
	}
	return obj, nil
}

// capacityValue values the raise bid at the discharge price and the
// lower bid at the charge price. Raise bids are non-positive.
func capacityValue(s *State) (milp.Objective, error) {
	cp := s.System.CapacityPrices()
	if cp == nil || len(s.FCASDischarge) != s.N {
		return milp.Objective{}, fmt.Errorf("%w: %s needs capacity prices", ErrMissingInput, CapacityAvailability)
	}
	raise := sum(s.FCASDischarge, cp.Discharge)
	lower := sum(s.FCASCharge, func(i int) float64 { return -cp.Charge(i) })
	return milp.LinearObjective(raise.Plus(lower)), nil
}

func demandCharges(s *State) (milp.Objective, error) {
	dt := s.System.DemandTariff()
	if dt == nil || !s.HasExcess {
		return milp.Objective{}, fmt.Errorf("%w: %s needs a demand tariff", ErrMissingInput, DemandCharges)
	}
	return milp.LinearObjective(milp.Lin(s.ExcessDemand, dt.Cost())), nil
}

func (s *State) localTariff(kind ObjectiveKind) ([]localPrices, error) {
	lt := s.System.LocalTariff()
	if lt == nil {
		return nil, fmt.Errorf("%w: %s needs a local tariff", ErrMissingInput, kind)
	}
	out := make([]localPrices, s.N)
	for i := range out {
		out[i] = pricesAt(lt, i)
	}
	return out, nil
}

// localModelsCost settles storage and customer flows against the local and
// remote tariffs as seen by the site.
func localModelsCost(s *State) (milp.Objective, error) {
	prices, err := s.localTariff(LocalModelsCost)
	if err != nil {
		return milp.Objective{}, err
	}
	var e milp.Expr
	for i, p := range prices {
		remoteImport := p.reImp + p.rtImp
		remoteExport := p.reExp - p.rtExp
		localIn := -p.leExp + p.leImp + p.ltExp + p.ltImp
		e = milp.Sum(e,
			milp.Lin(s.ChargeGrid[i], remoteImport),
			milp.Lin(s.DischargeGrid[i], remoteExport),
			milp.Lin(s.ChargeGeneration[i], localIn),
			milp.Lin(s.DischargeDemand[i], -localIn),
			milp.Lin(s.LocalNetImport[i], remoteImport),
			milp.Lin(s.LocalNetExport[i], remoteExport),
			milp.Lin(s.LocalDemandTransfer[i], localIn),
		)
	}
	return milp.LinearObjective(e), nil
}

// localThirdParty settles the storage alone, as operated by a third party
// trading with the site and the grid.
func localThirdParty(s *State) (milp.Objective, error) {
	prices, err := s.localTariff(LocalThirdParty)
	if err != nil {
		return milp.Objective{}, err
	}
	var e milp.Expr
	for i, p := range prices {
		e = milp.Sum(e,
			milp.Lin(s.ChargeGrid[i], p.reImp+p.rtImp),
			milp.Lin(s.DischargeGrid[i], p.reExp-p.rtExp),
			milp.Lin(s.ChargeGeneration[i], p.leImp+p.ltImp),
			milp.Lin(s.DischargeDemand[i], p.leExp-p.ltExp),
		)
	}
	return milp.LinearObjective(e), nil
}

func localGridPeakPower(s *State) (milp.Objective, error) {
	return milp.LinearObjective(milp.V(s.LocalPeakImport).Plus(milp.V(s.LocalPeakExport))), nil
}

func localGridMinimiser(s *State) (milp.Objective, error) {
	if err := needSmallM(s, LocalGridMinimiser); err != nil {
		return milp.Objective{}, err
	}
	var obj milp.Objective
	for i := 0; i < s.N; i++ {
		obj = obj.Plus(milp.SquareObjective(s.SmallM, s.localGridFlow(i)))
	}
	return obj, nil
}

func localGreedyGeneration(s *State) (milp.Objective, error) {
	n := float64(s.N)
	return milp.LinearObjective(sum(s.LocalNetExport, func(i int) float64 { return 1 / n * (float64(i) / n) })), nil
}

func localGreedyDemand(s *State) (milp.Objective, error) {
	n := float64(s.N)
	return milp.LinearObjective(sum(s.LocalNetImport, func(i int) float64 { return 1 / n * (-float64(i) / n) })), nil
}
