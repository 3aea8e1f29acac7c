package optimiser

import (
	"github.com/kilianp07/storageopt/core/milp"
	"github.com/kilianp07/storageopt/core/model"
)

// Variable and parameter names. They are the keys of Result.Series,
// Result.Scalars and Result.Params.
const (
	StateOfCharge            = "storage_state_of_charge"
	ChargeTotal              = "storage_charge_total"
	DischargeTotal           = "storage_discharge_total"
	ChargeGrid               = "storage_charge_grid"
	ChargeGeneration         = "storage_charge_generation"
	DischargeDemand          = "storage_discharge_demand"
	DischargeGrid            = "storage_discharge_grid"
	IsCharging               = "is_charging"
	IsDischarging            = "is_discharging"
	IsNetDemand              = "is_net_demand"
	SystemGeneration         = "system_generation"
	SystemNetDemand          = "system_net_demand"
	SystemNetGeneration      = "system_net_generation"
	BTMNetImport             = "btm_net_import"
	BTMNetExport             = "btm_net_export"
	IsImporting              = "is_importing"
	PeakImport               = "peak_connection_point_import_power"
	PeakExport               = "peak_connection_point_export_power"
	ExcessDemand             = "excess_demand"
	FCASDischargePower       = "fcas_discharge_power"
	FCASChargePower          = "fcas_charge_power"
	LocalNetImport           = "local_net_import"
	LocalNetExport           = "local_net_export"
	LocalDemandTransfer      = "local_demand_transfer"
	LocalDemandSatisfied     = "local_demand_satisfied"
	LocalGenerationSatisfied = "local_generation_satisfied"
	IsLocalExporting         = "is_local_exporting"
	LocalPeakImport          = "local_peak_connection_point_import_power"
	LocalPeakExport          = "local_peak_connection_point_export_power"

	ParamDemand          = "system_demand"
	ParamGenerationMax   = "system_generation_max"
	ParamImportTariff    = "btm_import_tariff"
	ParamExportTariff    = "btm_export_tariff"
	ParamDemandPeriods   = "demand_periods"
	ParamChargePrices    = "capacity_charge_prices"
	ParamDischargePrices = "capacity_discharge_prices"
)

// fcasDuration is the contingency response duration in minutes: the 6 s,
// 60 s and 5 min services stacked.
const fcasDuration = 1.0 + 4.0 + 5.0

// State is the model under construction together with handles on every
// variable family. Objective terms read it to build their contribution.
type State struct {
	Model           *milp.Model
	System          *model.EnergySystem
	Variant         Variant
	N               int
	IntervalMinutes float64
	BigM            float64
	SmallM          float64

	SoC              []milp.VarID
	ChargeTotal      []milp.VarID
	DischargeTotal   []milp.VarID
	ChargeGrid       []milp.VarID
	ChargeGeneration []milp.VarID
	DischargeDemand  []milp.VarID
	DischargeGrid    []milp.VarID
	IsCharging       []milp.VarID
	IsDischarging    []milp.VarID
	IsNetDemand      []milp.VarID
	Generation       []milp.VarID
	NetDemand        []milp.VarID
	NetGeneration    []milp.VarID

	// Behind-the-meter variant.
	NetImport     []milp.VarID
	NetExport     []milp.VarID
	IsImporting   []milp.VarID
	PeakImport    milp.VarID
	PeakExport    milp.VarID
	ExcessDemand  milp.VarID
	HasExcess     bool
	FCASDischarge []milp.VarID
	FCASCharge    []milp.VarID

	// Local-market variant.
	LocalNetImport           []milp.VarID
	LocalNetExport           []milp.VarID
	LocalDemandTransfer      []milp.VarID
	LocalDemandSatisfied     []milp.VarID
	LocalGenerationSatisfied []milp.VarID
	IsLocalExporting         []milp.VarID
	LocalPeakImport          milp.VarID
	LocalPeakExport          milp.VarID

	requested map[ObjectiveKind]bool
	params    map[string][]float64
}

// Requested reports whether kind is part of the composed objective.
func (s *State) Requested(kind ObjectiveKind) bool { return s.requested[kind] }

// Energy converts a power limit into energy per interval.
func (s *State) Energy(power float64) float64 { return power * s.IntervalMinutes / 60 }

// Param returns a copy of an indexed input parameter.
func (s *State) Param(name string) ([]float64, bool) {
	p, ok := s.params[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), p...), true
}

func (s *State) setParam(name string, values []float64) {
	s.params[name] = values
}

func (s *State) indexed(name string, lo, hi float64, d milp.Domain) ([]milp.VarID, error) {
	return s.Model.AddIndexed(name, s.N, lo, hi, d)
}

// sum adds the variables of ids at every interval with the given weights.
func sum(ids []milp.VarID, weight func(i int) float64) milp.Expr {
	var e milp.Expr
	for i, id := range ids {
		if w := weight(i); w != 0 {
			e = e.Plus(milp.Lin(id, w))
		}
	}
	return e
}

func constant(k float64) func(int) float64 { return func(int) float64 { return k } }
