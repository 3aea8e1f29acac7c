package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalid is wrapped by every validation failure of the energy system
// value objects.
var ErrInvalid = errors.New("invalid energy system")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// StorageParams holds the raw storage description. Energies are in kWh,
// powers in kW. DischargingPowerLimit is signed: discharge is negative.
type StorageParams struct {
	MaxCapacity           float64         `json:"max_capacity" yaml:"max_capacity"`
	DepthOfDischargeLimit float64         `json:"depth_of_discharge_limit" yaml:"depth_of_discharge_limit"`
	ChargingPowerLimit    float64         `json:"charging_power_limit" yaml:"charging_power_limit"`
	DischargingPowerLimit float64         `json:"discharging_power_limit" yaml:"discharging_power_limit"`
	ChargingEfficiency    float64         `json:"charging_efficiency" yaml:"charging_efficiency"`
	DischargingEfficiency float64         `json:"discharging_efficiency" yaml:"discharging_efficiency"`
	ThroughputCost        float64         `json:"throughput_cost" yaml:"throughput_cost"`
	InitialStateOfCharge  float64         `json:"initial_state_of_charge" yaml:"initial_state_of_charge"`
	FinalStateOfChargeMin *float64        `json:"final_state_of_charge_min,omitempty" yaml:"final_state_of_charge_min"`
	FixedDispatch         map[int]float64 `json:"fixed_dispatch,omitempty" yaml:"fixed_dispatch"`
	StoredEnergyValue     *float64        `json:"stored_energy_value,omitempty" yaml:"stored_energy_value"`
}

// EnergyStorage is a validated, read-only battery description.
type EnergyStorage struct {
	p StorageParams
}

// NewEnergyStorage validates p and returns an EnergyStorage holding a
// private copy of it.
func NewEnergyStorage(p StorageParams) (*EnergyStorage, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &EnergyStorage{p: copyParams(p)}, nil
}

//gocyclo:ignore
func (p StorageParams) validate() error {
	for name, v := range map[string]float64{
		"max_capacity":             p.MaxCapacity,
		"depth_of_discharge_limit": p.DepthOfDischargeLimit,
		"charging_power_limit":     p.ChargingPowerLimit,
		"discharging_power_limit":  p.DischargingPowerLimit,
		"charging_efficiency":      p.ChargingEfficiency,
		"discharging_efficiency":   p.DischargingEfficiency,
		"throughput_cost":          p.ThroughputCost,
		"initial_state_of_charge":  p.InitialStateOfCharge,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("%s must be finite", name)
		}
	}
	if p.MaxCapacity < 0 {
		return invalidf("max_capacity %v is negative", p.MaxCapacity)
	}
	if !unit(p.DepthOfDischargeLimit) {
		return invalidf("depth_of_discharge_limit %v outside [0,1]", p.DepthOfDischargeLimit)
	}
	if !unit(p.ChargingEfficiency) {
		return invalidf("charging_efficiency %v outside [0,1]", p.ChargingEfficiency)
	}
	if !unit(p.DischargingEfficiency) {
		return invalidf("discharging_efficiency %v outside [0,1]", p.DischargingEfficiency)
	}
	if p.ChargingPowerLimit < 0 {
		return invalidf("charging_power_limit %v is negative", p.ChargingPowerLimit)
	}
	if p.DischargingPowerLimit > 0 {
		return invalidf("discharging_power_limit %v must be zero or negative", p.DischargingPowerLimit)
	}
	if p.InitialStateOfCharge < 0 || p.InitialStateOfCharge > p.MaxCapacity {
		return invalidf("initial_state_of_charge %v outside [0,%v]", p.InitialStateOfCharge, p.MaxCapacity)
	}
	if f := p.FinalStateOfChargeMin; f != nil {
		if math.IsNaN(*f) || *f < 0 || *f > p.MaxCapacity {
			return invalidf("final_state_of_charge_min %v outside [0,%v]", *f, p.MaxCapacity)
		}
	}
	if v := p.StoredEnergyValue; v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return invalidf("stored_energy_value must be finite")
	}
	for k, v := range p.FixedDispatch {
		if k < 0 {
			return invalidf("fixed_dispatch interval %d is negative", k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("fixed_dispatch[%d] must be finite", k)
		}
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

func (s *EnergyStorage) MaxCapacity() float64           { return s.p.MaxCapacity }
func (s *EnergyStorage) DepthOfDischargeLimit() float64 { return s.p.DepthOfDischargeLimit }
func (s *EnergyStorage) ChargingPowerLimit() float64    { return s.p.ChargingPowerLimit }
func (s *EnergyStorage) DischargingPowerLimit() float64 { return s.p.DischargingPowerLimit }
func (s *EnergyStorage) ChargingEfficiency() float64    { return s.p.ChargingEfficiency }
func (s *EnergyStorage) DischargingEfficiency() float64 { return s.p.DischargingEfficiency }
func (s *EnergyStorage) ThroughputCost() float64        { return s.p.ThroughputCost }
func (s *EnergyStorage) InitialStateOfCharge() float64  { return s.p.InitialStateOfCharge }

// UsableCapacity is the capacity left once the depth of discharge reserve
// is removed.
func (s *EnergyStorage) UsableCapacity() float64 {
	return s.p.MaxCapacity * (1 - s.p.DepthOfDischargeLimit)
}

// FinalStateOfChargeMin reports the terminal SoC floor, if any.
func (s *EnergyStorage) FinalStateOfChargeMin() (float64, bool) {
	if s.p.FinalStateOfChargeMin == nil {
		return 0, false
	}
	return *s.p.FinalStateOfChargeMin, true
}

// StoredEnergyValue reports the terminal valuation of stored energy, if any.
func (s *EnergyStorage) StoredEnergyValue() (float64, bool) {
	if s.p.StoredEnergyValue == nil {
		return 0, false
	}
	return *s.p.StoredEnergyValue, true
}

// FixedDispatch returns the forced net storage flow for interval i.
func (s *EnergyStorage) FixedDispatch(i int) (float64, bool) {
	v, ok := s.p.FixedDispatch[i]
	return v, ok
}

// FixedIntervals lists the intervals carrying a fixed dispatch value in
// ascending order.
func (s *EnergyStorage) FixedIntervals() []int {
	out := make([]int, 0, len(s.p.FixedDispatch))
	for k := range s.p.FixedDispatch {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Params returns a copy of the parameters the storage was built from.
func (s *EnergyStorage) Params() StorageParams {
	return copyParams(s.p)
}

func copyParams(p StorageParams) StorageParams {
	cp := p
	if p.FinalStateOfChargeMin != nil {
		v := *p.FinalStateOfChargeMin
		cp.FinalStateOfChargeMin = &v
	}
	if p.StoredEnergyValue != nil {
		v := *p.StoredEnergyValue
		cp.StoredEnergyValue = &v
	}
	cp.FixedDispatch = nil
	if len(p.FixedDispatch) > 0 {
		cp.FixedDispatch = make(map[int]float64, len(p.FixedDispatch))
		for k, v := range p.FixedDispatch {
			cp.FixedDispatch[k] = v
		}
	}
	return cp
}
