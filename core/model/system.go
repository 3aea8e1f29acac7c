package model

import "math"

// EnergySystem aggregates everything the optimiser needs to know about a
// site. It is assembled once and never mutated.
type EnergySystem struct {
	storage        *EnergyStorage
	demand         *Demand
	generation     *Generation
	tariff         *Tariff
	localTariff    *LocalTariff
	demandTariff   *DemandTariff
	capacityPrices *CapacityPrices
	exportLimit    *float64
	hybrid         bool
}

// Option attaches an optional component to an EnergySystem.
type Option func(*EnergySystem) error

func WithTariff(t *Tariff) Option {
	return func(s *EnergySystem) error { s.tariff = t; return nil }
}

func WithLocalTariff(t *LocalTariff) Option {
	return func(s *EnergySystem) error { s.localTariff = t; return nil }
}

func WithDemandTariff(t *DemandTariff) Option {
	return func(s *EnergySystem) error { s.demandTariff = t; return nil }
}

func WithCapacityPrices(p *CapacityPrices) Option {
	return func(s *EnergySystem) error { s.capacityPrices = p; return nil }
}

// WithExportLimit sets the site export limit in kW.
func WithExportLimit(kw float64) Option {
	return func(s *EnergySystem) error {
		if kw < 0 || math.IsNaN(kw) || math.IsInf(kw, 0) {
			return invalidf("export_limit %v must be a non-negative number", kw)
		}
		s.exportLimit = &kw
		return nil
	}
}

// WithHybrid marks the storage as sharing its inverter with generation.
func WithHybrid(hybrid bool) Option {
	return func(s *EnergySystem) error { s.hybrid = hybrid; return nil }
}

// NewEnergySystem assembles a system. Demand and generation must describe
// the same number of intervals.
func NewEnergySystem(storage *EnergyStorage, demand *Demand, generation *Generation, opts ...Option) (*EnergySystem, error) {
	if storage == nil {
		return nil, invalidf("energy storage is required")
	}
	if demand == nil {
		return nil, invalidf("demand profile is required")
	}
	if generation == nil {
		return nil, invalidf("generation profile is required")
	}
	if demand.Len() != generation.Len() {
		return nil, invalidf("demand has %d intervals, generation has %d", demand.Len(), generation.Len())
	}
	s := &EnergySystem{storage: storage, demand: demand, generation: generation}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *EnergySystem) Storage() *EnergyStorage         { return s.storage }
func (s *EnergySystem) Demand() *Demand                 { return s.demand }
func (s *EnergySystem) Generation() *Generation         { return s.generation }
func (s *EnergySystem) Tariff() *Tariff                 { return s.tariff }
func (s *EnergySystem) LocalTariff() *LocalTariff       { return s.localTariff }
func (s *EnergySystem) DemandTariff() *DemandTariff     { return s.demandTariff }
func (s *EnergySystem) CapacityPrices() *CapacityPrices { return s.capacityPrices }
func (s *EnergySystem) IsHybrid() bool                  { return s.hybrid }

// ExportLimit reports the site export limit in kW, if any.
func (s *EnergySystem) ExportLimit() (float64, bool) {
	if s.exportLimit == nil {
		return 0, false
	}
	return *s.exportLimit, true
}

// Horizon is the number of intervals described by the profiles.
func (s *EnergySystem) Horizon() int { return s.demand.Len() }

// ValidateHorizon checks that every attached series covers exactly the
// intervals 0..n-1 and that fixed dispatch values fall inside them.
//
//gocyclo:ignore
func (s *EnergySystem) ValidateHorizon(n int) error {
	if n <= 0 {
		return invalidf("horizon must contain at least one interval, got %d", n)
	}
	if s.demand.Len() != n {
		return invalidf("demand covers %d intervals, horizon is %d", s.demand.Len(), n)
	}
	if s.generation.Len() != n {
		return invalidf("generation covers %d intervals, horizon is %d", s.generation.Len(), n)
	}
	if s.tariff != nil {
		if err := s.tariff.covers(n); err != nil {
			return err
		}
	}
	if s.demandTariff != nil {
		if err := s.demandTariff.active.covers("active_periods", n); err != nil {
			return err
		}
	}
	if s.localTariff != nil {
		for _, e := range s.localTariff.p.named() {
			if err := e.s.covers(e.name, n); err != nil {
				return err
			}
		}
	}
	if s.capacityPrices != nil {
		if err := s.capacityPrices.charge.covers("charge_prices", n); err != nil {
			return err
		}
		if err := s.capacityPrices.discharge.covers("discharge_prices", n); err != nil {
			return err
		}
	}
	for _, i := range s.storage.FixedIntervals() {
		if i >= n {
			return invalidf("fixed_dispatch interval %d outside horizon of %d", i, n)
		}
	}
	return nil
}
