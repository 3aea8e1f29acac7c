package model

import (
	"math"
	"sort"
)

// Series is a price or flag per interval, indexed contiguously from zero.
type Series []float64

// SeriesFromMap converts an interval-indexed mapping into a Series. Keys
// must be exactly 0..len-1.
func SeriesFromMap(m map[int]float64) (Series, error) {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make(Series, len(keys))
	for i, k := range keys {
		if k != i {
			return nil, invalidf("interval mapping has a gap at %d", i)
		}
		out[i] = m[k]
	}
	return out, nil
}

func (s Series) check(name string) error {
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("%s[%d] must be finite", name, i)
		}
	}
	return nil
}

func (s Series) covers(name string, n int) error {
	if len(s) != n {
		return invalidf("%s covers %d intervals, horizon is %d", name, len(s), n)
	}
	return nil
}

// Tariff holds connection point import and export prices.
type Tariff struct {
	imp, exp Series
}

// NewTariff validates and copies the import and export prices.
func NewTariff(importTariff, exportTariff Series) (*Tariff, error) {
	if err := importTariff.check("import_tariff"); err != nil {
		return nil, err
	}
	if err := exportTariff.check("export_tariff"); err != nil {
		return nil, err
	}
	if len(importTariff) != len(exportTariff) {
		return nil, invalidf("import_tariff and export_tariff lengths differ (%d != %d)", len(importTariff), len(exportTariff))
	}
	return &Tariff{imp: Series(clone(importTariff)), exp: Series(clone(exportTariff))}, nil
}

func (t *Tariff) Import(i int) float64 { return t.imp[i] }
func (t *Tariff) Export(i int) float64 { return t.exp[i] }

func (t *Tariff) covers(n int) error {
	if err := t.imp.covers("import_tariff", n); err != nil {
		return err
	}
	return t.exp.covers("export_tariff", n)
}

// DemandTariff describes a demand charge applied to the peak import seen
// during active intervals.
type DemandTariff struct {
	active        Series
	cost          float64
	minimumDemand float64
}

// NewDemandTariff validates the active flags and charge parameters.
func NewDemandTariff(active Series, cost, minimumDemand float64) (*DemandTariff, error) {
	for i, v := range active {
		if v != 0 && v != 1 {
			return nil, invalidf("active_periods[%d] = %v is not 0 or 1", i, v)
		}
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, invalidf("demand charge cost must be finite")
	}
	if minimumDemand < 0 || math.IsNaN(minimumDemand) || math.IsInf(minimumDemand, 0) {
		return nil, invalidf("minimum_demand %v must be a non-negative number", minimumDemand)
	}
	return &DemandTariff{active: Series(clone(active)), cost: cost, minimumDemand: minimumDemand}, nil
}

func (d *DemandTariff) Active(i int) float64   { return d.active[i] }
func (d *DemandTariff) Cost() float64          { return d.cost }
func (d *DemandTariff) MinimumDemand() float64 { return d.minimumDemand }

// LocalTariffParams are the eight directional prices of a local energy
// market.
type LocalTariffParams struct {
	LocalEnergyImport     Series `json:"le_import" yaml:"le_import"`
	LocalEnergyExport     Series `json:"le_export" yaml:"le_export"`
	LocalTransportImport  Series `json:"lt_import" yaml:"lt_import"`
	LocalTransportExport  Series `json:"lt_export" yaml:"lt_export"`
	RemoteEnergyImport    Series `json:"re_import" yaml:"re_import"`
	RemoteEnergyExport    Series `json:"re_export" yaml:"re_export"`
	RemoteTransportImport Series `json:"rt_import" yaml:"rt_import"`
	RemoteTransportExport Series `json:"rt_export" yaml:"rt_export"`
}

func (p LocalTariffParams) named() []struct {
	name string
	s    Series
} {
	return []struct {
		name string
		s    Series
	}{
		{"le_import", p.LocalEnergyImport},
		{"le_export", p.LocalEnergyExport},
		{"lt_import", p.LocalTransportImport},
		{"lt_export", p.LocalTransportExport},
		{"re_import", p.RemoteEnergyImport},
		{"re_export", p.RemoteEnergyExport},
		{"rt_import", p.RemoteTransportImport},
		{"rt_export", p.RemoteTransportExport},
	}
}

// LocalTariff is the validated form of LocalTariffParams.
type LocalTariff struct {
	p LocalTariffParams
}

// NewLocalTariff checks that all eight series are finite and equally long.
func NewLocalTariff(p LocalTariffParams) (*LocalTariff, error) {
	n := len(p.LocalEnergyImport)
	for _, e := range p.named() {
		if err := e.s.check(e.name); err != nil {
			return nil, err
		}
		if len(e.s) != n {
			return nil, invalidf("local tariff %s has %d intervals, le_import has %d", e.name, len(e.s), n)
		}
	}
	cp := LocalTariffParams{
		LocalEnergyImport:     Series(clone(p.LocalEnergyImport)),
		LocalEnergyExport:     Series(clone(p.LocalEnergyExport)),
		LocalTransportImport:  Series(clone(p.LocalTransportImport)),
		LocalTransportExport:  Series(clone(p.LocalTransportExport)),
		RemoteEnergyImport:    Series(clone(p.RemoteEnergyImport)),
		RemoteEnergyExport:    Series(clone(p.RemoteEnergyExport)),
		RemoteTransportImport: Series(clone(p.RemoteTransportImport)),
		RemoteTransportExport: Series(clone(p.RemoteTransportExport)),
	}
	return &LocalTariff{p: cp}, nil
}

func (l *LocalTariff) LocalEnergyImport(i int) float64     { return l.p.LocalEnergyImport[i] }
func (l *LocalTariff) LocalEnergyExport(i int) float64     { return l.p.LocalEnergyExport[i] }
func (l *LocalTariff) LocalTransportImport(i int) float64  { return l.p.LocalTransportImport[i] }
func (l *LocalTariff) LocalTransportExport(i int) float64  { return l.p.LocalTransportExport[i] }
func (l *LocalTariff) RemoteEnergyImport(i int) float64    { return l.p.RemoteEnergyImport[i] }
func (l *LocalTariff) RemoteEnergyExport(i int) float64    { return l.p.RemoteEnergyExport[i] }
func (l *LocalTariff) RemoteTransportImport(i int) float64 { return l.p.RemoteTransportImport[i] }
func (l *LocalTariff) RemoteTransportExport(i int) float64 { return l.p.RemoteTransportExport[i] }

// CapacityPrices are the per-interval prices paid for reserved raise
// (discharge) and lower (charge) headroom.
type CapacityPrices struct {
	charge, discharge Series
}

// NewCapacityPrices validates and copies both price series.
func NewCapacityPrices(charge, discharge Series) (*CapacityPrices, error) {
	if err := charge.check("charge_prices"); err != nil {
		return nil, err
	}
	if err := discharge.check("discharge_prices"); err != nil {
		return nil, err
	}
	if len(charge) != len(discharge) {
		return nil, invalidf("charge_prices and discharge_prices lengths differ (%d != %d)", len(charge), len(discharge))
	}
	return &CapacityPrices{charge: Series(clone(charge)), discharge: Series(clone(discharge))}, nil
}

func (c *CapacityPrices) Charge(i int) float64    { return c.charge[i] }
func (c *CapacityPrices) Discharge(i int) float64 { return c.discharge[i] }
