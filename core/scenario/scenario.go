// Package scenario reads optimisation scenarios from YAML or JSON files and
// turns them into an energy system and optimiser options.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/storageopt/core/model"
	"github.com/kilianp07/storageopt/core/optimiser"
)

var ErrScenario = errors.New("invalid scenario")

// DefaultIntervalMinutes applies when a scenario leaves interval_minutes
// unset.
const DefaultIntervalMinutes = 30

// File is the on-disk scenario description.
type File struct {
	Name            string              `json:"name" yaml:"name"`
	Variant         string              `json:"variant" yaml:"variant"`
	IntervalMinutes float64             `json:"interval_minutes" yaml:"interval_minutes"`
	Intervals       int                 `json:"intervals,omitempty" yaml:"intervals"`
	Start           time.Time           `json:"start" yaml:"start"`
	Objectives      []string            `json:"objectives,omitempty" yaml:"objectives"`
	ObjectiveSet    string              `json:"objective_set,omitempty" yaml:"objective_set"`
	Storage         model.StorageParams `json:"storage" yaml:"storage"`
	Demand          []float64           `json:"demand,omitempty" yaml:"demand"`
	Generation      []float64           `json:"generation,omitempty" yaml:"generation"`
	GenerationPeak  float64             `json:"generation_peak,omitempty" yaml:"generation_peak"`
	// Profile is a CSV file with demand and generation columns. A relative
	// path is resolved against the scenario file.
	Profile        string                   `json:"profile,omitempty" yaml:"profile"`
	Tariff         *TariffSpec              `json:"tariff,omitempty" yaml:"tariff"`
	LocalTariff    *model.LocalTariffParams `json:"local_tariff,omitempty" yaml:"local_tariff"`
	DemandTariff   *DemandTariffSpec        `json:"demand_tariff,omitempty" yaml:"demand_tariff"`
	CapacityPrices *CapacityPricesSpec      `json:"capacity_prices,omitempty" yaml:"capacity_prices"`
	ExportLimit    *float64                 `json:"export_limit,omitempty" yaml:"export_limit"`
	IsHybrid       bool                     `json:"is_hybrid,omitempty" yaml:"is_hybrid"`
	BigM           *float64                 `json:"big_m,omitempty" yaml:"big_m"`
	SmallM         *float64                 `json:"small_m,omitempty" yaml:"small_m"`
	Decimals       *int                     `json:"decimals,omitempty" yaml:"decimals"`

	dir string
}

// TariffSpec gives import and export prices either as explicit per-interval
// arrays or as time-of-use periods.
type TariffSpec struct {
	Import  []float64 `json:"import,omitempty" yaml:"import"`
	Export  []float64 `json:"export,omitempty" yaml:"export"`
	Periods []Period  `json:"periods,omitempty" yaml:"periods"`
}

type DemandTariffSpec struct {
	Active        []float64 `json:"active,omitempty" yaml:"active"`
	Periods       []Period  `json:"periods,omitempty" yaml:"periods"`
	Cost          float64   `json:"cost" yaml:"cost"`
	MinimumDemand float64   `json:"minimum_demand" yaml:"minimum_demand"`
}

type CapacityPricesSpec struct {
	Charge    []float64 `json:"charge" yaml:"charge"`
	Discharge []float64 `json:"discharge" yaml:"discharge"`
}

// Scenario is a validated, ready to optimise scenario.
type Scenario struct {
	Name    string
	Variant optimiser.Variant
	Start   time.Time
	System  *model.EnergySystem
	Options optimiser.Options
}

// Load reads a scenario file. The format follows the extension: .yaml and
// .yml are YAML, .json is JSON.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(data []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScenario, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScenario, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrScenario, ext)
	}
	return &f, nil
}

// Build validates the file and assembles the energy system. base carries
// the configured optimiser defaults; values set in the file override them.
func (f *File) Build(base optimiser.Options) (*Scenario, error) {
	variant, err := optimiser.ParseVariant(f.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScenario, err)
	}
	opts := base
	opts.IntervalMinutes = f.IntervalMinutes
	if opts.IntervalMinutes == 0 {
		opts.IntervalMinutes = DefaultIntervalMinutes
	}
	if opts.IntervalMinutes < 0 {
		return nil, fmt.Errorf("%w: interval_minutes %v", ErrScenario, f.IntervalMinutes)
	}
	opts.Intervals = f.Intervals
	if f.BigM != nil {
		opts.BigM = *f.BigM
	}
	if f.SmallM != nil {
		opts.SmallM = *f.SmallM
	}
	if f.Decimals != nil {
		d := *f.Decimals
		opts.Decimals = &d
	}
	if opts.Objectives, err = f.objectives(variant); err != nil {
		return nil, err
	}

	sys, err := f.system(opts.IntervalMinutes)
	if err != nil {
		return nil, err
	}
	return &Scenario{
		Name:    f.Name,
		Variant: variant,
		Start:   f.Start,
		System:  sys,
		Options: opts,
	}, nil
}

var defaultSets = map[optimiser.Variant]string{
	optimiser.BTM:   "financial",
	optimiser.Local: "local_models",
}

// objectives expands objective_set and appends the explicit objectives.
// With neither given the variant's default set applies.
func (f *File) objectives(v optimiser.Variant) ([]optimiser.ObjectiveKind, error) {
	set := f.ObjectiveSet
	if set == "" && len(f.Objectives) == 0 {
		set = defaultSets[v]
	}
	var out []optimiser.ObjectiveKind
	if set != "" {
		kinds, err := optimiser.ObjectiveSet(set)
		if err != nil {
			return nil, err
		}
		out = kinds
	}
	for _, o := range f.Objectives {
		out = append(out, optimiser.ObjectiveKind(o))
	}
	return out, nil
}

func (f *File) profiles() (demand, generation []float64, err error) {
	if f.Profile == "" {
		return f.Demand, f.Generation, nil
	}
	if len(f.Demand) > 0 || len(f.Generation) > 0 {
		return nil, nil, fmt.Errorf("%w: profile and inline demand/generation are exclusive", ErrScenario)
	}
	path := f.Profile
	if !filepath.IsAbs(path) && f.dir != "" {
		path = filepath.Join(f.dir, path)
	}
	p, err := ReadProfileFile(path)
	if err != nil {
		return nil, nil, err
	}
	return p.Demand, p.Generation, nil
}

func (f *File) system(intervalMinutes float64) (*model.EnergySystem, error) {
	demandValues, genValues, err := f.profiles()
	if err != nil {
		return nil, err
	}
	if len(genValues) == 0 && len(demandValues) > 0 {
		genValues = make([]float64, len(demandValues))
	}
	if len(demandValues) == 0 && len(genValues) > 0 {
		demandValues = make([]float64, len(genValues))
	}
	if len(demandValues) == 0 {
		return nil, fmt.Errorf("%w: no demand or generation profile", ErrScenario)
	}

	storage, err := model.NewEnergyStorage(f.Storage)
	if err != nil {
		return nil, err
	}
	demand, err := model.NewDemand(demandValues)
	if err != nil {
		return nil, err
	}
	generation, err := model.NewGeneration(genValues, f.GenerationPeak)
	if err != nil {
		return nil, err
	}

	n := len(demandValues)
	if f.Intervals > 0 {
		n = f.Intervals
	}
	clock := Clock{Start: f.Start, IntervalMinutes: intervalMinutes}

	var opts []model.Option
	if f.Tariff != nil {
		t, err := f.Tariff.build(clock, n)
		if err != nil {
			return nil, err
		}
		opts = append(opts, model.WithTariff(t))
	}
	if f.LocalTariff != nil {
		t, err := model.NewLocalTariff(*f.LocalTariff)
		if err != nil {
			return nil, err
		}
		opts = append(opts, model.WithLocalTariff(t))
	}
	if f.DemandTariff != nil {
		t, err := f.DemandTariff.build(clock, n)
		if err != nil {
			return nil, err
		}
		opts = append(opts, model.WithDemandTariff(t))
	}
	if f.CapacityPrices != nil {
		cp, err := model.NewCapacityPrices(f.CapacityPrices.Charge, f.CapacityPrices.Discharge)
		if err != nil {
			return nil, err
		}
		opts = append(opts, model.WithCapacityPrices(cp))
	}
	if f.ExportLimit != nil {
		opts = append(opts, model.WithExportLimit(*f.ExportLimit))
	}
	if f.IsHybrid {
		opts = append(opts, model.WithHybrid(true))
	}
	return model.NewEnergySystem(storage, demand, generation, opts...)
}

func (t *TariffSpec) build(c Clock, n int) (*model.Tariff, error) {
	if len(t.Periods) == 0 {
		return model.NewTariff(t.Import, t.Export)
	}
	if len(t.Import) > 0 || len(t.Export) > 0 {
		return nil, fmt.Errorf("%w: tariff periods and arrays are exclusive", ErrScenario)
	}
	imp, exp, err := ExpandPrices(t.Periods, c, n)
	if err != nil {
		return nil, err
	}
	return model.NewTariff(imp, exp)
}

func (d *DemandTariffSpec) build(c Clock, n int) (*model.DemandTariff, error) {
	active := model.Series(d.Active)
	if len(d.Periods) > 0 {
		if len(d.Active) > 0 {
			return nil, fmt.Errorf("%w: demand tariff periods and active are exclusive", ErrScenario)
		}
		var err error
		if active, err = ExpandActive(d.Periods, c, n); err != nil {
			return nil, err
		}
	}
	return model.NewDemandTariff(active, d.Cost, d.MinimumDemand)
}
