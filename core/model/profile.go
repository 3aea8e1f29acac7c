package model

import "math"

// Generation is a per-interval generation profile in kWh. Values follow the
// export sign convention and are never positive.
type Generation struct {
	values     []float64
	peakRating float64
}

// NewGeneration validates and copies the generation profile.
func NewGeneration(values []float64, peakRating float64) (*Generation, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidf("generation[%d] must be finite", i)
		}
		if v > 0 {
			return nil, invalidf("generation[%d] = %v is positive", i, v)
		}
	}
	if peakRating < 0 || math.IsNaN(peakRating) {
		return nil, invalidf("generation peak_rating %v is negative", peakRating)
	}
	return &Generation{values: clone(values), peakRating: peakRating}, nil
}

func (g *Generation) Len() int            { return len(g.values) }
func (g *Generation) At(i int) float64    { return g.values[i] }
func (g *Generation) Values() []float64   { return clone(g.values) }
func (g *Generation) PeakRating() float64 { return g.peakRating }

// Demand is a per-interval consumption profile in kWh, never negative.
type Demand struct {
	values []float64
}

// NewDemand validates and copies the demand profile.
func NewDemand(values []float64) (*Demand, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidf("demand[%d] must be finite", i)
		}
		if v < 0 {
			return nil, invalidf("demand[%d] = %v is negative", i, v)
		}
	}
	return &Demand{values: clone(values)}, nil
}

func (d *Demand) Len() int          { return len(d.values) }
func (d *Demand) At(i int) float64  { return d.values[i] }
func (d *Demand) Values() []float64 { return clone(d.values) }

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
