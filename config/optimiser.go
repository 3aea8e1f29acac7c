package config

import (
	"fmt"
	"math"
)

// OptimiserConfig holds the defaults applied to every scenario. A scenario
// file may override each of them.
type OptimiserConfig struct {
	// BigM bounds the quantities switched off by binary indicators. Zero
	// derives it from each scenario's inputs.
	BigM float64 `json:"big_m"`
	// SmallM weights the tie-break objectives.
	SmallM float64 `json:"small_m"`
	// Decimals is the rounding of extracted series; unset keeps the
	// optimiser default and negative disables it.
	Decimals *int `json:"decimals"`
}

func (c OptimiserConfig) Validate() error {
	if c.BigM < 0 || math.IsNaN(c.BigM) || math.IsInf(c.BigM, 0) {
		return fmt.Errorf("optimiser: big_m must be a finite non-negative number")
	}
	if c.SmallM < 0 || math.IsNaN(c.SmallM) || math.IsInf(c.SmallM, 0) {
		return fmt.Errorf("optimiser: small_m must be a finite non-negative number")
	}
	return nil
}
