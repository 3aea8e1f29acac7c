package solver

import (
	"github.com/kilianp07/storageopt/core/factory"
	coresolver "github.com/kilianp07/storageopt/core/solver"
)

func externalFactory(ctor func(ExternalConfig) *External) factory.Factory[coresolver.Solver] {
	return func(conf map[string]any) (coresolver.Solver, error) {
		var c ExternalConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return ctor(c), nil
	}
}

// init registers the built-in engines.
func init() {
	_ = coresolver.Register("gonum", func(conf map[string]any) (coresolver.Solver, error) {
		var c GonumConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewGonum(c), nil
	})
	_ = coresolver.Register("cbc", externalFactory(NewCBC))
	_ = coresolver.Register("highs", externalFactory(NewHiGHS))
	_ = coresolver.Register("scip", externalFactory(NewSCIP))
	_ = coresolver.Register("cplex", externalFactory(NewCPLEX))
}
