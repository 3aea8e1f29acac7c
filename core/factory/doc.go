// Package factory instantiates pluggable modules (solver engines, metrics
// sinks) from configuration. A module is named by a type string and carries
// a map of raw settings that its factory decodes into a typed struct.
//
//	reg := factory.NewRegistry[solver.Solver]()
//	_ = reg.Register("cbc", func(conf map[string]any) (solver.Solver, error) {
//	    var c struct{ Executable string `json:"executable"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newCBC(c.Executable), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "cbc"})
package factory
