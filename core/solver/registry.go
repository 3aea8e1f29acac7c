package solver

import (
	"errors"
	"fmt"

	"github.com/kilianp07/storageopt/core/factory"
)

var engineRegistry = factory.NewRegistry[Solver]()

// Register adds an engine factory identified by name.
func Register(name string, f factory.Factory[Solver]) error {
	return engineRegistry.Register(name, f)
}

// New creates the engine selected by cfg.
func New(cfg Config) (Solver, error) {
	cfg.SetDefaults()
	s, err := engineRegistry.Create(factory.ModuleConfig{Type: cfg.Engine, Conf: cfg.moduleConf()})
	if errors.Is(err, factory.ErrUnknownModule) {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownEngine, cfg.Engine, Engines())
	}
	if err != nil {
		return nil, fmt.Errorf("solver %s: %w", cfg.Engine, err)
	}
	return s, nil
}

// Engines lists the registered engine names.
func Engines() []string { return engineRegistry.Names() }
