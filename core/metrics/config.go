package metrics

import "github.com/kilianp07/storageopt/core/factory"

// Config lists the sinks every run is recorded to.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Enabled reports whether any sink is configured.
func (c Config) Enabled() bool { return len(c.Sinks) > 0 }
