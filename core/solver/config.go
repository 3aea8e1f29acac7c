package solver

import (
	"fmt"
	"os"
	"strings"
)

// DefaultEngine is the in-process engine used when no engine is configured.
const DefaultEngine = "gonum"

// Environment variables overriding the configured engine.
const (
	EnvEngine     = "OPTIMISER_ENGINE"
	EnvExecutable = "OPTIMISER_ENGINE_EXECUTABLE"
)

// Config selects an engine and carries its settings.
type Config struct {
	Engine     string         `json:"engine"`
	Executable string         `json:"executable"`
	Options    map[string]any `json:"options"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if strings.TrimSpace(c.Engine) == "" {
		c.Engine = DefaultEngine
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Engine) == "" {
		return fmt.Errorf("solver: engine required")
	}
	return nil
}

// FromEnv returns a copy of c with the engine and executable replaced by
// the OPTIMISER_ENGINE and OPTIMISER_ENGINE_EXECUTABLE variables when set.
func (c Config) FromEnv() Config {
	return c.withLookup(os.LookupEnv)
}

func (c Config) withLookup(lookup func(string) (string, bool)) Config {
	if v, ok := lookup(EnvEngine); ok && strings.TrimSpace(v) != "" {
		c.Engine = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvExecutable); ok && strings.TrimSpace(v) != "" {
		c.Executable = strings.TrimSpace(v)
	}
	return c
}

// moduleConf flattens the config into the raw map handed to engine
// factories.
func (c Config) moduleConf() map[string]any {
	conf := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		conf[k] = v
	}
	if c.Executable != "" {
		conf["executable"] = c.Executable
	}
	return conf
}
