package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/storageopt/config"
	"github.com/kilianp07/storageopt/core/runlog"
)

// RunLogFactory builds a run history store from its configuration.
type RunLogFactory func(cfg config.RunLogConfig) (runlog.Store, error)

var RunLogs = map[string]RunLogFactory{}

func RegisterRunLog(name string, f RunLogFactory) { RunLogs[name] = f }

// NewRunLog opens the store selected by cfg.Backend.
func NewRunLog(cfg config.RunLogConfig) (runlog.Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, ok := RunLogs[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown run log backend %q", cfg.Backend)
	}
	return f(cfg)
}

// RunLogBackends lists the registered backends in sorted order.
func RunLogBackends() []string {
	out := make([]string, 0, len(RunLogs))
	for k := range RunLogs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
