// Package plugins wires the built-in engines, metrics sinks, run log
// stores and outputs to their configuration sections.
package plugins

import (
	"github.com/kilianp07/storageopt/config"
	coremetrics "github.com/kilianp07/storageopt/core/metrics"
	"github.com/kilianp07/storageopt/core/monitoring"
	coremqtt "github.com/kilianp07/storageopt/core/mqtt"
	"github.com/kilianp07/storageopt/core/runlog"
	_ "github.com/kilianp07/storageopt/infra/metrics"
	inframonitoring "github.com/kilianp07/storageopt/infra/monitoring"
	"github.com/kilianp07/storageopt/infra/mqtt"
	_ "github.com/kilianp07/storageopt/infra/solver"
)

func init() {
	RegisterRunLog("jsonl", func(cfg config.RunLogConfig) (runlog.Store, error) {
		if cfg.MaxSizeMB > 0 {
			return runlog.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return runlog.NewJSONLStore(cfg.Path)
	})
	RegisterRunLog("sqlite", func(cfg config.RunLogConfig) (runlog.Store, error) {
		return runlog.NewSQLiteStore(cfg.Path)
	})
}

// NewMetrics builds the configured sinks. With none configured it returns
// a no-op sink.
func NewMetrics(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	if !cfg.Enabled() {
		return coremetrics.NopSink{}, nil
	}
	return coremetrics.NewMetricsSink(cfg.Sinks)
}

// NewPublisher connects to the configured broker. It returns nil when no
// broker is configured.
func NewPublisher(cfg mqtt.Config) (coremqtt.Publisher, error) {
	if cfg.Broker == "" {
		return nil, nil
	}
	c, err := mqtt.NewPahoClient(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// InitMonitoring installs the Sentry monitor. An empty DSN keeps the no-op
// monitor.
func InitMonitoring(cfg config.SentryConfig) error {
	m, err := inframonitoring.NewSentryMonitor(cfg)
	if err != nil {
		return err
	}
	monitoring.Init(m)
	return nil
}
