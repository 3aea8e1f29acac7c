package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/storageopt/app/plugins"
	"github.com/kilianp07/storageopt/config"
	"github.com/kilianp07/storageopt/core/monitoring"
	coremqtt "github.com/kilianp07/storageopt/core/mqtt"
	"github.com/kilianp07/storageopt/core/runlog"
	"github.com/kilianp07/storageopt/infra/logger"
	"github.com/kilianp07/storageopt/internal/eventbus"
)

// Service wires a Runner to the outputs named in the configuration.
type Service struct {
	Runner *Runner
	Store  runlog.Store
	bus    *eventbus.Bus[any]
	pub    coremqtt.Publisher
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if err := logger.SetFormat(cfg.Log.Format); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	if err := plugins.InitMonitoring(cfg.Sentry); err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	sink, err := plugins.NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	store, err := plugins.NewRunLog(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	pub, err := plugins.NewPublisher(cfg.MQTT)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	bus := eventbus.New[any](eventbus.DefaultBuffer * 4)
	opts := []Option{
		WithMetrics(sink),
		WithRunLog(store),
		WithBus(bus),
		WithLogger(logger.New("runner")),
	}
	if pub != nil {
		opts = append(opts, WithPublisher(pub))
	}
	runner, err := NewRunner(cfg.Runner, cfg.Optimiser, cfg.Solver, opts...)
	if err != nil {
		_ = store.Close()
		if pub != nil {
			pub.Close()
		}
		return nil, err
	}
	return &Service{Runner: runner, Store: store, bus: bus, pub: pub, log: logg}, nil
}

// Events subscribes to run progress. The channel is closed by Close.
func (s *Service) Events() <-chan any { return s.bus.Subscribe() }

// Run optimises the scenario files.
func (s *Service) Run(ctx context.Context, paths []string) ([]Outcome, error) {
	s.log.Infof("running %d scenario(s)", len(paths))
	return s.Runner.Run(ctx, paths)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.pub != nil {
		s.pub.Close()
	}
	monitoring.Flush(2 * time.Second)
	return s.Store.Close()
}
