package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/storageopt/core/metrics"
)

// PromConfig configures the Prometheus sink. When PushURL is set every run
// is pushed to that Pushgateway under Job.
type PromConfig struct {
	PushURL string `json:"push_url"`
	Job     string `json:"job"`
}

// PromSink records optimisation runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	solve     *prometheus.HistogramVec
	build     *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	size      *prometheus.GaugeVec

	mu     sync.Mutex
	pusher *push.Pusher
}

// NewPromSink registers run metrics on the default Prometheus registry.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Pushing
// requires the registerer to also be a Gatherer.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"variant", "engine"}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimiser_runs_total",
		Help: "Total number of optimisation runs by outcome",
	}, append(labels, "status"))); err != nil {
		return nil, err
	}
	if s.solve, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimiser_solve_seconds",
		Help:    "Time spent in the solver engine",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, labels)); err != nil {
		return nil, err
	}
	if s.build, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimiser_build_seconds",
		Help:    "Time spent building the model",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, labels)); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optimiser_objective_value",
		Help: "Objective value of the last successful run",
	}, []string{"scenario", "variant"})); err != nil {
		return nil, err
	}
	if s.size, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optimiser_model_size",
		Help: "Size of the last built model",
	}, []string{"scenario", "kind"})); err != nil {
		return nil, err
	}

	if cfg.PushURL != "" {
		g, ok := reg.(prometheus.Gatherer)
		if !ok {
			return nil, errors.New("prometheus push needs a registry that is also a gatherer")
		}
		job := cfg.Job
		if job == "" {
			job = "storageopt"
		}
		s.pusher = push.New(cfg.PushURL, job).Gatherer(g)
	}
	return s, nil
}

// register adds c to reg, reusing an already registered collector of the
// same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// RecordRun updates the run metrics and pushes them when a Pushgateway is
// configured.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Variant, ev.Engine, ev.Status).Inc()
	if ev.Status == "ok" {
		s.solve.WithLabelValues(ev.Variant, ev.Engine).Observe(ev.SolveTime.Seconds())
		s.objective.WithLabelValues(ev.Scenario, ev.Variant).Set(ev.Objective)
	}
	if ev.Variables > 0 {
		s.build.WithLabelValues(ev.Variant, ev.Engine).Observe(ev.BuildTime.Seconds())
		s.size.WithLabelValues(ev.Scenario, "variables").Set(float64(ev.Variables))
		s.size.WithLabelValues(ev.Scenario, "binaries").Set(float64(ev.Binaries))
		s.size.WithLabelValues(ev.Scenario, "constraints").Set(float64(ev.Constraints))
		s.size.WithLabelValues(ev.Scenario, "intervals").Set(float64(ev.Intervals))
	}
	if s.pusher == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pusher.Push(); err != nil {
		return fmt.Errorf("push run %s: %w", strconv.Quote(ev.RunID), err)
	}
	return nil
}
