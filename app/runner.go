// Package app runs batches of optimisation scenarios and fans the results
// out to the configured outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/storageopt/config"
	"github.com/kilianp07/storageopt/core/events"
	"github.com/kilianp07/storageopt/core/logger"
	coremetrics "github.com/kilianp07/storageopt/core/metrics"
	"github.com/kilianp07/storageopt/core/monitoring"
	coremqtt "github.com/kilianp07/storageopt/core/mqtt"
	"github.com/kilianp07/storageopt/core/optimiser"
	"github.com/kilianp07/storageopt/core/runlog"
	"github.com/kilianp07/storageopt/core/scenario"
	"github.com/kilianp07/storageopt/core/solver"
	"github.com/kilianp07/storageopt/internal/eventbus"
	"github.com/kilianp07/storageopt/pkg/export"
)

// Runner optimises scenarios independently of each other. Each run gets its
// own engine instance and optimiser; nothing is shared between runs except
// the output sinks.
type Runner struct {
	parallelism int
	outputDir   string
	formats     []export.Format
	defaults    optimiser.Options
	engine      solver.Config

	sink  coremetrics.MetricsSink
	store runlog.Store
	pub   coremqtt.Publisher
	bus   *eventbus.Bus[any]
	log   logger.Logger
	now   func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

func WithMetrics(s coremetrics.MetricsSink) Option { return func(r *Runner) { r.sink = s } }
func WithRunLog(s runlog.Store) Option             { return func(r *Runner) { r.store = s } }
func WithPublisher(p coremqtt.Publisher) Option    { return func(r *Runner) { r.pub = p } }
func WithBus(b *eventbus.Bus[any]) Option          { return func(r *Runner) { r.bus = b } }
func WithLogger(l logger.Logger) Option            { return func(r *Runner) { r.log = l } }

// NewRunner builds a Runner from the runner, optimiser and solver sections
// of the configuration. Outputs default to no-ops.
func NewRunner(cfg config.RunnerConfig, opt config.OptimiserConfig, engine solver.Config, opts ...Option) (*Runner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	formats, err := export.ParseFormats(cfg.Formats)
	if err != nil {
		return nil, err
	}
	engine.SetDefaults()
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		parallelism: cfg.Parallelism,
		outputDir:   cfg.OutputDir,
		formats:     formats,
		defaults: optimiser.Options{
			BigM:     opt.BigM,
			SmallM:   opt.SmallM,
			Decimals: opt.Decimals,
		},
		engine: engine,
		sink:   coremetrics.NopSink{},
		store:  runlog.NopStore{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = logger.OrNop(r.log)
	return r, nil
}

// Outcome is the result of one scenario run.
type Outcome struct {
	RunID    string
	Scenario string
	Status   runlog.Status
	Result   *optimiser.Result
	Files    []string
	Err      error
}

// Run optimises every scenario file with at most the configured number of
// runs in flight. A failing scenario does not stop the others; the returned
// error joins every run error. Outcomes keep the order of paths.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Outcome, error) {
	out := make([]Outcome, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			out[i] = r.RunFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range out {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Scenario, o.Err))
		}
	}
	return out, errors.Join(errs...)
}

// RunFile loads and runs one scenario file.
func (r *Runner) RunFile(ctx context.Context, path string) Outcome {
	f, err := scenario.Load(path)
	if err == nil {
		var sc *scenario.Scenario
		if sc, err = f.Build(r.defaults); err == nil {
			return r.RunScenario(ctx, sc)
		}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if f != nil && f.Name != "" {
		name = f.Name
	}
	rn := r.begin(name, "")
	return r.finish(ctx, rn, nil, nil, err)
}

type run struct {
	id       string
	scenario string
	variant  string
	engine   string
	start    time.Time
	stats    optimiser.Stats
}

func (r *Runner) begin(name string, variant optimiser.Variant) run {
	rn := run{
		id:       uuid.NewString(),
		scenario: name,
		variant:  string(variant),
		engine:   r.engine.Engine,
		start:    r.now(),
	}
	r.publish(events.RunStarted{RunID: rn.id, Scenario: rn.scenario, Variant: rn.variant, Engine: rn.engine, Time: rn.start})
	return rn
}

// RunScenario builds, solves and exports one scenario.
func (r *Runner) RunScenario(ctx context.Context, sc *scenario.Scenario) Outcome {
	rn := r.begin(sc.Name, sc.Variant)
	engine, err := solver.New(r.engine)
	if err != nil {
		return r.finish(ctx, rn, sc, nil, err)
	}
	rn.engine = engine.Name()

	opts := sc.Options
	opts.Logger = r.log
	o, err := optimiser.New(sc.Variant, sc.System, opts)
	if err != nil {
		return r.finish(ctx, rn, sc, nil, err)
	}
	r.log.Infof("run %s: optimising %s (%s, %d variables, %d binaries) with %s",
		rn.id, sc.Name, sc.Variant, o.Stats().Variables, o.Stats().Binaries, rn.engine)
	res, err := optimise(ctx, o, engine)
	rn.stats = o.Stats()
	return r.finish(ctx, rn, sc, res, err)
}

// optimise converts an engine panic into a run error.
func optimise(ctx context.Context, o *optimiser.Optimiser, engine solver.Solver) (res *optimiser.Result, err error) {
	defer monitoring.RecoverError(&err)
	return o.Optimise(ctx, engine)
}

func (r *Runner) finish(ctx context.Context, rn run, sc *scenario.Scenario, res *optimiser.Result, err error) Outcome {
	out := Outcome{RunID: rn.id, Scenario: rn.scenario, Result: res, Err: err}
	if err == nil && res != nil {
		out.Files, out.Err = r.deliver(ctx, rn, sc, res)
	}
	out.Status = statusOf(out.Err)

	ev := coremetrics.RunEvent{
		RunID:    rn.id,
		Scenario: rn.scenario,
		Variant:  rn.variant,
		Engine:   rn.engine,
		Status:   string(out.Status),
		Time:     rn.start,
	}
	rec := runlog.Record{
		ID:        rn.id,
		Timestamp: rn.start,
		Scenario:  rn.scenario,
		Variant:   rn.variant,
		Engine:    rn.engine,
		Status:    out.Status,
	}
	if sc != nil {
		for _, k := range sc.Options.Objectives {
			rec.Objectives = append(rec.Objectives, string(k))
		}
	}
	if res != nil {
		ev.Objective, rec.Objective = res.Objective, res.Objective
		ev.Intervals, rec.Intervals = res.Intervals, res.Intervals
		rec.SolveStatus = res.Status.String()
	}
	st := rn.stats
	ev.Variables, rec.Variables = st.Variables, st.Variables
	ev.Binaries, rec.Binaries = st.Binaries, st.Binaries
	ev.Constraints, rec.Constraints = st.Constraints, st.Constraints
	ev.BuildTime, ev.SolveTime = st.BuildTime, st.SolveTime
	rec.BuildMillis = millis(st.BuildTime)
	rec.SolveMillis = millis(st.SolveTime)
	if out.Err != nil {
		rec.Error = out.Err.Error()
		r.log.Errorf("run %s: %s failed: %v", rn.id, rn.scenario, out.Err)
		monitoring.CaptureException(out.Err, map[string]string{
			"module":   "runner",
			"scenario": rn.scenario,
			"engine":   rn.engine,
			"variant":  rn.variant,
			"status":   string(out.Status),
		})
	} else {
		r.log.Infof("run %s: %s %s objective=%.6g", rn.id, rn.scenario, res.Status, res.Objective)
	}

	if mErr := r.sink.RecordRun(ev); mErr != nil {
		r.log.Warnf("run %s: record metrics: %v", rn.id, mErr)
	}
	if res != nil && out.Err == nil {
		if sr, ok := r.sink.(coremetrics.ScheduleRecorder); ok {
			sev := coremetrics.ScheduleEvent{
				RunID:           rn.id,
				Scenario:        rn.scenario,
				Variant:         rn.variant,
				Start:           sc.Start,
				IntervalMinutes: sc.Options.IntervalMinutes,
				Series:          res.Series,
			}
			if mErr := sr.RecordSchedule(sev); mErr != nil {
				r.log.Warnf("run %s: record schedule: %v", rn.id, mErr)
			}
		}
	}
	// The history is written even when the caller's context is cancelled.
	if lErr := r.store.Append(context.WithoutCancel(ctx), rec); lErr != nil {
		r.log.Warnf("run %s: append run log: %v", rn.id, lErr)
	}
	r.publish(events.RunFinished{Run: ev, Err: out.Err})
	return out
}

// deliver writes the export files and publishes the schedule.
func (r *Runner) deliver(ctx context.Context, rn run, sc *scenario.Scenario, res *optimiser.Result) ([]string, error) {
	var files []string
	if r.outputDir != "" && len(r.formats) > 0 {
		s := export.Schedule{
			Name:            sc.Name,
			RunID:           rn.id,
			Start:           sc.Start,
			IntervalMinutes: sc.Options.IntervalMinutes,
			Result:          res,
		}
		var err error
		if files, err = export.WriteFiles(r.outputDir, s, r.formats); err != nil {
			return files, fmt.Errorf("export: %w", err)
		}
	}
	if r.pub != nil {
		msg := coremqtt.ScheduleMessage{
			RunID:           rn.id,
			Scenario:        sc.Name,
			Variant:         rn.variant,
			Status:          res.Status.String(),
			Objective:       res.Objective,
			IntervalMinutes: sc.Options.IntervalMinutes,
			Series:          res.Series,
		}
		if !sc.Start.IsZero() {
			start := sc.Start
			msg.Start = &start
		}
		if _, err := r.pub.PublishSchedule(ctx, msg); err != nil {
			return files, err
		}
	}
	return files, nil
}

func (r *Runner) publish(e any) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

func statusOf(err error) runlog.Status {
	switch {
	case err == nil:
		return runlog.StatusOK
	case errors.Is(err, solver.ErrInfeasible):
		return runlog.StatusInfeasible
	default:
		return runlog.StatusFailed
	}
}

func millis(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
