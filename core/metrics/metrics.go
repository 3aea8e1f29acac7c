package metrics

import "time"

// RunEvent describes one finished optimisation run.
type RunEvent struct {
	RunID       string
	Scenario    string
	Variant     string
	Engine      string
	Status      string
	Objective   float64
	Intervals   int
	Variables   int
	Binaries    int
	Constraints int
	BuildTime   time.Duration
	SolveTime   time.Duration
	Time        time.Time
}

// MetricsSink records optimisation runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// ScheduleEvent carries the extracted series of a successful run. Interval
// i starts at Start plus i interval durations.
type ScheduleEvent struct {
	RunID           string
	Scenario        string
	Variant         string
	Start           time.Time
	IntervalMinutes float64
	Series          map[string][]float64
}

// IntervalTime returns the start of interval i.
func (e ScheduleEvent) IntervalTime(i int) time.Time {
	return e.Start.Add(time.Duration(float64(i) * e.IntervalMinutes * float64(time.Minute)))
}

// ScheduleRecorder records dispatch schedules.
type ScheduleRecorder interface {
	RecordSchedule(ev ScheduleEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error           { return nil }
func (NopSink) RecordSchedule(ScheduleEvent) error { return nil }
