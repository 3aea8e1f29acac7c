package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	runs      int
	schedules int
	err       error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordSchedule(ScheduleEvent) error {
	r.schedules++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunEvent{Scenario: "a"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordSchedule(ScheduleEvent{}); err != nil {
		t.Fatalf("record schedule: %v", err)
	}
	if s1.runs != 1 || s2.runs != 1 || s1.schedules != 1 {
		t.Fatalf("events not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSink_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	if err := NewMultiSink(s1, s2).RecordRun(RunEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.runs != 0 {
		t.Fatalf("second sink should not be called")
	}
}
