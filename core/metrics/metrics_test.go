package metrics

import (
	"testing"
	"time"
)

func TestScheduleEvent_IntervalTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := ScheduleEvent{Start: start, IntervalMinutes: 30}
	if got := ev.IntervalTime(3); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("unexpected time %v", got)
	}
	ev.IntervalMinutes = 7.5
	if got := ev.IntervalTime(2); !got.Equal(start.Add(15 * time.Minute)) {
		t.Fatalf("unexpected time %v", got)
	}
}
