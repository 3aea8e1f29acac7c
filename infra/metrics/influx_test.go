package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/storageopt/core/metrics"
)

type capture struct {
	mu     sync.Mutex
	bodies []string
}

func (c *capture) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, strings.TrimSpace(string(data)))
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID:       "r1",
		Scenario:    "site-a",
		Variant:     "btm",
		Engine:      "gonum",
		Status:      "ok",
		Objective:   -4.25,
		Intervals:   48,
		Variables:   500,
		Binaries:    144,
		Constraints: 900,
		BuildTime:   2 * time.Millisecond,
		SolveTime:   1500 * time.Millisecond,
		Time:        now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("optimisation_run").
		AddTag("scenario", "site-a").
		AddTag("variant", "btm").
		AddTag("engine", "gonum").
		AddTag("status", "ok").
		AddField("run_id", "r1").
		AddField("objective", -4.25).
		AddField("intervals", 48).
		AddField("variables", 500).
		AddField("binaries", 144).
		AddField("constraints", 900).
		AddField("build_ms", 2.0).
		AddField("solve_ms", 1500.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(c.bodies) != 1 || c.bodies[0] != expected {
		t.Errorf("unexpected body: %#v", c.bodies)
	}
}

func TestInfluxSink_RecordRunSkipsEmptyTags(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	if err := sink.RecordRun(coremetrics.RunEvent{Scenario: "s", Status: "failed", Time: time.Now()}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(c.bodies) != 1 || strings.Contains(c.bodies[0], "engine=") || !strings.Contains(c.bodies[0], "status=failed") {
		t.Errorf("unexpected body: %#v", c.bodies)
	}
}

func TestInfluxSink_RecordSchedule(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := coremetrics.ScheduleEvent{
		RunID:           "r2",
		Scenario:        "site-b",
		Variant:         "local",
		Start:           start,
		IntervalMinutes: 30,
		Series: map[string][]float64{
			"storage_state_of_charge": {5, 2.5},
			"storage_charge_grid":     {0, 1.25},
		},
	}
	if err := sink.RecordSchedule(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	var lines []string
	for i, soc := range []float64{5, 2.5} {
		p := write.NewPointWithMeasurement("dispatch_schedule").
			AddTag("run_id", "r2").
			AddTag("scenario", "site-b").
			AddTag("variant", "local").
			AddField("storage_charge_grid", []float64{0, 1.25}[i]).
			AddField("storage_state_of_charge", soc).
			SetTime(start.Add(time.Duration(i) * 30 * time.Minute))
		lines = append(lines, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)))
	}
	if len(c.bodies) != 1 || c.bodies[0] != strings.Join(lines, "\n") {
		t.Errorf("unexpected body: %#v", c.bodies)
	}

	if err := sink.RecordSchedule(coremetrics.ScheduleEvent{}); err != nil {
		t.Fatalf("empty schedule: %v", err)
	}
	if len(c.bodies) != 1 {
		t.Fatalf("empty schedule should not write")
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestInfluxFactory(t *testing.T) {
	if _, err := newInfluxSink(map[string]any{"url": "http://localhost:8086"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
	s, err := newInfluxSink(map[string]any{
		"url":         "http://127.0.0.1:1",
		"bucket":      "runs",
		"no_fallback": true,
	})
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if _, ok := s.(*InfluxSink); !ok {
		t.Fatalf("expected InfluxSink without fallback, got %T", s)
	}
}
