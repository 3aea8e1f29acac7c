package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/storageopt/core/metrics"
	"github.com/kilianp07/storageopt/infra/logger"
)

// InfluxSink writes runs and schedules to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one optimisation_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := tags(write.NewPointWithMeasurement("optimisation_run"),
		"scenario", ev.Scenario,
		"variant", ev.Variant,
		"engine", ev.Engine,
		"status", ev.Status).
		AddField("run_id", ev.RunID).
		AddField("objective", round3(ev.Objective)).
		AddField("intervals", ev.Intervals).
		AddField("variables", ev.Variables).
		AddField("binaries", ev.Binaries).
		AddField("constraints", ev.Constraints).
		AddField("build_ms", round3(ev.BuildTime.Seconds()*1000)).
		AddField("solve_ms", round3(ev.SolveTime.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSchedule writes one dispatch_schedule point per interval with a
// field per series.
func (s *InfluxSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	names := make([]string, 0, len(ev.Series))
	n := 0
	for name, vals := range ev.Series {
		names = append(names, name)
		n = max(n, len(vals))
	}
	if n == 0 {
		return nil
	}
	sort.Strings(names)
	points := make([]*write.Point, n)
	for i := range points {
		p := tags(write.NewPointWithMeasurement("dispatch_schedule"),
			"run_id", ev.RunID,
			"scenario", ev.Scenario,
			"variant", ev.Variant)
		for _, name := range names {
			if i < len(ev.Series[name]) {
				p.AddField(name, ev.Series[name][i])
			}
		}
		points[i] = p.SetTime(ev.IntervalTime(i))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// tags adds the non-empty key/value pairs kv as tags.
func tags(p *write.Point, kv ...string) *write.Point {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			p.AddTag(kv[i], kv[i+1])
		}
	}
	return p
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
