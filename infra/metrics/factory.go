package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/storageopt/core/factory"
	coremetrics "github.com/kilianp07/storageopt/core/metrics"
)

// InfluxConfig configures the influx sink. Unless NoFallback is set, an
// unhealthy instance is replaced by a no-op sink at startup.
type InfluxConfig struct {
	URL        string `json:"url"`
	Token      string `json:"token"`
	Org        string `json:"org"`
	Bucket     string `json:"bucket"`
	NoFallback bool   `json:"no_fallback"`
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", newPromSink)
	_ = coremetrics.RegisterMetricsSink("influx", newInfluxSink)
}

func newPromSink(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c PromConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewPromSinkWithRegistry(c, prometheus.DefaultRegisterer)
}

func newInfluxSink(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.URL == "" || c.Bucket == "" {
		return nil, fmt.Errorf("influx sink: url and bucket are required")
	}
	if c.NoFallback {
		return NewInfluxSink(c.URL, c.Token, c.Org, c.Bucket), nil
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}
