package config

import "fmt"

// SentryConfig configures error reporting for failed runs. An empty DSN
// disables it. IgnoreInfeasible drops reports of runs whose model had no
// feasible schedule.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	ServerName       string  `json:"server_name"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	IgnoreInfeasible bool    `json:"ignore_infeasible"`
}

func (c SentryConfig) Enabled() bool { return c.DSN != "" }

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("sentry.traces_sample_rate must be within [0, 1], got %g", c.TracesSampleRate)
	}
	return nil
}
