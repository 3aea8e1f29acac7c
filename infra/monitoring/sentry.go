// Package monitoring reports run failures to Sentry.
package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/storageopt/config"
	coremon "github.com/kilianp07/storageopt/core/monitoring"
)

// NewSentryMonitor creates a Monitor backed by its own Sentry hub. An empty
// DSN returns a no-op monitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if !cfg.Enabled() {
		return coremon.NopMonitor{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	scope := sentry.NewScope()
	scope.SetTag("app", "storageopt")
	return &SentryMonitor{
		hub:              sentry.NewHub(client, scope),
		ignoreInfeasible: cfg.IgnoreInfeasible,
	}, nil
}

// SentryMonitor sends exceptions and panics to Sentry.
type SentryMonitor struct {
	hub              *sentry.Hub
	ignoreInfeasible bool
}

// CaptureException reports err with tags. Runs tagged status=infeasible are
// dropped when the monitor ignores infeasible runs.
func (s *SentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if s.ignoreInfeasible && tags["status"] == "infeasible" {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if name := tags["scenario"]; name != "" {
			scope.SetFingerprint([]string{"{{ default }}", name})
		}
		s.hub.CaptureException(err)
	})
}

func (s *SentryMonitor) CapturePanic(v any) { s.hub.Recover(v) }

func (s *SentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
