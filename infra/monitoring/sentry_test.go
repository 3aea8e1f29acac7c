package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/storageopt/config"
	coremon "github.com/kilianp07/storageopt/core/monitoring"
)

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	_, ok := m.(coremon.NopMonitor)
	assert.True(t, ok, "got %T", m)
}

func TestNewSentryMonitor_InvalidDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestSentryMonitor_SendsTaggedEvent(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dsn := strings.Replace(srv.URL, "http://", "http://public@", 1) + "/1"
	m, err := NewSentryMonitor(config.SentryConfig{DSN: dsn, Environment: "test"})
	require.NoError(t, err)

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("solver returned infeasible"), map[string]string{"scenario": "site-a", "engine": "cbc"})
	m.Flush(2 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "solver returned infeasible")
	assert.Contains(t, bodies[0], `"scenario":"site-a"`)
	assert.Contains(t, bodies[0], `"engine":"cbc"`)
}

func TestSentryMonitor_IgnoresInfeasible(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dsn := strings.Replace(srv.URL, "http://", "http://public@", 1) + "/1"
	m, err := NewSentryMonitor(config.SentryConfig{DSN: dsn, IgnoreInfeasible: true})
	require.NoError(t, err)

	m.CaptureException(errors.New("no feasible schedule"), map[string]string{"status": "infeasible"})
	m.CaptureException(errors.New("export failed"), map[string]string{"status": "failed"})
	m.Flush(2 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
