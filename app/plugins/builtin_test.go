package plugins

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/storageopt/config"
	"github.com/kilianp07/storageopt/core/factory"
	coremetrics "github.com/kilianp07/storageopt/core/metrics"
	"github.com/kilianp07/storageopt/core/runlog"
	"github.com/kilianp07/storageopt/core/solver"
	"github.com/kilianp07/storageopt/infra/mqtt"
)

func TestNewRunLog_Backends(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		cfg  config.RunLogConfig
		want any
	}{
		{config.RunLogConfig{Path: filepath.Join(dir, "a.jsonl")}, &runlog.JSONLStore{}},
		{config.RunLogConfig{Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 1}, &runlog.RotatingJSONLStore{}},
		{config.RunLogConfig{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}, &runlog.SQLiteStore{}},
	}
	for _, tc := range cases {
		store, err := NewRunLog(tc.cfg)
		require.NoError(t, err)
		assert.IsType(t, tc.want, store)

		rec := runlog.Record{ID: "r1", Timestamp: time.Now().UTC(), Scenario: "s", Status: runlog.StatusOK}
		require.NoError(t, store.Append(context.Background(), rec))
		got, err := store.Query(context.Background(), runlog.Query{Scenario: "s"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		require.NoError(t, store.Close())
	}

	_, err := NewRunLog(config.RunLogConfig{Backend: "postgres", Path: "x"})
	assert.Error(t, err)
	assert.Equal(t, []string{"jsonl", "sqlite"}, RunLogBackends())
}

func TestNewMetrics(t *testing.T) {
	s, err := NewMetrics(coremetrics.Config{})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = NewMetrics(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}}})
	require.NoError(t, err)
	assert.IsType(t, &coremetrics.MultiSink{}, s)

	_, err = NewMetrics(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "statsd"}}})
	assert.ErrorIs(t, err, factory.ErrUnknownModule)
}

func TestBuiltinsRegistered(t *testing.T) {
	assert.Subset(t, coremetrics.Sinks(), []string{"influx", "nop", "prometheus"})
	assert.Subset(t, solver.Engines(), []string{"cbc", "gonum", "highs"})
}

func TestNewPublisher_NoBroker(t *testing.T) {
	p, err := NewPublisher(mqtt.Config{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestInitMonitoring_EmptyDSN(t *testing.T) {
	assert.NoError(t, InitMonitoring(config.SentryConfig{}))
}
