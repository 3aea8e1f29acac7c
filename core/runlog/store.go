// Package runlog keeps the history of optimisation runs.
package runlog

import (
	"context"
	"time"
)

// Status is the outcome of one run.
type Status string

const (
	StatusOK         Status = "ok"
	StatusFailed     Status = "failed"
	StatusInfeasible Status = "infeasible"
)

// Record captures one optimisation run and its outcome.
type Record struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Scenario    string    `json:"scenario"`
	Variant     string    `json:"variant"`
	Engine      string    `json:"engine"`
	Objectives  []string  `json:"objectives"`
	Status      Status    `json:"status"`
	SolveStatus string    `json:"solve_status,omitempty"`
	Objective   float64   `json:"objective"`
	Intervals   int       `json:"intervals"`
	Variables   int       `json:"variables"`
	Binaries    int       `json:"binaries"`
	Constraints int       `json:"constraints"`
	BuildMillis float64   `json:"build_ms"`
	SolveMillis float64   `json:"solve_ms"`
	Error       string    `json:"error,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start    time.Time
	End      time.Time
	Scenario string
	Status   Status
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Scenario != "" && r.Scenario != q.Scenario {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
