// Package mqtt defines the schedule messages published after successful
// runs and the publisher boundary used to send them.
package mqtt

import (
	"context"
	"time"
)

// ScheduleMessage is the JSON payload published for one extracted schedule.
type ScheduleMessage struct {
	MessageID       string               `json:"message_id"`
	RunID           string               `json:"run_id"`
	Scenario        string               `json:"scenario"`
	Variant         string               `json:"variant"`
	Status          string               `json:"status"`
	Objective       float64              `json:"objective"`
	Start           *time.Time           `json:"start,omitempty"`
	IntervalMinutes float64              `json:"interval_minutes"`
	Series          map[string][]float64 `json:"series"`
	Timestamp       int64                `json:"timestamp"`
}

// Publisher sends schedules to a broker.
type Publisher interface {
	// PublishSchedule sends msg and returns the message identifier. An
	// empty MessageID is filled in.
	PublishSchedule(ctx context.Context, msg ScheduleMessage) (messageID string, err error)
	Close()
}
