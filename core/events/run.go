package events

import (
	"time"

	"github.com/kilianp07/storageopt/core/metrics"
)

// RunStarted is published before a scenario model is built.
type RunStarted struct {
	RunID    string
	Scenario string
	Variant  string
	Engine   string
	Time     time.Time
}

// RunFinished is published once per run. Err is nil on success.
type RunFinished struct {
	Run metrics.RunEvent
	Err error
}
