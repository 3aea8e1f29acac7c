package mqtt

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	coremon "github.com/kilianp07/storageopt/core/monitoring"
	coremqtt "github.com/kilianp07/storageopt/core/mqtt"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(any)    {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestPublishErrorCaptured(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), fmt.Errorf("net fail"), fmt.Errorf("net fail"), fmt.Errorf("net fail")}}
	withMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 0, BackoffMS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	_, err = cli.PublishSchedule(context.Background(), coremqtt.ScheduleMessage{Scenario: "site-a", RunID: "r9"})
	if !errors.Is(err, coremqtt.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if len(mc.published) != 4 {
		t.Fatalf("expected default of three retries, got %d attempts", len(mc.published))
	}
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["scenario"] != "site-a" || mon.tags["module"] != "mqtt" || mon.tags["run_id"] != "r9" {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	m.FailScens["bad"] = true
	id, err := m.PublishSchedule(context.Background(), coremqtt.ScheduleMessage{Scenario: "good"})
	if err != nil || id != "msg-1" {
		t.Fatalf("publish: %q %v", id, err)
	}
	if _, err := m.PublishSchedule(context.Background(), coremqtt.ScheduleMessage{Scenario: "bad"}); !errors.Is(err, coremqtt.ErrPublish) {
		t.Fatalf("expected failure, got %v", err)
	}
	if got := m.Published(); len(got) != 1 || got[0].Scenario != "good" {
		t.Fatalf("unexpected messages %+v", got)
	}
	m.Close()
	if !m.Closed {
		t.Fatalf("close not recorded")
	}
}
