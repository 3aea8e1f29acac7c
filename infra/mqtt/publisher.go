package mqtt

import (
	"context"
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/storageopt/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records schedules in memory. It is used in tests and when
// no broker is configured.
type MockPublisher struct {
	Messages  []coremqtt.ScheduleMessage
	FailScens map[string]bool
	Closed    bool
	mu        sync.Mutex
	seq       int
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailScens: make(map[string]bool)}
}

// PublishSchedule records the message or fails for scenarios listed in
// FailScens.
func (m *MockPublisher) PublishSchedule(_ context.Context, msg coremqtt.ScheduleMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailScens[msg.Scenario] {
		return "", fmt.Errorf("%w: %s", coremqtt.ErrPublish, msg.Scenario)
	}
	m.seq++
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("msg-%d", m.seq)
	}
	m.Messages = append(m.Messages, msg)
	return msg.MessageID, nil
}

// Published returns a copy of the recorded messages.
func (m *MockPublisher) Published() []coremqtt.ScheduleMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.ScheduleMessage(nil), m.Messages...)
}

func (m *MockPublisher) Close() {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
}
