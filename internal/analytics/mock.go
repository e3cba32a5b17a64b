package analytics

import (
	"context"
	"sync"
)

var _ EventRecorder = (*MockAnalytics)(nil)

// MockAnalytics records events in memory for tests. Setting Err makes every
// call fail with that error.
type MockAnalytics struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordEvent stores ev unless Err is set.
func (m *MockAnalytics) RecordEvent(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockAnalytics) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
