package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry is a MetricsRegistry that counts calls so tests can
// assert on what was recorded.
type MockMetricsRegistry struct {
	mu         sync.Mutex
	Requests   map[string]int
	Selections map[string]int
	Events     map[string]int
	Candidates []int

	NoBanner             int
	Suppressed           int
	EventPersistErrors   int
	SessionPersistErrors int
}

// NewMockMetricsRegistry returns an empty mock registry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Requests:   make(map[string]int),
		Selections: make(map[string]int),
		Events:     make(map[string]int),
	}
}

// HTTP Request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint+" "+method+" "+status]++
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Selection metrics
func (m *MockMetricsRegistry) IncrementSelections(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Selections[result]++
}

func (m *MockMetricsRegistry) RecordSelectionLatency(duration time.Duration) {}

func (m *MockMetricsRegistry) RecordCandidates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Candidates = append(m.Candidates, n)
}

func (m *MockMetricsRegistry) IncrementNoBanner() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NoBanner++
}

func (m *MockMetricsRegistry) IncrementSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Suppressed++
}

// Event tracking metrics
func (m *MockMetricsRegistry) IncrementEvent(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[eventType]++
}

func (m *MockMetricsRegistry) IncrementEventPersistErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventPersistErrors++
}

func (m *MockMetricsRegistry) IncrementSessionPersistErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionPersistErrors++
}

// Count returns the number of events of the given type.
func (m *MockMetricsRegistry) Count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Events[eventType]
}

// SelectionCount returns the number of selections with the given result.
func (m *MockMetricsRegistry) SelectionCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Selections[result]
}
