package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/feed-digest/internal/core/ports"
)

var _ ports.MetricsSink = (*MetricsSink)(nil)

// MetricsSink records every event it receives.
type MetricsSink struct {
	mu     sync.Mutex
	events []ports.MetricEvent
}

// NewMetricsSink creates a new recording sink.
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

// Record stores event.
func (m *MetricsSink) Record(_ context.Context, event ports.MetricEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
}

// Events returns all recorded events.
func (m *MetricsSink) Events() []ports.MetricEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]ports.MetricEvent(nil), m.events...)
}

// Find returns recorded events of the given type and operation.
func (m *MetricsSink) Find(metricType ports.MetricType, operation string) []ports.MetricEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []ports.MetricEvent

	for _, event := range m.events {
		if event.Type == metricType && event.Operation == operation {
			found = append(found, event)
		}
	}

	return found
}

// Reset drops all recorded events.
func (m *MetricsSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = nil
}
