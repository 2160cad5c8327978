package audit

import (
	"context"
	"log/slog"
	"sync"
)

// defaultCapacity bounds the in-memory ring when none is configured.
const defaultCapacity = 1000

// MemoryLogger keeps the most recent events in a bounded in-memory ring
// and emits each one through slog. It is the default audit backend for
// hubs running without a database.
type MemoryLogger struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	logger   *slog.Logger
}

// NewMemoryLogger creates an in-memory audit logger holding at most
// capacity events. Zero or negative capacity uses the default.
func NewMemoryLogger(capacity int, logger *slog.Logger) *MemoryLogger {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryLogger{capacity: capacity, logger: logger}
}

// Log records the event, evicting the oldest when the ring is full.
func (m *MemoryLogger) Log(_ context.Context, event Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	if len(m.events) > m.capacity {
		m.events = m.events[len(m.events)-m.capacity:]
	}
	m.mu.Unlock()

	m.logger.Info("provider action",
		"audit_id", event.ID,
		"provider", event.Provider,
		"action", event.Action,
		"success", event.Success,
		"duration_ms", event.DurationMS,
		"error", event.ErrorMessage,
	)
	return nil
}

// Query returns matching events, newest first.
func (m *MemoryLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if filter.matches(m.events[i]) {
			matched = append(matched, m.events[i])
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Close is a no-op.
func (*MemoryLogger) Close() error { return nil }

func (f QueryFilter) matches(event Event) bool {
	if f.Provider != "" && event.Provider != f.Provider {
		return false
	}
	if f.Action != "" && event.Action != f.Action {
		return false
	}
	if f.Success != nil && event.Success != *f.Success {
		return false
	}
	if f.StartTime != nil && event.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && event.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}
