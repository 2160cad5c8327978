// Package audit provides audit logging for provider actions. Every
// dispatched call is recorded with its parameters, outcome, and timing.
// Credential-shaped parameter values are redacted before the event leaves
// the dispatcher.
package audit

import (
	"context"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event represents one provider action invocation.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	DurationMS   int64          `json:"duration_ms"`
	Provider     string         `json:"provider"`
	Action       string         `json:"action"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Provider  string
	Action    string
	Success   *bool
	Limit     int
	Offset    int
}

// Config configures audit logging.
type Config struct {
	Enabled       bool
	RetentionDays int
}

// NopLogger discards all events; used when auditing is disabled.
type NopLogger struct{}

// NewNopLogger creates a logger that records nothing.
func NewNopLogger() *NopLogger { return &NopLogger{} }

// Log discards the event.
func (*NopLogger) Log(_ context.Context, _ Event) error { return nil }

// Query returns no events.
func (*NopLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) { return nil, nil }

// Close is a no-op.
func (*NopLogger) Close() error { return nil }
