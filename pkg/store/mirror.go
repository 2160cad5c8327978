// Package store provides the in-memory connection store and its durable
// mirror. The in-memory map is authoritative for the running session;
// mirror writes never roll back or block an in-memory transition.
package store

import (
	"context"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// Mirror is the durable persistence collaborator: one record per provider.
type Mirror interface {
	// Load returns every stored record, for startup hydration.
	Load(ctx context.Context) ([]connection.Record, error)

	// Save upserts one provider's record.
	Save(ctx context.Context, rec connection.Record) error

	// Delete removes one provider's record. Deleting an absent record
	// is not an error.
	Delete(ctx context.Context, provider string) error

	// Close releases resources.
	Close() error
}

// NoopMirror discards all writes; used when no durable backend is
// configured, leaving the hub memory-only.
type NoopMirror struct{}

// NewNoopMirror creates a mirror that persists nothing.
func NewNoopMirror() *NoopMirror { return &NoopMirror{} }

// Load returns no records.
func (*NoopMirror) Load(_ context.Context) ([]connection.Record, error) { return nil, nil }

// Save discards the record.
func (*NoopMirror) Save(_ context.Context, _ connection.Record) error { return nil }

// Delete discards the deletion.
func (*NoopMirror) Delete(_ context.Context, _ string) error { return nil }

// Close is a no-op.
func (*NoopMirror) Close() error { return nil }
