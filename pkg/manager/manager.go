// Package manager implements the connection lifecycle: verifying
// credentials, recording transitions in the store, and guarding action
// execution behind connection state.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
	"github.com/appforge/mcp-connections-hub/pkg/services"
	"github.com/appforge/mcp-connections-hub/pkg/store"
)

// ErrSuperseded is returned when a verification settles after the provider
// was disconnected mid-flight. Its outcome is discarded so the disconnect
// is not silently undone.
var ErrSuperseded = errors.New("connection attempt superseded")

// Manager coordinates the store and the adapter registry. All lifecycle
// transitions flow through it.
type Manager struct {
	store    *store.Store
	registry *services.Registry
	logger   *slog.Logger

	// generations invalidates in-flight verifications: Disconnect bumps
	// the provider's counter, and a Connect that started under an older
	// value discards its result.
	mu          sync.Mutex
	generations map[string]uint64
}

// New creates a Manager over the given store and adapter registry.
func New(st *store.Store, registry *services.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       st,
		registry:    registry,
		logger:      logger,
		generations: make(map[string]uint64),
	}
}

// Connect verifies a credential against the provider's profile endpoint and
// records the outcome. On success the stored connection snapshot is
// returned; the raw credential never appears in it.
func (m *Manager) Connect(ctx context.Context, provider, credential string) (*connection.Connection, error) {
	svc, ok := m.registry.Get(provider)
	if !ok {
		return nil, fmt.Errorf("%s: %w", provider, connection.ErrUnimplementedProvider)
	}

	gen := m.generation(provider)
	m.store.SetConnecting(provider)
	m.logger.Info("verifying connection", "provider", provider)

	info, err := svc.TestConnection(ctx, credential)

	if m.generation(provider) != gen {
		// Disconnected while the verification was in flight. Recording
		// the outcome now would resurrect a connection the user removed.
		m.logger.Info("discarding superseded verification", "provider", provider)
		return nil, fmt.Errorf("%s: %w", provider, ErrSuperseded)
	}

	if err != nil {
		m.store.SetError(provider, err.Error())
		m.logger.Warn("connection verification failed", "provider", provider, "error", err)
		return nil, err
	}

	m.store.SetConnected(provider, credential, info)
	m.logger.Info("connection verified", "provider", provider, "account", info.Name)
	return m.store.Get(provider), nil
}

// Disconnect removes the provider's connection and invalidates any
// verification still in flight.
func (m *Manager) Disconnect(provider string) {
	m.mu.Lock()
	m.generations[provider]++
	m.mu.Unlock()

	m.store.Disconnect(provider)
	m.logger.Info("disconnected", "provider", provider)
}

// Retest re-verifies the stored credential and reports whether the
// connection is healthy. It never returns an error: a provider without a
// stored credential or adapter simply reports false.
func (m *Manager) Retest(ctx context.Context, provider string) bool {
	credential := m.store.Token(provider)
	if credential == "" {
		return false
	}
	svc, ok := m.registry.Get(provider)
	if !ok {
		return false
	}

	gen := m.generation(provider)
	info, err := svc.TestConnection(ctx, credential)

	if m.generation(provider) != gen {
		// Disconnected while the verification was in flight. Recording
		// the outcome now would recreate the removed connection.
		m.logger.Info("discarding superseded retest", "provider", provider)
		return false
	}

	if err != nil {
		m.store.SetError(provider, err.Error())
		m.logger.Warn("retest failed", "provider", provider, "error", err)
		return false
	}

	m.store.SetConnected(provider, credential, info)
	return true
}

// RetestAll re-verifies every provider holding a stored credential,
// concurrently, and returns after all have settled. One slow provider
// cannot block the others' results.
func (m *Manager) RetestAll(ctx context.Context) map[string]bool {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]bool)
	)
	for _, conn := range m.store.All() {
		if conn.Token == "" {
			continue
		}
		wg.Add(1)
		go func(provider string) {
			defer wg.Done()
			healthy := m.Retest(ctx, provider)
			mu.Lock()
			results[provider] = healthy
			mu.Unlock()
		}(conn.Provider)
	}
	wg.Wait()
	return results
}

// Execute runs a provider action using the stored credential. A provider
// without one fails with ErrNotConnected; a credential rejection during
// execution flips the connection to expired before the error is returned.
func (m *Manager) Execute(ctx context.Context, provider, action string, params map[string]any) (any, error) {
	svc, ok := m.registry.Get(provider)
	if !ok {
		return nil, fmt.Errorf("%s: %w", provider, connection.ErrUnimplementedProvider)
	}
	credential := m.store.Token(provider)
	if credential == "" {
		return nil, fmt.Errorf("%s: %w", provider, connection.ErrNotConnected)
	}

	result, err := svc.Execute(ctx, action, params, credential)
	if err != nil {
		if connection.IsAuthFailure(err) {
			m.store.MarkExpired(provider, err.Error())
			m.logger.Warn("credential rejected during action", "provider", provider, "action", action)
		}
		return nil, err
	}
	return result, nil
}

func (m *Manager) generation(provider string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[provider]
}
