// Package services implements the per-provider service adapters. Every
// adapter satisfies the two-method Service contract, privately owning its
// base URL, signing convention, response unwrapping, and action table. The
// manager and dispatcher never special-case a provider by name.
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// Service is the uniform contract every provider adapter implements.
// Implementations hold no shared mutable state and are safe under concurrent
// invocation, including concurrent calls for the same provider.
type Service interface {
	// Provider returns the catalog id this adapter serves.
	Provider() string

	// TestConnection verifies a credential against the provider's profile
	// endpoint and returns normalized account info. Fails with
	// *connection.AuthError when the credential is rejected and
	// *connection.NetworkError when the host is unreachable.
	TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error)

	// Execute runs a named action from the adapter's action table. Fails
	// with connection.ErrUnknownAction for names absent from the table and
	// *connection.ProviderError when the remote API rejects the call.
	Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error)

	// Actions returns the adapter's action table for capability discovery.
	Actions() []ActionSpec
}

// ActionSpec documents one action in an adapter's table.
type ActionSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params,omitempty"`
}

// ParamSpec documents one parameter of an action.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Registry holds the adapter set. It is constructed once at process start
// and injected into the manager so tests can substitute fake adapters.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register adds an adapter. Registering the same provider twice is an error.
func (r *Registry) Register(svc Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := svc.Provider()
	if _, exists := r.services[id]; exists {
		return fmt.Errorf("adapter for %s already registered", id)
	}
	r.services[id] = svc
	return nil
}

// Get retrieves the adapter for a provider id.
func (r *Registry) Get(provider string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[provider]
	return svc, ok
}

// Providers returns the ids of all registered adapters, ordered.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewDefaultRegistry creates a registry with every production adapter.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, svc := range []Service{
		NewGitHub(),
		NewVercel(),
		NewNetlify(),
		NewRender(),
		NewSupabase(),
		NewStripe(),
		NewResend(),
		NewNamecheap(),
	} {
		// Register only fails on duplicate ids, which cannot happen here.
		_ = r.Register(svc)
	}
	return r
}
