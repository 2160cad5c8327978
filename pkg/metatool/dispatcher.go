// Package metatool exposes the connections hub to the model as a single
// dispatching tool plus discovery surfaces. Tool calls never surface Go
// errors: every outcome, including validation failures, comes back as text
// the model can act on.
package metatool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/appforge/mcp-connections-hub/pkg/audit"
	"github.com/appforge/mcp-connections-hub/pkg/catalog"
	"github.com/appforge/mcp-connections-hub/pkg/connection"
	"github.com/appforge/mcp-connections-hub/pkg/manager"
	"github.com/appforge/mcp-connections-hub/pkg/services"
	"github.com/appforge/mcp-connections-hub/pkg/store"
)

// maxResultChars bounds serialized action results so one verbose API
// response cannot flood the model's context.
const maxResultChars = 10000

// truncationMarker is appended when a result is cut off.
const truncationMarker = "\n[result truncated]"

// Dispatcher validates and routes provider action calls. Validation runs
// catalog first, then adapter registration, then connection state, so the
// model always learns the most actionable obstacle.
type Dispatcher struct {
	manager  *manager.Manager
	store    *store.Store
	registry *services.Registry
	auditor  audit.Logger
	logger   *slog.Logger
}

// New creates a Dispatcher. A nil auditor disables audit logging.
func New(mgr *manager.Manager, st *store.Store, registry *services.Registry, auditor audit.Logger, logger *slog.Logger) *Dispatcher {
	if auditor == nil {
		auditor = audit.NewNopLogger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		manager:  mgr,
		store:    st,
		registry: registry,
		auditor:  auditor,
		logger:   logger,
	}
}

// Dispatch runs one provider action and returns the outcome as text. The
// second return reports whether the text describes a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, provider, action string, params map[string]any) (string, bool) {
	if _, ok := catalog.Get(provider); !ok {
		return fmt.Sprintf("Unknown provider %q. Available providers: %s.",
			provider, strings.Join(catalog.IDs(), ", ")), true
	}
	if _, ok := d.registry.Get(provider); !ok {
		return fmt.Sprintf("Provider %q is in the catalog but has no adapter yet.", provider), true
	}
	if !d.store.IsConnected(provider) {
		return fmt.Sprintf("%s is not connected (status: %s). Ask the user to connect %s before using it.",
			provider, d.store.Status(provider), provider), true
	}

	started := time.Now()
	result, err := d.manager.Execute(ctx, provider, action, params)
	d.record(ctx, provider, action, params, err, time.Since(started))

	if err != nil {
		return d.describeFailure(provider, action, err), true
	}
	return serializeResult(result), false
}

// describeFailure turns an execution error into guidance. Raw credentials
// never appear here: adapter errors carry only provider API messages.
func (d *Dispatcher) describeFailure(provider, action string, err error) string {
	var authErr *connection.AuthError
	var netErr *connection.NetworkError
	var provErr *connection.ProviderError
	switch {
	case errors.Is(err, connection.ErrUnknownAction):
		return fmt.Sprintf("%s. Known actions for %s: %s.",
			err.Error(), provider, strings.Join(d.actionNames(provider), ", "))
	case errors.As(err, &authErr):
		return fmt.Sprintf("%s rejected the stored credential. The connection is marked expired; ask the user to reconnect %s.",
			provider, provider)
	case errors.As(err, &provErr) && provErr.AuthFailure():
		return fmt.Sprintf("%s rejected the stored credential (HTTP %d). The connection is marked expired; ask the user to reconnect %s.",
			provider, provErr.StatusCode, provider)
	case errors.As(err, &netErr):
		return fmt.Sprintf("Could not reach %s: %v. The connection is unchanged; retry may succeed.",
			provider, netErr.Err)
	case errors.As(err, &provErr):
		return fmt.Sprintf("%s returned HTTP %d for %s: %s",
			provider, provErr.StatusCode, action, provErr.Message)
	default:
		return fmt.Sprintf("Action %s on %s failed: %v", action, provider, err)
	}
}

func (d *Dispatcher) actionNames(provider string) []string {
	svc, ok := d.registry.Get(provider)
	if !ok {
		return nil
	}
	specs := svc.Actions()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}

func (d *Dispatcher) record(ctx context.Context, provider, action string, params map[string]any, execErr error, elapsed time.Duration) {
	event := audit.NewEvent(provider, action).WithParameters(params)
	if execErr != nil {
		event.WithResult(false, execErr.Error(), elapsed)
	} else {
		event.WithResult(true, "", elapsed)
	}
	if err := d.auditor.Log(ctx, *event); err != nil {
		d.logger.Warn("audit log failed", "provider", provider, "action", action, "error", err)
	}
}

// serializeResult renders an action result as indented JSON, truncated when
// oversized. Serialization failures degrade to fmt rather than erroring: by
// this point the action itself has already succeeded.
func serializeResult(result any) string {
	if result == nil {
		return "OK"
	}
	if s, ok := result.(string); ok {
		return truncate(s)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return truncate(fmt.Sprintf("%v", result))
	}
	return truncate(string(data))
}

func truncate(s string) string {
	if len(s) <= maxResultChars {
		return s
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := maxResultChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
