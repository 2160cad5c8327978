package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// actionFunc executes one action with the caller's credential. Handlers
// decode the loose parameter bag into their own typed record before use.
type actionFunc func(ctx context.Context, credential string, params map[string]any) (any, error)

type action struct {
	spec ActionSpec
	run  actionFunc
}

// actionTable is the closed set of actions an adapter exposes. Tables are
// populated in the adapter constructor and never mutated afterward.
type actionTable struct {
	provider string
	actions  map[string]action
	order    []string
}

func newActionTable(provider string) *actionTable {
	return &actionTable{provider: provider, actions: make(map[string]action)}
}

func (t *actionTable) register(spec ActionSpec, run actionFunc) {
	if _, exists := t.actions[spec.Name]; exists {
		panic(fmt.Sprintf("%s: action %s registered twice", t.provider, spec.Name))
	}
	t.actions[spec.Name] = action{spec: spec, run: run}
	t.order = append(t.order, spec.Name)
}

func (t *actionTable) execute(ctx context.Context, name string, params map[string]any, credential string) (any, error) {
	act, ok := t.actions[name]
	if !ok {
		return nil, fmt.Errorf("%s has no action %q: %w", t.provider, name, connection.ErrUnknownAction)
	}
	return act.run(ctx, credential, params)
}

// specs returns action specs in registration order.
func (t *actionTable) specs() []ActionSpec {
	out := make([]ActionSpec, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.actions[name].spec)
	}
	return out
}

// decodeParams converts the loose parameter bag into an action's typed
// parameter record. Unknown keys are ignored; type mismatches are reported
// for the agent to correct.
func decodeParams[T any](params map[string]any) (T, error) {
	var out T
	if params == nil {
		return out, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return out, fmt.Errorf("encoding params: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("invalid params: %w", err)
	}
	return out, nil
}

// requireString validates that a required string parameter is present.
func requireString(name, value string) error {
	if value == "" {
		return fmt.Errorf("missing required parameter %q", name)
	}
	return nil
}
