package metatool

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/mcp-connections-hub/pkg/audit"
	"github.com/appforge/mcp-connections-hub/pkg/connection"
	"github.com/appforge/mcp-connections-hub/pkg/manager"
	"github.com/appforge/mcp-connections-hub/pkg/services"
	"github.com/appforge/mcp-connections-hub/pkg/store"
)

// fakeService is a scriptable adapter for dispatcher tests.
type fakeService struct {
	provider string
	execFn   func(ctx context.Context, action string, params map[string]any, credential string) (any, error)
}

func (f *fakeService) Provider() string { return f.provider }

func (f *fakeService) TestConnection(_ context.Context, _ string) (*connection.AccountInfo, error) {
	return &connection.AccountInfo{ID: "u1", Name: "Ada"}, nil
}

func (f *fakeService) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	if f.execFn != nil {
		return f.execFn(ctx, action, params, credential)
	}
	if action != "list_repos" {
		return nil, fmt.Errorf("github has no action %q: %w", action, connection.ErrUnknownAction)
	}
	return []map[string]any{{"name": "site"}}, nil
}

func (f *fakeService) Actions() []services.ActionSpec {
	return []services.ActionSpec{{Name: "list_repos"}}
}

type fixture struct {
	dispatcher *Dispatcher
	store      *store.Store
	auditor    *audit.MemoryLogger
}

func newFixture(t *testing.T, svcs ...services.Service) *fixture {
	t.Helper()
	registry := services.NewRegistry()
	for _, svc := range svcs {
		require.NoError(t, registry.Register(svc))
	}
	st := store.New(nil, nil)
	mgr := manager.New(st, registry, nil)
	auditor := audit.NewMemoryLogger(0, nil)
	return &fixture{
		dispatcher: New(mgr, st, registry, auditor, nil),
		store:      st,
		auditor:    auditor,
	}
}

func TestDispatchUnknownProvider(t *testing.T) {
	f := newFixture(t)

	text, isErr := f.dispatcher.Dispatch(context.Background(), "gitlab", "list_repos", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, `Unknown provider "gitlab"`)
	assert.Contains(t, text, "github")
	assert.Contains(t, text, "namecheap")
}

func TestDispatchNoAdapter(t *testing.T) {
	// Catalog knows github, but the registry is empty.
	f := newFixture(t)

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "list_repos", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, "no adapter")
}

func TestDispatchNotConnected(t *testing.T) {
	f := newFixture(t, &fakeService{provider: "github"})

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "list_repos", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, "github is not connected")
	assert.Contains(t, text, "disconnected")
}

func TestDispatchSuccess(t *testing.T) {
	f := newFixture(t, &fakeService{provider: "github"})
	f.store.SetConnected("github", "ghp_secret_token99", &connection.AccountInfo{ID: "u1"})

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "list_repos", nil)
	assert.False(t, isErr)
	assert.Contains(t, text, `"name": "site"`)
	assert.NotContains(t, text, "ghp_secret_token99")

	events, err := f.auditor.Query(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "github", events[0].Provider)
	assert.Equal(t, "list_repos", events[0].Action)
	assert.True(t, events[0].Success)
}

func TestDispatchUnknownAction(t *testing.T) {
	f := newFixture(t, &fakeService{provider: "github"})
	f.store.SetConnected("github", "ghp_secret_token99", &connection.AccountInfo{ID: "u1"})

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "destroy_everything", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, `no action "destroy_everything"`)
	assert.Contains(t, text, "Known actions for github: list_repos")
}

func TestDispatchAuthFailure(t *testing.T) {
	svc := &fakeService{
		provider: "github",
		execFn: func(_ context.Context, _ string, _ map[string]any, _ string) (any, error) {
			return nil, &connection.ProviderError{Provider: "github", StatusCode: 401, Message: "bad credentials"}
		},
	}
	f := newFixture(t, svc)
	f.store.SetConnected("github", "ghp_expired_token1", &connection.AccountInfo{ID: "u1"})

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "list_repos", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, "rejected the stored credential")
	assert.Contains(t, text, "reconnect github")
	assert.NotContains(t, text, "ghp_expired_token1")
	assert.Equal(t, connection.StatusExpired, f.store.Status("github"))

	events, err := f.auditor.Query(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
}

func TestDispatchProviderError(t *testing.T) {
	svc := &fakeService{
		provider: "github",
		execFn: func(_ context.Context, _ string, _ map[string]any, _ string) (any, error) {
			return nil, &connection.ProviderError{Provider: "github", StatusCode: 422, Message: "validation failed"}
		},
	}
	f := newFixture(t, svc)
	f.store.SetConnected("github", "ghp_token_sturdy1", &connection.AccountInfo{ID: "u1"})

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "list_repos", nil)
	assert.True(t, isErr)
	assert.Contains(t, text, "HTTP 422")
	assert.Contains(t, text, "validation failed")
	assert.True(t, f.store.IsConnected("github"))
}

func TestDispatchTruncatesLargeResults(t *testing.T) {
	large := strings.Repeat("x", maxResultChars+500)
	svc := &fakeService{
		provider: "github",
		execFn: func(_ context.Context, _ string, _ map[string]any, _ string) (any, error) {
			return large, nil
		},
	}
	f := newFixture(t, svc)
	f.store.SetConnected("github", "ghp_token_large12", &connection.AccountInfo{ID: "u1"})

	text, isErr := f.dispatcher.Dispatch(context.Background(), "github", "list_repos", nil)
	assert.False(t, isErr)
	assert.True(t, strings.HasSuffix(text, truncationMarker))
	assert.Len(t, text, maxResultChars+len(truncationMarker))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// Three-byte runes never divide the cut point evenly, so a byte-exact
	// cut would split one.
	s := strings.Repeat("世", maxResultChars)
	out := truncate(s)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.LessOrEqual(t, len(out), maxResultChars+len(truncationMarker))

	assert.Equal(t, "short", truncate("short"))
}

func TestDispatchSanitizesAuditParameters(t *testing.T) {
	f := newFixture(t, &fakeService{provider: "github"})
	f.store.SetConnected("github", "ghp_token_audit55", &connection.AccountInfo{ID: "u1"})

	params := map[string]any{"repo": "site", "deploy_key": "ssh-rsa AAAA"}
	_, _ = f.dispatcher.Dispatch(context.Background(), "github", "list_repos", params)

	events, err := f.auditor.Query(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "site", events[0].Parameters["repo"])
	assert.Equal(t, "[REDACTED]", events[0].Parameters["deploy_key"])
}

func TestConnectedSummary(t *testing.T) {
	f := newFixture(t, &fakeService{provider: "github"})

	assert.Equal(t, "No external providers are connected.", f.dispatcher.ConnectedSummary())

	f.store.SetConnected("github", "ghp_token_summary", &connection.AccountInfo{ID: "u1", Name: "Ada"})
	f.store.SetConnected("stripe", "sk_live_summary99", &connection.AccountInfo{Email: "ops@example.com"})

	summary := f.dispatcher.ConnectedSummary()
	assert.Contains(t, summary, "GitHub (as Ada)")
	assert.Contains(t, summary, "Stripe (as ops@example.com)")
	assert.NotContains(t, summary, "sk_live_summary99")
}

func TestCapabilityListing(t *testing.T) {
	f := newFixture(t, &fakeService{provider: "github"})
	f.store.SetConnected("github", "ghp_token_caps123", &connection.AccountInfo{ID: "u1", Name: "Ada"})

	entries := f.dispatcher.CapabilityListing()
	require.Len(t, entries, 8)

	byID := make(map[string]CapabilityEntry, len(entries))
	for _, entry := range entries {
		byID[entry.Provider] = entry
	}

	github := byID["github"]
	assert.Equal(t, "connected", github.Status)
	assert.Equal(t, "Ada", github.Account)
	assert.Equal(t, []string{"list_repos"}, github.Actions)
	assert.Equal(t, "ghp_...s123", github.TokenLabel)
	assert.NotContains(t, github.TokenLabel, "caps")

	stripe := byID["stripe"]
	assert.Equal(t, "disconnected", stripe.Status)
	assert.Empty(t, stripe.Actions)
}
