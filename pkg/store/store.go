package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// mirrorTimeout bounds how long a synchronous mirror write may take before
// the store gives up and carries on with in-memory state only.
const mirrorTimeout = 5 * time.Second

// Store owns the per-provider Connection records. All status transitions go
// through its setters; adapters and UI code never write the map directly.
type Store struct {
	mu     sync.RWMutex
	conns  map[string]*connection.Connection
	mirror Mirror
	logger *slog.Logger

	// clock is replaceable in tests.
	clock func() time.Time
}

// New creates a Store backed by the given mirror.
func New(mirror Mirror, logger *slog.Logger) *Store {
	if mirror == nil {
		mirror = NewNoopMirror()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		conns:  make(map[string]*connection.Connection),
		mirror: mirror,
		logger: logger,
		clock:  time.Now,
	}
}

// Load hydrates the in-memory map from the mirror. Called once at process
// start, before any mutator.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.mirror.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		conn, err := connection.FromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping unreadable connection record",
				"provider", rec.Provider, "error", err)
			continue
		}
		s.conns[conn.Provider] = conn
	}
	s.logger.Info("connection store hydrated", "connections", len(s.conns))
	return nil
}

// SetConnecting marks a verification as in flight. The previous credential
// and account info are retained until the verification settles.
func (s *Store) SetConnecting(provider string) {
	s.mu.Lock()
	conn, ok := s.conns[provider]
	if !ok {
		conn = &connection.Connection{Provider: provider}
		s.conns[provider] = conn
	}
	conn.Status = connection.StatusConnecting
	conn.Error = ""
	snapshot := conn.Clone()
	s.mu.Unlock()

	s.mirrorAsync(snapshot)
}

// SetConnected records a successful verification. The account info snapshot
// replaces any previous one wholesale.
func (s *Store) SetConnected(provider, credential string, info *connection.AccountInfo) {
	now := s.clock()

	s.mu.Lock()
	conn, ok := s.conns[provider]
	if !ok {
		conn = &connection.Connection{Provider: provider}
		s.conns[provider] = conn
	}
	wasConnected := conn.Status == connection.StatusConnected && conn.Token == credential
	conn.Status = connection.StatusConnected
	conn.Token = credential
	conn.TokenLabel = connection.MaskCredential(credential)
	conn.AccountInfo = info
	conn.Error = ""
	if !wasConnected {
		conn.ConnectedAt = now
	}
	conn.LastTestedAt = now
	snapshot := conn.Clone()
	s.mu.Unlock()

	s.mirrorSync(snapshot)
}

// SetError records a failed verification or an execute-time credential
// rejection. The credential is retained so a retest can be attempted.
func (s *Store) SetError(provider, message string) {
	s.mu.Lock()
	conn, ok := s.conns[provider]
	if !ok {
		conn = &connection.Connection{Provider: provider}
		s.conns[provider] = conn
	}
	conn.Status = connection.StatusError
	conn.Error = message
	conn.LastTestedAt = s.clock()
	snapshot := conn.Clone()
	s.mu.Unlock()

	s.mirrorSync(snapshot)
}

// MarkExpired records a credential positively known to be stale.
func (s *Store) MarkExpired(provider, message string) {
	s.mu.Lock()
	conn, ok := s.conns[provider]
	if !ok {
		s.mu.Unlock()
		return
	}
	conn.Status = connection.StatusExpired
	conn.Error = message
	conn.LastTestedAt = s.clock()
	snapshot := conn.Clone()
	s.mu.Unlock()

	s.mirrorSync(snapshot)
}

// Disconnect deletes the provider's record entirely.
func (s *Store) Disconnect(provider string) {
	s.mu.Lock()
	delete(s.conns, provider)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := s.mirror.Delete(ctx, provider); err != nil {
		s.logger.Error("mirror delete failed", "provider", provider, "error", err)
	}
}

// UpdateAccountInfo merges extras into the stored account info. This is the
// only partial-merge path; verification always replaces info wholesale.
func (s *Store) UpdateAccountInfo(provider string, extras map[string]any) {
	s.mu.Lock()
	conn, ok := s.conns[provider]
	if !ok || conn.AccountInfo == nil {
		s.mu.Unlock()
		return
	}
	if conn.AccountInfo.Extras == nil {
		conn.AccountInfo.Extras = make(map[string]any, len(extras))
	}
	for k, v := range extras {
		conn.AccountInfo.Extras[k] = v
	}
	snapshot := conn.Clone()
	s.mu.Unlock()

	s.mirrorAsync(snapshot)
}

// Get returns a copy of the provider's connection, or nil when absent.
func (s *Store) Get(provider string) *connection.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns[provider].Clone()
}

// Status returns the provider's status; disconnected when absent.
func (s *Store) Status(provider string) connection.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conn, ok := s.conns[provider]; ok {
		return conn.Status
	}
	return connection.StatusDisconnected
}

// IsConnected reports whether the provider is currently connected.
func (s *Store) IsConnected(provider string) bool {
	return s.Status(provider) == connection.StatusConnected
}

// ConnectedProviders returns the ids of all connected providers, ordered.
func (s *Store) ConnectedProviders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, conn := range s.conns {
		if conn.Status == connection.StatusConnected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Token returns the stored credential for a provider, empty when absent.
func (s *Store) Token(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conn, ok := s.conns[provider]; ok {
		return conn.Token
	}
	return ""
}

// All returns copies of every stored connection, ordered by provider.
func (s *Store) All() []*connection.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*connection.Connection, 0, len(s.conns))
	for _, conn := range s.conns {
		out = append(out, conn.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Close closes the mirror.
func (s *Store) Close() error {
	return s.mirror.Close()
}

// mirrorSync persists a snapshot before returning. Used for connected and
// error transitions, where losing the write would silently drop or revive
// a credential on the next launch. Failures are logged, never propagated:
// in-memory state stays authoritative.
func (s *Store) mirrorSync(conn *connection.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	s.save(ctx, conn)
}

// mirrorAsync persists a snapshot without blocking the caller. Used for
// purely informational updates.
func (s *Store) mirrorAsync(conn *connection.Connection) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		s.save(ctx, conn)
	}()
}

func (s *Store) save(ctx context.Context, conn *connection.Connection) {
	rec, err := connection.ToRecord(conn)
	if err != nil {
		s.logger.Error("encoding connection record failed", "provider", conn.Provider, "error", err)
		return
	}
	if err := s.mirror.Save(ctx, rec); err != nil {
		s.logger.Error("mirror save failed", "provider", conn.Provider, "error", err)
	}
}
