// Package server assembles the connections hub: persistence, the adapter
// registry, the lifecycle manager, and the MCP surface.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/appforge/mcp-connections-hub/pkg/audit"
	auditpg "github.com/appforge/mcp-connections-hub/pkg/audit/postgres"
	"github.com/appforge/mcp-connections-hub/pkg/database/migrate"
	"github.com/appforge/mcp-connections-hub/pkg/health"
	hubhttp "github.com/appforge/mcp-connections-hub/pkg/http"
	"github.com/appforge/mcp-connections-hub/pkg/manager"
	"github.com/appforge/mcp-connections-hub/pkg/metatool"
	"github.com/appforge/mcp-connections-hub/pkg/services"
	"github.com/appforge/mcp-connections-hub/pkg/store"
	storefile "github.com/appforge/mcp-connections-hub/pkg/store/file"
	storepg "github.com/appforge/mcp-connections-hub/pkg/store/postgres"
)

// Version is the hub release version.
const Version = "0.2.0"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Hub wires the hub's components together and serves them over MCP.
type Hub struct {
	config     *Config
	logger     *slog.Logger
	store      *store.Store
	manager    *manager.Manager
	dispatcher *metatool.Dispatcher
	auditor    audit.Logger
	mcpServer  *mcp.Server
	checker    *health.Checker
}

// New assembles a Hub from configuration. The connection store is hydrated
// before this returns, so callers see persisted connections immediately.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	mirror, db, err := buildMirror(cfg)
	if err != nil {
		return nil, err
	}

	st := store.New(mirror, logger)
	if err := st.Load(ctx); err != nil {
		return nil, fmt.Errorf("hydrating connection store: %w", err)
	}

	registry := services.NewDefaultRegistry()
	mgr := manager.New(st, registry, logger)

	auditor := buildAuditor(cfg, db, logger)
	dispatcher := metatool.New(mgr, st, registry, auditor, logger)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	dispatcher.RegisterTools(mcpServer)
	dispatcher.RegisterResources(mcpServer)

	checker := health.NewChecker(func() int {
		return len(st.ConnectedProviders())
	})

	hub := &Hub{
		config:     cfg,
		logger:     logger,
		store:      st,
		manager:    mgr,
		dispatcher: dispatcher,
		auditor:    auditor,
		mcpServer:  mcpServer,
		checker:    checker,
	}

	if cfg.RetestOnStart {
		go func() {
			results := mgr.RetestAll(ctx)
			logger.Info("startup retest complete", "providers", len(results))
		}()
	}

	return hub, nil
}

// buildMirror constructs the persistence backend. The returned *sql.DB is
// non-nil only for the postgres backend, where the audit store shares it.
func buildMirror(cfg *Config) (store.Mirror, *sql.DB, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewNoopMirror(), nil, nil
	case "file":
		mirror, err := storefile.New(cfg.Store.Path, cfg.Store.SealKey)
		if err != nil {
			return nil, nil, fmt.Errorf("creating file store: %w", err)
		}
		return mirror, nil, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := migrate.Run(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		return storepg.New(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildAuditor(cfg *Config, db *sql.DB, logger *slog.Logger) audit.Logger {
	if !cfg.Audit.Enabled {
		return audit.NewNopLogger()
	}
	if db != nil {
		return auditpg.New(db)
	}
	return audit.NewMemoryLogger(cfg.Audit.Capacity, logger)
}

// MCPServer exposes the underlying MCP server, for tests and embedding.
func (h *Hub) MCPServer() *mcp.Server { return h.mcpServer }

// Dispatcher exposes the metatool dispatcher, for tests and embedding.
func (h *Hub) Dispatcher() *metatool.Dispatcher { return h.dispatcher }

// Run serves the hub over the configured transport until ctx is canceled.
func (h *Hub) Run(ctx context.Context) error {
	h.checker.SetReady()
	defer h.checker.SetDraining()

	switch h.config.Server.Transport {
	case "stdio":
		h.logger.Info("serving on stdio", "name", h.config.Server.Name, "version", h.config.Server.Version)
		if err := h.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
			return fmt.Errorf("stdio transport: %w", err)
		}
		return nil
	case "http":
		return h.runHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport %q", h.config.Server.Transport)
	}
}

func (h *Hub) runHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return h.mcpServer
	}, nil)

	// Health probes stay outside the gate.
	mux := http.NewServeMux()
	mux.Handle("/mcp", hubhttp.APIKeyGate(h.config.Server.APIKey)(handler))
	mux.HandleFunc("/healthz", h.checker.LivenessHandler())
	mux.HandleFunc("/readyz", h.checker.ReadinessHandler())

	srv := &http.Server{
		Addr:              h.config.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("serving http", "address", h.config.Server.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		h.checker.SetDraining()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http transport: %w", err)
	}
}

// Close releases the hub's resources.
func (h *Hub) Close() error {
	var errs []error
	if err := h.auditor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing audit logger: %w", err))
	}
	if err := h.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing connection store: %w", err))
	}
	return errors.Join(errs...)
}
