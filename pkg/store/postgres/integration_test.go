//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
	"github.com/appforge/mcp-connections-hub/pkg/database/migrate"
)

func TestMirrorAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, migrate.Run(db))

	m := New(db)
	defer func() { _ = m.Close() }()

	rec := connection.Record{
		Provider:     "github",
		Token:        "ghp_integration_token",
		TokenLabel:   "ghp_...oken",
		Status:       connection.StatusConnected,
		AccountInfo:  `{"id":"u1","name":"Ada"}`,
		ConnectedAt:  time.Now().UTC().Truncate(time.Microsecond),
		LastTestedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, m.Save(ctx, rec))

		records, err := m.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, rec.Provider, records[0].Provider)
		assert.Equal(t, rec.Token, records[0].Token)
		assert.Equal(t, rec.Status, records[0].Status)
		assert.True(t, rec.ConnectedAt.Equal(records[0].ConnectedAt))
	})

	t.Run("save upserts", func(t *testing.T) {
		rec.Status = connection.StatusError
		rec.Error = "authentication rejected"
		require.NoError(t, m.Save(ctx, rec))

		records, err := m.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, connection.StatusError, records[0].Status)
		assert.Equal(t, "authentication rejected", records[0].Error)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, m.Delete(ctx, "github"))
		require.NoError(t, m.Delete(ctx, "github"))

		records, err := m.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
