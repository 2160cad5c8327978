// Package postgres provides a PostgreSQL mirror for the connection store,
// for hub deployments where the state must outlive a single host.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// connectionColumns lists columns in scan order.
var connectionColumns = []string{
	"provider", "token", "token_label", "status", "account_info",
	"connected_at", "last_tested_at", "error_message",
}

// Mirror persists connection records in the connections table, one row
// per provider.
type Mirror struct {
	db *sql.DB
}

// New creates a PostgreSQL mirror on an open database handle. Run the
// schema migrations before the first Load.
func New(db *sql.DB) *Mirror {
	return &Mirror{db: db}
}

// Load returns every stored connection record.
func (m *Mirror) Load(ctx context.Context) ([]connection.Record, error) {
	query, args, err := psq.Select(connectionColumns...).
		From("connections").
		OrderBy("provider").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building connections query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []connection.Record
	for rows.Next() {
		var rec connection.Record
		var accountInfo sql.NullString
		var connectedAt, lastTestedAt sql.NullTime
		var errorMessage sql.NullString
		if err := rows.Scan(
			&rec.Provider, &rec.Token, &rec.TokenLabel, &rec.Status,
			&accountInfo, &connectedAt, &lastTestedAt, &errorMessage,
		); err != nil {
			return nil, fmt.Errorf("scanning connection row: %w", err)
		}
		rec.AccountInfo = accountInfo.String
		if connectedAt.Valid {
			rec.ConnectedAt = connectedAt.Time
		}
		if lastTestedAt.Valid {
			rec.LastTestedAt = lastTestedAt.Time
		}
		rec.Error = errorMessage.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection rows: %w", err)
	}
	return records, nil
}

// Save upserts one provider's record.
func (m *Mirror) Save(ctx context.Context, rec connection.Record) error {
	query, args, err := psq.Insert("connections").
		Columns(connectionColumns...).
		Values(
			rec.Provider, rec.Token, rec.TokenLabel, rec.Status,
			nullString(rec.AccountInfo), nullTime(rec.ConnectedAt),
			nullTime(rec.LastTestedAt), nullString(rec.Error),
		).
		Suffix(`ON CONFLICT (provider) DO UPDATE SET
			token = EXCLUDED.token,
			token_label = EXCLUDED.token_label,
			status = EXCLUDED.status,
			account_info = EXCLUDED.account_info,
			connected_at = EXCLUDED.connected_at,
			last_tested_at = EXCLUDED.last_tested_at,
			error_message = EXCLUDED.error_message,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building connection upsert: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting connection for %s: %w", rec.Provider, err)
	}
	return nil
}

// Delete removes one provider's record.
func (m *Mirror) Delete(ctx context.Context, provider string) error {
	query, args, err := psq.Delete("connections").
		Where(sq.Eq{"provider": provider}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building connection delete: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting connection for %s: %w", provider, err)
	}
	return nil
}

// Close closes the database handle.
func (m *Mirror) Close() error {
	return m.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
