// Package postgres provides PostgreSQL storage for audit events.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/appforge/mcp-connections-hub/pkg/audit"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 10000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// auditColumns lists columns returned by audit SELECT queries.
var auditColumns = []string{
	"id", "timestamp", "duration_ms", "provider", "action",
	"parameters", "success", "error_message",
}

// Store implements audit.Logger using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store on an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event audit.Event) error {
	params, err := json.Marshal(event.Parameters)
	if err != nil {
		params = []byte("{}")
	}

	query, args, err := psq.Insert("audit_events").
		Columns("id", "timestamp", "duration_ms", "provider", "action",
			"parameters", "success", "error_message", "created_date").
		Values(event.ID, event.Timestamp, event.DurationMS, event.Provider,
			event.Action, params, event.Success, event.ErrorMessage,
			event.Timestamp.Format("2006-01-02")).
		ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// Query retrieves audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	qb := psq.Select(auditColumns...).From("audit_events")
	if filter.Provider != "" {
		qb = qb.Where(sq.Eq{"provider": filter.Provider})
	}
	if filter.Action != "" {
		qb = qb.Where(sq.Eq{"action": filter.Action})
	}
	if filter.Success != nil {
		qb = qb.Where(sq.Eq{"success": *filter.Success})
	}
	if filter.StartTime != nil {
		qb = qb.Where(sq.GtOrEq{"timestamp": *filter.StartTime})
	}
	if filter.EndTime != nil {
		qb = qb.Where(sq.LtOrEq{"timestamp": *filter.EndTime})
	}
	qb = qb.OrderBy("timestamp DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	qb = qb.Limit(uint64(limit))
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var params []byte
		var errorMessage sql.NullString
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.DurationMS,
			&event.Provider, &event.Action, &params, &event.Success, &errorMessage); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		event.ErrorMessage = errorMessage.String
		if len(params) > 0 {
			if err := json.Unmarshal(params, &event.Parameters); err != nil {
				return nil, fmt.Errorf("unmarshaling audit parameters: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
