package connection

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the durable persistence shape for one provider connection. The
// in-memory Connection is authoritative for the running session; records are
// an eventually consistent mirror rehydrated at process start.
type Record struct {
	Provider     string    `json:"provider"`
	Token        string    `json:"token"`
	TokenLabel   string    `json:"token_label"`
	Status       Status    `json:"status"`
	AccountInfo  string    `json:"account_info,omitempty"`
	ConnectedAt  time.Time `json:"connected_at,omitzero"`
	LastTestedAt time.Time `json:"last_tested_at,omitzero"`
	Error        string    `json:"error,omitempty"`
}

// ToRecord converts a live Connection into its persisted shape. AccountInfo
// is stored as a JSON document so backends need no knowledge of its fields.
func ToRecord(c *Connection) (Record, error) {
	rec := Record{
		Provider:     c.Provider,
		Token:        c.Token,
		TokenLabel:   c.TokenLabel,
		Status:       c.Status,
		ConnectedAt:  c.ConnectedAt,
		LastTestedAt: c.LastTestedAt,
		Error:        c.Error,
	}
	if c.AccountInfo != nil {
		data, err := json.Marshal(c.AccountInfo)
		if err != nil {
			return Record{}, fmt.Errorf("marshaling account info for %s: %w", c.Provider, err)
		}
		rec.AccountInfo = string(data)
	}
	return rec, nil
}

// FromRecord rehydrates a Connection from its persisted shape. A connecting
// status degrades to disconnected: an in-flight verification cannot have
// survived a restart.
func FromRecord(rec Record) (*Connection, error) {
	conn := &Connection{
		Provider:     rec.Provider,
		Status:       rec.Status,
		Token:        rec.Token,
		TokenLabel:   rec.TokenLabel,
		ConnectedAt:  rec.ConnectedAt,
		LastTestedAt: rec.LastTestedAt,
		Error:        rec.Error,
	}
	if conn.Status == StatusConnecting {
		conn.Status = StatusDisconnected
	}
	if !conn.Status.Valid() {
		return nil, fmt.Errorf("record for %s has unknown status %q", rec.Provider, rec.Status)
	}
	if rec.AccountInfo != "" {
		var info AccountInfo
		if err := json.Unmarshal([]byte(rec.AccountInfo), &info); err != nil {
			return nil, fmt.Errorf("unmarshaling account info for %s: %w", rec.Provider, err)
		}
		conn.AccountInfo = &info
	}
	return conn, nil
}
