// Package connection provides shared types for the connections hub. This
// package has zero internal dependencies to avoid import cycles between the
// store, the service adapters, and the manager that orchestrates them.
package connection

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a provider connection.
type Status string

const (
	// StatusDisconnected means no credential is stored for the provider.
	StatusDisconnected Status = "disconnected"

	// StatusConnecting means a credential verification is in flight.
	StatusConnecting Status = "connecting"

	// StatusConnected means the stored credential passed verification.
	StatusConnected Status = "connected"

	// StatusError means the last verification or execute call failed.
	StatusError Status = "error"

	// StatusExpired is a variant of error reserved for credentials
	// positively known to be stale.
	StatusExpired Status = "expired"
)

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	switch s {
	case StatusDisconnected, StatusConnecting, StatusConnected, StatusError, StatusExpired:
		return true
	}
	return false
}

// AccountInfo is the normalized subset of a provider's profile response,
// captured at verification time and replaced wholesale on every retest.
type AccountInfo struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Email     string         `json:"email,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Plan      string         `json:"plan,omitempty"`
	Extras    map[string]any `json:"extras,omitempty"`
}

// Connection is the hub's record for a single provider. At most one exists
// per provider id; it is owned exclusively by the connection store.
type Connection struct {
	Provider     string       `json:"provider"`
	Status       Status       `json:"status"`
	Token        string       `json:"-"`
	TokenLabel   string       `json:"token_label,omitempty"`
	AccountInfo  *AccountInfo `json:"account_info,omitempty"`
	ConnectedAt  time.Time    `json:"connected_at,omitzero"`
	LastTestedAt time.Time    `json:"last_tested_at,omitzero"`
	Error        string       `json:"error,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	out := *c
	out.AccountInfo = c.AccountInfo.clone()
	return &out
}

func (a *AccountInfo) clone() *AccountInfo {
	if a == nil {
		return nil
	}
	out := *a
	if a.Extras != nil {
		out.Extras = make(map[string]any, len(a.Extras))
		for k, v := range a.Extras {
			out.Extras[k] = v
		}
	}
	return &out
}

// maskFloor is the byte length at or below which a credential is fully
// masked.
const maskFloor = 8

// MaskCredential renders a credential safe for display: the first four and
// last four bytes verbatim with the remainder elided, or a fixed fully
// masked label when the credential is eight bytes or fewer.
func MaskCredential(credential string) string {
	if len(credential) <= maskFloor {
		return strings.Repeat("*", maskFloor)
	}
	return credential[:4] + "..." + credential[len(credential)-4:]
}
