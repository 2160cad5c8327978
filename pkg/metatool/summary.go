package metatool

import (
	"fmt"
	"strings"

	"github.com/appforge/mcp-connections-hub/pkg/catalog"
)

// ConnectedSummary renders a one-paragraph description of the connected
// providers, suitable for injection into a model prompt. Providers appear
// by display name with the account they are signed into; credentials never
// appear, only the masked label.
func (d *Dispatcher) ConnectedSummary() string {
	connected := d.store.ConnectedProviders()
	if len(connected) == 0 {
		return "No external providers are connected."
	}

	parts := make([]string, 0, len(connected))
	for _, id := range connected {
		desc, ok := catalog.Get(id)
		if !ok {
			continue
		}
		conn := d.store.Get(id)
		if conn == nil {
			continue
		}
		account := ""
		if conn.AccountInfo != nil {
			switch {
			case conn.AccountInfo.Name != "":
				account = conn.AccountInfo.Name
			case conn.AccountInfo.Email != "":
				account = conn.AccountInfo.Email
			case conn.AccountInfo.ID != "":
				account = conn.AccountInfo.ID
			}
		}
		if account != "" {
			parts = append(parts, fmt.Sprintf("%s (as %s)", desc.DisplayName, account))
		} else {
			parts = append(parts, desc.DisplayName)
		}
	}
	return "Connected providers: " + strings.Join(parts, ", ") + "."
}

// CapabilityEntry describes one provider in the capability listing.
type CapabilityEntry struct {
	Provider    string   `json:"provider"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	Account     string   `json:"account,omitempty"`
	TokenLabel  string   `json:"token_label,omitempty"`
	Actions     []string `json:"actions"`
}

// CapabilityListing returns every catalog provider with its connection
// status and available actions, for the status tool and the connections
// resource.
func (d *Dispatcher) CapabilityListing() []CapabilityEntry {
	entries := make([]CapabilityEntry, 0, len(catalog.IDs()))
	for _, id := range catalog.IDs() {
		desc, _ := catalog.Get(id)
		entry := CapabilityEntry{
			Provider:    id,
			DisplayName: desc.DisplayName,
			Category:    string(desc.Category),
			Status:      string(d.store.Status(id)),
			Actions:     d.actionNames(id),
		}
		if conn := d.store.Get(id); conn != nil {
			entry.TokenLabel = conn.TokenLabel
			if conn.AccountInfo != nil {
				if conn.AccountInfo.Name != "" {
					entry.Account = conn.AccountInfo.Name
				} else {
					entry.Account = conn.AccountInfo.Email
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
