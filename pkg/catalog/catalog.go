// Package catalog defines the static provider metadata table. It carries no
// validation or network logic; descriptors are fixed at build time.
package catalog

import (
	"sort"

	"github.com/samber/lo"
)

// Category groups providers for display purposes.
type Category string

const (
	CategorySourceControl Category = "source-control"
	CategoryHosting       Category = "hosting"
	CategoryDatabase      Category = "database"
	CategoryPayments      Category = "payments"
	CategoryEmail         Category = "email"
	CategoryDNS           Category = "dns"
)

// AuthMethod hints how a credential should be collected and validated.
type AuthMethod string

const (
	// AuthBearerToken is a single secret sent as an Authorization bearer header.
	AuthBearerToken AuthMethod = "bearer_token"

	// AuthAPIKey is a single secret sent as a provider-specific header.
	AuthAPIKey AuthMethod = "api_key"

	// AuthCompositeKey is a pipe-delimited compound credential
	// (user|key|ip) used by XML-RPC-style providers.
	AuthCompositeKey AuthMethod = "composite_key"
)

// Descriptor is the immutable metadata for one provider.
type Descriptor struct {
	ID                    string
	DisplayName           string
	Category              Category
	AuthMethod            AuthMethod
	CredentialName        string
	CredentialHelpURL     string
	CredentialPlaceholder string
	Features              []string
}

var descriptors = []Descriptor{
	{
		ID:                    "github",
		DisplayName:           "GitHub",
		Category:              CategorySourceControl,
		AuthMethod:            AuthBearerToken,
		CredentialName:        "Personal access token",
		CredentialHelpURL:     "https://github.com/settings/tokens",
		CredentialPlaceholder: "ghp_...",
		Features:              []string{"list_repos", "create_repo", "create_issue", "list_branches"},
	},
	{
		ID:                    "vercel",
		DisplayName:           "Vercel",
		Category:              CategoryHosting,
		AuthMethod:            AuthBearerToken,
		CredentialName:        "Access token",
		CredentialHelpURL:     "https://vercel.com/account/tokens",
		CredentialPlaceholder: "vercel_...",
		Features:              []string{"list_projects", "create_project", "list_deployments", "set_env"},
	},
	{
		ID:                    "netlify",
		DisplayName:           "Netlify",
		Category:              CategoryHosting,
		AuthMethod:            AuthBearerToken,
		CredentialName:        "Personal access token",
		CredentialHelpURL:     "https://app.netlify.com/user/applications",
		CredentialPlaceholder: "nfp_...",
		Features:              []string{"list_sites", "create_site", "trigger_build", "list_deploys"},
	},
	{
		ID:                    "render",
		DisplayName:           "Render",
		Category:              CategoryHosting,
		AuthMethod:            AuthBearerToken,
		CredentialName:        "API key",
		CredentialHelpURL:     "https://render.com/docs/api",
		CredentialPlaceholder: "rnd_...",
		Features:              []string{"list_services", "trigger_deploy", "list_deploys"},
	},
	{
		ID:                    "supabase",
		DisplayName:           "Supabase",
		Category:              CategoryDatabase,
		AuthMethod:            AuthAPIKey,
		CredentialName:        "Service role key",
		CredentialHelpURL:     "https://supabase.com/dashboard/project/_/settings/api",
		CredentialPlaceholder: "eyJhbGciOi...",
		Features:              []string{"query_table", "insert_row", "count_rows"},
	},
	{
		ID:                    "stripe",
		DisplayName:           "Stripe",
		Category:              CategoryPayments,
		AuthMethod:            AuthBearerToken,
		CredentialName:        "Secret key",
		CredentialHelpURL:     "https://dashboard.stripe.com/apikeys",
		CredentialPlaceholder: "sk_live_...",
		Features:              []string{"list_customers", "create_product", "create_price", "create_payment_link"},
	},
	{
		ID:                    "resend",
		DisplayName:           "Resend",
		Category:              CategoryEmail,
		AuthMethod:            AuthBearerToken,
		CredentialName:        "API key",
		CredentialHelpURL:     "https://resend.com/api-keys",
		CredentialPlaceholder: "re_...",
		Features:              []string{"send_email", "list_domains"},
	},
	{
		ID:                    "namecheap",
		DisplayName:           "Namecheap",
		Category:              CategoryDNS,
		AuthMethod:            AuthCompositeKey,
		CredentialName:        "API user, key and client IP (user|key|ip)",
		CredentialHelpURL:     "https://www.namecheap.com/support/api/intro/",
		CredentialPlaceholder: "username|apikey|203.0.113.10",
		Features:              []string{"list_domains", "check_availability", "get_dns_hosts", "set_dns_hosts"},
	},
}

var byID = lo.KeyBy(descriptors, func(d Descriptor) string { return d.ID })

// All returns every descriptor, ordered by provider id.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the descriptor for a provider id.
func Get(id string) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// IDs returns every provider id, ordered.
func IDs() []string {
	ids := lo.Map(descriptors, func(d Descriptor, _ int) string { return d.ID })
	sort.Strings(ids)
	return ids
}

// ByCategory groups descriptors for UI display.
func ByCategory() map[Category][]Descriptor {
	return lo.GroupBy(All(), func(d Descriptor) Category { return d.Category })
}
