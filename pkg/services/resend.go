package services

import (
	"context"
	"net/http"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const resendBaseURL = "https://api.resend.com"

// Resend adapts the Resend email API: JSON bodies, bearer authentication.
type Resend struct {
	client *apiClient
	table  *actionTable
}

// NewResend creates the Resend adapter.
func NewResend() *Resend {
	r := &Resend{client: newAPIClient("resend", resendBaseURL)}
	t := newActionTable("resend")

	t.register(ActionSpec{
		Name:        "send_email",
		Description: "Send an email from a verified domain.",
		Params: []ParamSpec{
			{Name: "from", Type: "string", Required: true, Description: "Sender, e.g. App <noreply@example.com>"},
			{Name: "to", Type: "string", Required: true},
			{Name: "subject", Type: "string", Required: true},
			{Name: "html", Type: "string", Description: "HTML body; text used when empty"},
			{Name: "text", Type: "string", Description: "Plain text body"},
		},
	}, r.sendEmail)

	t.register(ActionSpec{
		Name:        "list_domains",
		Description: "List sending domains and their verification status.",
	}, r.listDomains)

	r.table = t
	return r
}

// Provider returns the catalog id.
func (*Resend) Provider() string { return "resend" }

// Actions returns the action table.
func (r *Resend) Actions() []ActionSpec { return r.table.specs() }

func (r *Resend) authHeader(credential string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + credential}}
}

// TestConnection verifies the key against GET /domains. Resend has no
// profile endpoint; the domain list doubles as the account snapshot.
func (r *Resend) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	var out struct {
		Data []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := r.client.doJSON(ctx, http.MethodGet, "/domains", nil, r.authHeader(credential), nil, &out); err != nil {
		return nil, asAuthError("resend", err)
	}

	domains := make([]string, 0, len(out.Data))
	for _, d := range out.Data {
		domains = append(domains, d.Name)
	}
	return &connection.AccountInfo{
		Name:   "Resend account",
		Extras: map[string]any{"domains": domains, "domain_count": len(domains)},
	}, nil
}

// Execute dispatches to the action table.
func (r *Resend) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return r.table.execute(ctx, action, params, credential)
}

func (r *Resend) sendEmail(ctx context.Context, credential string, params map[string]any) (any, error) {
	type sendEmailParams struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		HTML    string `json:"html"`
		Text    string `json:"text"`
	}
	in, err := decodeParams[sendEmailParams](params)
	if err != nil {
		return nil, err
	}
	for name, value := range map[string]string{"from": in.From, "to": in.To, "subject": in.Subject} {
		if err := requireString(name, value); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{
		"from":    in.From,
		"to":      []string{in.To},
		"subject": in.Subject,
	}
	if in.HTML != "" {
		payload["html"] = in.HTML
	}
	if in.Text != "" {
		payload["text"] = in.Text
	}

	var sent struct {
		ID string `json:"id"`
	}
	if err := r.client.doJSON(ctx, http.MethodPost, "/emails", nil, r.authHeader(credential), payload, &sent); err != nil {
		return nil, err
	}
	return sent, nil
}

func (r *Resend) listDomains(ctx context.Context, credential string, _ map[string]any) (any, error) {
	var out struct {
		Data []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Status string `json:"status"`
			Region string `json:"region"`
		} `json:"data"`
	}
	if err := r.client.doJSON(ctx, http.MethodGet, "/domains", nil, r.authHeader(credential), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
