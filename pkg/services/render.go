package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const renderBaseURL = "https://api.render.com/v1"

// Render adapts the Render REST API: JSON bodies, bearer authentication.
type Render struct {
	client *apiClient
	table  *actionTable
}

// NewRender creates the Render adapter.
func NewRender() *Render {
	r := &Render{client: newAPIClient("render", renderBaseURL)}
	t := newActionTable("render")

	t.register(ActionSpec{
		Name:        "list_services",
		Description: "List services in the account.",
	}, r.listServices)

	t.register(ActionSpec{
		Name:        "trigger_deploy",
		Description: "Trigger a deploy for a service.",
		Params: []ParamSpec{
			{Name: "service_id", Type: "string", Required: true},
			{Name: "clear_cache", Type: "boolean", Description: "Clear the build cache first"},
		},
	}, r.triggerDeploy)

	t.register(ActionSpec{
		Name:        "list_deploys",
		Description: "List recent deploys for a service.",
		Params: []ParamSpec{
			{Name: "service_id", Type: "string", Required: true},
		},
	}, r.listDeploys)

	r.table = t
	return r
}

// Provider returns the catalog id.
func (*Render) Provider() string { return "render" }

// Actions returns the action table.
func (r *Render) Actions() []ActionSpec { return r.table.specs() }

func (r *Render) authHeader(credential string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + credential}}
}

// TestConnection verifies the key against GET /owners, which every valid
// key can read. The first owner becomes the account snapshot.
func (r *Render) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	var owners []struct {
		Owner struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Type  string `json:"type"`
		} `json:"owner"`
	}
	if err := r.client.doJSON(ctx, http.MethodGet, "/owners", nil, r.authHeader(credential), nil, &owners); err != nil {
		return nil, asAuthError("render", err)
	}
	if len(owners) == 0 {
		return nil, &connection.AuthError{Provider: "render", Message: "key has no accessible owners"}
	}

	owner := owners[0].Owner
	return &connection.AccountInfo{
		ID:     owner.ID,
		Name:   owner.Name,
		Email:  owner.Email,
		Extras: map[string]any{"owner_type": owner.Type},
	}, nil
}

// Execute dispatches to the action table.
func (r *Render) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return r.table.execute(ctx, action, params, credential)
}

func (r *Render) listServices(ctx context.Context, credential string, _ map[string]any) (any, error) {
	var services []struct {
		Service struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Type string `json:"type"`
			Slug string `json:"slug"`
		} `json:"service"`
	}
	if err := r.client.doJSON(ctx, http.MethodGet, "/services", nil, r.authHeader(credential), nil, &services); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(services))
	for _, s := range services {
		out = append(out, map[string]any{
			"id": s.Service.ID, "name": s.Service.Name, "type": s.Service.Type, "slug": s.Service.Slug,
		})
	}
	return out, nil
}

func (r *Render) triggerDeploy(ctx context.Context, credential string, params map[string]any) (any, error) {
	type triggerDeployParams struct {
		ServiceID  string `json:"service_id"`
		ClearCache bool   `json:"clear_cache"`
	}
	in, err := decodeParams[triggerDeployParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("service_id", in.ServiceID); err != nil {
		return nil, err
	}

	payload := map[string]string{"clearCache": "do_not_clear"}
	if in.ClearCache {
		payload["clearCache"] = "clear"
	}

	var deploy struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/services/%s/deploys", url.PathEscape(in.ServiceID))
	if err := r.client.doJSON(ctx, http.MethodPost, path, nil, r.authHeader(credential), payload, &deploy); err != nil {
		return nil, err
	}
	return deploy, nil
}

func (r *Render) listDeploys(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listDeploysParams struct {
		ServiceID string `json:"service_id"`
	}
	in, err := decodeParams[listDeploysParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("service_id", in.ServiceID); err != nil {
		return nil, err
	}

	var deploys []struct {
		Deploy struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			CreatedAt  string `json:"createdAt"`
			FinishedAt string `json:"finishedAt"`
		} `json:"deploy"`
	}
	path := fmt.Sprintf("/services/%s/deploys", url.PathEscape(in.ServiceID))
	if err := r.client.doJSON(ctx, http.MethodGet, path, nil, r.authHeader(credential), nil, &deploys); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(deploys))
	for _, d := range deploys {
		out = append(out, map[string]any{
			"id": d.Deploy.ID, "status": d.Deploy.Status,
			"created_at": d.Deploy.CreatedAt, "finished_at": d.Deploy.FinishedAt,
		})
	}
	return out, nil
}
