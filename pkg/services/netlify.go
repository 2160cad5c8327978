package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const netlifyBaseURL = "https://api.netlify.com/api/v1"

// Netlify adapts the Netlify REST API: JSON bodies, bearer authentication.
type Netlify struct {
	client *apiClient
	table  *actionTable
}

// NewNetlify creates the Netlify adapter.
func NewNetlify() *Netlify {
	n := &Netlify{client: newAPIClient("netlify", netlifyBaseURL)}
	t := newActionTable("netlify")

	t.register(ActionSpec{
		Name:        "list_sites",
		Description: "List sites in the account.",
	}, n.listSites)

	t.register(ActionSpec{
		Name:        "create_site",
		Description: "Create a site.",
		Params: []ParamSpec{
			{Name: "name", Type: "string", Required: true, Description: "Subdomain, becomes <name>.netlify.app"},
		},
	}, n.createSite)

	t.register(ActionSpec{
		Name:        "trigger_build",
		Description: "Trigger a new build for a site.",
		Params: []ParamSpec{
			{Name: "site_id", Type: "string", Required: true},
		},
	}, n.triggerBuild)

	t.register(ActionSpec{
		Name:        "list_deploys",
		Description: "List deploys for a site.",
		Params: []ParamSpec{
			{Name: "site_id", Type: "string", Required: true},
		},
	}, n.listDeploys)

	n.table = t
	return n
}

// Provider returns the catalog id.
func (*Netlify) Provider() string { return "netlify" }

// Actions returns the action table.
func (n *Netlify) Actions() []ActionSpec { return n.table.specs() }

func (n *Netlify) authHeader(credential string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + credential}}
}

// TestConnection verifies the token against GET /user.
func (n *Netlify) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	var user struct {
		ID        string `json:"id"`
		FullName  string `json:"full_name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		SiteCount int    `json:"site_count"`
	}
	if err := n.client.doJSON(ctx, http.MethodGet, "/user", nil, n.authHeader(credential), nil, &user); err != nil {
		return nil, asAuthError("netlify", err)
	}

	return &connection.AccountInfo{
		ID:        user.ID,
		Name:      user.FullName,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Extras:    map[string]any{"site_count": user.SiteCount},
	}, nil
}

// Execute dispatches to the action table.
func (n *Netlify) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return n.table.execute(ctx, action, params, credential)
}

type netlifySite struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	State string `json:"state"`
}

func (n *Netlify) listSites(ctx context.Context, credential string, _ map[string]any) (any, error) {
	var sites []netlifySite
	if err := n.client.doJSON(ctx, http.MethodGet, "/sites", nil, n.authHeader(credential), nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (n *Netlify) createSite(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createSiteParams struct {
		Name string `json:"name"`
	}
	in, err := decodeParams[createSiteParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("name", in.Name); err != nil {
		return nil, err
	}

	var site netlifySite
	if err := n.client.doJSON(ctx, http.MethodPost, "/sites", nil, n.authHeader(credential), in, &site); err != nil {
		return nil, err
	}
	return site, nil
}

func (n *Netlify) triggerBuild(ctx context.Context, credential string, params map[string]any) (any, error) {
	type triggerBuildParams struct {
		SiteID string `json:"site_id"`
	}
	in, err := decodeParams[triggerBuildParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("site_id", in.SiteID); err != nil {
		return nil, err
	}

	var build struct {
		ID   string `json:"id"`
		SHA  string `json:"sha"`
		Done bool   `json:"done"`
	}
	path := fmt.Sprintf("/sites/%s/builds", url.PathEscape(in.SiteID))
	if err := n.client.doJSON(ctx, http.MethodPost, path, nil, n.authHeader(credential), map[string]any{}, &build); err != nil {
		return nil, err
	}
	return build, nil
}

func (n *Netlify) listDeploys(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listDeploysParams struct {
		SiteID string `json:"site_id"`
	}
	in, err := decodeParams[listDeploysParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("site_id", in.SiteID); err != nil {
		return nil, err
	}

	var deploys []struct {
		ID        string `json:"id"`
		State     string `json:"state"`
		DeployURL string `json:"deploy_url"`
		CreatedAt string `json:"created_at"`
	}
	path := fmt.Sprintf("/sites/%s/deploys", url.PathEscape(in.SiteID))
	if err := n.client.doJSON(ctx, http.MethodGet, path, nil, n.authHeader(credential), nil, &deploys); err != nil {
		return nil, err
	}
	return deploys, nil
}
