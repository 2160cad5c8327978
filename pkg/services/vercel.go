package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const vercelBaseURL = "https://api.vercel.com"

// Vercel adapts the Vercel REST API: JSON bodies, bearer authentication.
type Vercel struct {
	client *apiClient
	table  *actionTable
}

// NewVercel creates the Vercel adapter.
func NewVercel() *Vercel {
	v := &Vercel{client: newAPIClient("vercel", vercelBaseURL)}
	t := newActionTable("vercel")

	t.register(ActionSpec{
		Name:        "list_projects",
		Description: "List projects in the account.",
		Params: []ParamSpec{
			{Name: "limit", Type: "number", Description: "Max projects to return (default 20)"},
		},
	}, v.listProjects)

	t.register(ActionSpec{
		Name:        "create_project",
		Description: "Create a project.",
		Params: []ParamSpec{
			{Name: "name", Type: "string", Required: true},
			{Name: "framework", Type: "string", Description: "Framework preset, e.g. nextjs"},
		},
	}, v.createProject)

	t.register(ActionSpec{
		Name:        "list_deployments",
		Description: "List recent deployments, optionally for one project.",
		Params: []ParamSpec{
			{Name: "project", Type: "string", Description: "Project name or id"},
			{Name: "limit", Type: "number"},
		},
	}, v.listDeployments)

	t.register(ActionSpec{
		Name:        "set_env",
		Description: "Create or update a project environment variable.",
		Params: []ParamSpec{
			{Name: "project", Type: "string", Required: true},
			{Name: "key", Type: "string", Required: true},
			{Name: "value", Type: "string", Required: true},
			{Name: "target", Type: "string", Description: "production, preview or development (default production)"},
		},
	}, v.setEnv)

	v.table = t
	return v
}

// Provider returns the catalog id.
func (*Vercel) Provider() string { return "vercel" }

// Actions returns the action table.
func (v *Vercel) Actions() []ActionSpec { return v.table.specs() }

func (v *Vercel) authHeader(credential string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + credential}}
}

// TestConnection verifies the token against GET /v2/user.
func (v *Vercel) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	var envelope struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
			Email    string `json:"email"`
			Avatar   string `json:"avatar"`
		} `json:"user"`
	}
	if err := v.client.doJSON(ctx, http.MethodGet, "/v2/user", nil, v.authHeader(credential), nil, &envelope); err != nil {
		return nil, asAuthError("vercel", err)
	}

	user := envelope.User
	name := user.Name
	if name == "" {
		name = user.Username
	}
	return &connection.AccountInfo{
		ID:        user.ID,
		Name:      name,
		Email:     user.Email,
		AvatarURL: user.Avatar,
		Extras:    map[string]any{"username": user.Username},
	}, nil
}

// Execute dispatches to the action table.
func (v *Vercel) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return v.table.execute(ctx, action, params, credential)
}

func (v *Vercel) listProjects(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listProjectsParams struct {
		Limit int `json:"limit"`
	}
	in, err := decodeParams[listProjectsParams](params)
	if err != nil {
		return nil, err
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}

	var out struct {
		Projects []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Framework string `json:"framework"`
			UpdatedAt int64  `json:"updatedAt"`
		} `json:"projects"`
	}
	query := url.Values{"limit": []string{strconv.Itoa(in.Limit)}}
	if err := v.client.doJSON(ctx, http.MethodGet, "/v9/projects", query, v.authHeader(credential), nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (v *Vercel) createProject(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createProjectParams struct {
		Name      string `json:"name"`
		Framework string `json:"framework,omitempty"`
	}
	in, err := decodeParams[createProjectParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("name", in.Name); err != nil {
		return nil, err
	}

	var project struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Framework string `json:"framework"`
	}
	if err := v.client.doJSON(ctx, http.MethodPost, "/v9/projects", nil, v.authHeader(credential), in, &project); err != nil {
		return nil, err
	}
	return project, nil
}

func (v *Vercel) listDeployments(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listDeploymentsParams struct {
		Project string `json:"project"`
		Limit   int    `json:"limit"`
	}
	in, err := decodeParams[listDeploymentsParams](params)
	if err != nil {
		return nil, err
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}

	query := url.Values{"limit": []string{strconv.Itoa(in.Limit)}}
	if in.Project != "" {
		query.Set("projectId", in.Project)
	}

	var out struct {
		Deployments []struct {
			UID     string `json:"uid"`
			Name    string `json:"name"`
			URL     string `json:"url"`
			State   string `json:"state"`
			Created int64  `json:"created"`
		} `json:"deployments"`
	}
	if err := v.client.doJSON(ctx, http.MethodGet, "/v6/deployments", query, v.authHeader(credential), nil, &out); err != nil {
		return nil, err
	}
	return out.Deployments, nil
}

func (v *Vercel) setEnv(ctx context.Context, credential string, params map[string]any) (any, error) {
	type setEnvParams struct {
		Project string `json:"project"`
		Key     string `json:"key"`
		Value   string `json:"value"`
		Target  string `json:"target"`
	}
	in, err := decodeParams[setEnvParams](params)
	if err != nil {
		return nil, err
	}
	for name, value := range map[string]string{"project": in.Project, "key": in.Key, "value": in.Value} {
		if err := requireString(name, value); err != nil {
			return nil, err
		}
	}
	if in.Target == "" {
		in.Target = "production"
	}

	payload := map[string]any{
		"key":    in.Key,
		"value":  in.Value,
		"type":   "encrypted",
		"target": []string{in.Target},
	}

	var out struct {
		Created struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"created"`
	}
	path := fmt.Sprintf("/v10/projects/%s/env", url.PathEscape(in.Project))
	query := url.Values{"upsert": []string{"true"}}
	if err := v.client.doJSON(ctx, http.MethodPost, path, query, v.authHeader(credential), payload, &out); err != nil {
		return nil, err
	}
	return out.Created, nil
}
