package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const githubBaseURL = "https://api.github.com"

// GitHub adapts the GitHub REST API: JSON bodies, bearer authentication.
type GitHub struct {
	client *apiClient
	table  *actionTable
}

// NewGitHub creates the GitHub adapter.
func NewGitHub() *GitHub {
	g := &GitHub{client: newAPIClient("github", githubBaseURL)}
	t := newActionTable("github")

	t.register(ActionSpec{
		Name:        "list_repos",
		Description: "List repositories accessible to the authenticated user.",
		Params: []ParamSpec{
			{Name: "limit", Type: "number", Description: "Max repositories to return (default 30)"},
			{Name: "visibility", Type: "string", Description: "all, public or private"},
		},
	}, g.listRepos)

	t.register(ActionSpec{
		Name:        "create_repo",
		Description: "Create a repository for the authenticated user.",
		Params: []ParamSpec{
			{Name: "name", Type: "string", Required: true},
			{Name: "description", Type: "string"},
			{Name: "private", Type: "boolean"},
		},
	}, g.createRepo)

	t.register(ActionSpec{
		Name:        "create_issue",
		Description: "Open an issue on a repository.",
		Params: []ParamSpec{
			{Name: "repo", Type: "string", Required: true, Description: "owner/name"},
			{Name: "title", Type: "string", Required: true},
			{Name: "body", Type: "string"},
		},
	}, g.createIssue)

	t.register(ActionSpec{
		Name:        "list_branches",
		Description: "List branches of a repository.",
		Params: []ParamSpec{
			{Name: "repo", Type: "string", Required: true, Description: "owner/name"},
		},
	}, g.listBranches)

	g.table = t
	return g
}

// Provider returns the catalog id.
func (*GitHub) Provider() string { return "github" }

// Actions returns the action table.
func (g *GitHub) Actions() []ActionSpec { return g.table.specs() }

func (g *GitHub) authHeader(credential string) http.Header {
	return http.Header{
		"Authorization":        []string{"Bearer " + credential},
		"X-GitHub-Api-Version": []string{"2022-11-28"},
	}
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Plan      struct {
		Name string `json:"name"`
	} `json:"plan"`
	PublicRepos int `json:"public_repos"`
}

// TestConnection verifies the token against GET /user.
func (g *GitHub) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	var user githubUser
	if err := g.client.doJSON(ctx, http.MethodGet, "/user", nil, g.authHeader(credential), nil, &user); err != nil {
		return nil, asAuthError("github", err)
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &connection.AccountInfo{
		ID:        strconv.FormatInt(user.ID, 10),
		Name:      name,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Plan:      user.Plan.Name,
		Extras: map[string]any{
			"login":        user.Login,
			"public_repos": user.PublicRepos,
		},
	}, nil
}

// Execute dispatches to the action table.
func (g *GitHub) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return g.table.execute(ctx, action, params, credential)
}

type githubRepo struct {
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
	Description   string `json:"description,omitempty"`
}

func (g *GitHub) listRepos(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listReposParams struct {
		Limit      int    `json:"limit"`
		Visibility string `json:"visibility"`
	}
	in, err := decodeParams[listReposParams](params)
	if err != nil {
		return nil, err
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 30
	}

	query := url.Values{"per_page": []string{strconv.Itoa(in.Limit)}, "sort": []string{"updated"}}
	if in.Visibility != "" {
		query.Set("visibility", in.Visibility)
	}

	var repos []githubRepo
	if err := g.client.doJSON(ctx, http.MethodGet, "/user/repos", query, g.authHeader(credential), nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (g *GitHub) createRepo(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createRepoParams struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Private     bool   `json:"private"`
	}
	in, err := decodeParams[createRepoParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("name", in.Name); err != nil {
		return nil, err
	}

	var repo githubRepo
	if err := g.client.doJSON(ctx, http.MethodPost, "/user/repos", nil, g.authHeader(credential), in, &repo); err != nil {
		return nil, err
	}
	return repo, nil
}

func (g *GitHub) createIssue(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createIssueParams struct {
		Repo  string `json:"repo"`
		Title string `json:"title"`
		Body  string `json:"body,omitempty"`
	}
	in, err := decodeParams[createIssueParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("repo", in.Repo); err != nil {
		return nil, err
	}
	if err := requireString("title", in.Title); err != nil {
		return nil, err
	}

	payload := map[string]string{"title": in.Title}
	if in.Body != "" {
		payload["body"] = in.Body
	}

	var issue struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
		State   string `json:"state"`
	}
	path := fmt.Sprintf("/repos/%s/issues", in.Repo)
	if err := g.client.doJSON(ctx, http.MethodPost, path, nil, g.authHeader(credential), payload, &issue); err != nil {
		return nil, err
	}
	return issue, nil
}

func (g *GitHub) listBranches(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listBranchesParams struct {
		Repo string `json:"repo"`
	}
	in, err := decodeParams[listBranchesParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("repo", in.Repo); err != nil {
		return nil, err
	}

	var branches []struct {
		Name      string `json:"name"`
		Protected bool   `json:"protected"`
	}
	path := fmt.Sprintf("/repos/%s/branches", in.Repo)
	if err := g.client.doJSON(ctx, http.MethodGet, path, nil, g.authHeader(credential), nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}
