package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// Supabase adapts a project's PostgREST API. The credential is the project's
// service role key, a JWT carrying the project ref; the base URL is derived
// from that ref, so the adapter needs no separate configuration. Signing is
// an apikey header plus a bearer header with the same key.
type Supabase struct {
	table *actionTable

	// baseURL overrides ref-derived addressing; tests point it at a fake.
	baseURL string
}

// NewSupabase creates the Supabase adapter.
func NewSupabase() *Supabase {
	s := &Supabase{}
	t := newActionTable("supabase")

	t.register(ActionSpec{
		Name:        "query_table",
		Description: "Read rows from a table.",
		Params: []ParamSpec{
			{Name: "table", Type: "string", Required: true},
			{Name: "select", Type: "string", Description: "Column list (default *)"},
			{Name: "limit", Type: "number", Description: "Max rows (default 50)"},
		},
	}, s.queryTable)

	t.register(ActionSpec{
		Name:        "insert_row",
		Description: "Insert a row into a table.",
		Params: []ParamSpec{
			{Name: "table", Type: "string", Required: true},
			{Name: "row", Type: "object", Required: true, Description: "Column/value map"},
		},
	}, s.insertRow)

	t.register(ActionSpec{
		Name:        "count_rows",
		Description: "Count rows in a table.",
		Params: []ParamSpec{
			{Name: "table", Type: "string", Required: true},
		},
	}, s.countRows)

	s.table = t
	return s
}

// Provider returns the catalog id.
func (*Supabase) Provider() string { return "supabase" }

// Actions returns the action table.
func (s *Supabase) Actions() []ActionSpec { return s.table.specs() }

// serviceKeyClaims is the subset of the Supabase service key JWT the adapter
// reads. The signature is NOT verified; the key is only introspected to find
// the project, and the provider itself rejects forged keys.
type serviceKeyClaims struct {
	Ref  string `json:"ref"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func parseServiceKey(credential string) (*serviceKeyClaims, error) {
	claims := &serviceKeyClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, &connection.AuthError{Provider: "supabase", Message: "service key is not a valid JWT"}
	}
	if claims.Ref == "" {
		return nil, &connection.AuthError{Provider: "supabase", Message: "service key has no project ref claim"}
	}
	return claims, nil
}

func (s *Supabase) clientFor(credential string) (*apiClient, *serviceKeyClaims, error) {
	claims, err := parseServiceKey(credential)
	if err != nil {
		return nil, nil, err
	}
	base := s.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.supabase.co", claims.Ref)
	}
	return newAPIClient("supabase", base), claims, nil
}

func (s *Supabase) authHeader(credential string) http.Header {
	return http.Header{
		"Apikey":        []string{credential},
		"Authorization": []string{"Bearer " + credential},
	}
}

// TestConnection verifies the key against the PostgREST root, which rejects
// invalid keys with a 401.
func (s *Supabase) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	client, claims, err := s.clientFor(credential)
	if err != nil {
		return nil, err
	}

	if err := client.doJSON(ctx, http.MethodGet, "/rest/v1/", nil, s.authHeader(credential), nil, nil); err != nil {
		return nil, asAuthError("supabase", err)
	}

	return &connection.AccountInfo{
		ID:   claims.Ref,
		Name: claims.Ref,
		Plan: claims.Role,
		Extras: map[string]any{
			"project_ref": claims.Ref,
			"role":        claims.Role,
		},
	}, nil
}

// Execute dispatches to the action table.
func (s *Supabase) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return s.table.execute(ctx, action, params, credential)
}

func (s *Supabase) queryTable(ctx context.Context, credential string, params map[string]any) (any, error) {
	type queryTableParams struct {
		Table  string `json:"table"`
		Select string `json:"select"`
		Limit  int    `json:"limit"`
	}
	in, err := decodeParams[queryTableParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("table", in.Table); err != nil {
		return nil, err
	}
	if in.Select == "" {
		in.Select = "*"
	}
	if in.Limit <= 0 || in.Limit > 1000 {
		in.Limit = 50
	}

	client, _, err := s.clientFor(credential)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"select": []string{in.Select},
		"limit":  []string{strconv.Itoa(in.Limit)},
	}
	var rows []map[string]any
	path := "/rest/v1/" + url.PathEscape(in.Table)
	if err := client.doJSON(ctx, http.MethodGet, path, query, s.authHeader(credential), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Supabase) insertRow(ctx context.Context, credential string, params map[string]any) (any, error) {
	type insertRowParams struct {
		Table string         `json:"table"`
		Row   map[string]any `json:"row"`
	}
	in, err := decodeParams[insertRowParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("table", in.Table); err != nil {
		return nil, err
	}
	if len(in.Row) == 0 {
		return nil, fmt.Errorf("missing required parameter %q", "row")
	}

	client, _, err := s.clientFor(credential)
	if err != nil {
		return nil, err
	}

	header := s.authHeader(credential)
	header.Set("Prefer", "return=representation")

	var inserted []map[string]any
	path := "/rest/v1/" + url.PathEscape(in.Table)
	if err := client.doJSON(ctx, http.MethodPost, path, nil, header, in.Row, &inserted); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *Supabase) countRows(ctx context.Context, credential string, params map[string]any) (any, error) {
	type countRowsParams struct {
		Table string `json:"table"`
	}
	in, err := decodeParams[countRowsParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("table", in.Table); err != nil {
		return nil, err
	}

	client, _, err := s.clientFor(credential)
	if err != nil {
		return nil, err
	}

	query := url.Values{"select": []string{"count()"}}
	var rows []struct {
		Count int64 `json:"count"`
	}
	path := "/rest/v1/" + url.PathEscape(in.Table)
	if err := client.doJSON(ctx, http.MethodGet, path, query, s.authHeader(credential), nil, &rows); err != nil {
		return nil, err
	}

	var count int64
	if len(rows) > 0 {
		count = rows[0].Count
	}
	return map[string]any{"table": in.Table, "count": count}, nil
}
