package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

// resultJSON renders an Execute result for content assertions.
func resultJSON(t *testing.T, result any) string {
	t.Helper()
	data, err := json.Marshal(result)
	require.NoError(t, err)
	return string(data)
}

func serveJSON(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVercelTestConnection(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"user":{"id":"u1","username":"ada","name":"Ada","email":"ada@example.test"}}`)
	v := NewVercel()
	v.client.baseURL = srv.URL

	info, err := v.TestConnection(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", info.ID)
	assert.Equal(t, "Ada", info.Name)
	assert.Equal(t, "ada", info.Extras["username"])
}

func TestVercelSetEnvValidation(t *testing.T) {
	v := NewVercel()
	_, err := v.Execute(context.Background(), "set_env", map[string]any{"project": "p", "key": "K"}, "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"value"`)
}

func TestVercelListProjects(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"projects":[{"id":"prj_1","name":"site","framework":"nextjs"}]}`)
	v := NewVercel()
	v.client.baseURL = srv.URL

	result, err := v.Execute(context.Background(), "list_projects", nil, "tok")
	require.NoError(t, err)
	assert.Contains(t, resultJSON(t, result), "prj_1")
}

func TestNetlifyTestConnection(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"id":"n1","full_name":"Ada L","email":"ada@example.test","site_count":3}`)
	n := NewNetlify()
	n.client.baseURL = srv.URL

	info, err := n.TestConnection(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "n1", info.ID)
	assert.Equal(t, 3, info.Extras["site_count"])
}

func TestNetlifyTriggerBuildRequiresSiteID(t *testing.T) {
	n := NewNetlify()
	_, err := n.Execute(context.Background(), "trigger_build", nil, "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"site_id"`)
}

func TestRenderTestConnection(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `[{"owner":{"id":"own_1","name":"Acme","email":"ops@acme.test","type":"team"}}]`)
	r := NewRender()
	r.client.baseURL = srv.URL

	info, err := r.TestConnection(context.Background(), "rnd_key")
	require.NoError(t, err)
	assert.Equal(t, "own_1", info.ID)
	assert.Equal(t, "team", info.Extras["owner_type"])
}

func TestRenderTestConnectionNoOwners(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `[]`)
	r := NewRender()
	r.client.baseURL = srv.URL

	_, err := r.TestConnection(context.Background(), "rnd_key")
	require.Error(t, err)

	var authErr *connection.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestRenderTriggerDeploy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/srv-123/deploys", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "clear", payload["clearCache"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"dep_1","status":"build_in_progress"}`))
	}))
	t.Cleanup(srv.Close)

	r := NewRender()
	r.client.baseURL = srv.URL

	result, err := r.Execute(context.Background(), "trigger_deploy",
		map[string]any{"service_id": "srv-123", "clear_cache": true}, "rnd_key")
	require.NoError(t, err)
	assert.Contains(t, resultJSON(t, result), "dep_1")
}

func TestResendTestConnection(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"data":[{"id":"d1","name":"acme.test","status":"verified"}]}`)
	r := NewResend()
	r.client.baseURL = srv.URL

	info, err := r.TestConnection(context.Background(), "re_key")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Extras["domain_count"])
}

func TestResendSendEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "App <noreply@acme.test>", payload["from"])
		assert.Equal(t, []any{"ada@example.test"}, payload["to"])

		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	t.Cleanup(srv.Close)

	r := NewResend()
	r.client.baseURL = srv.URL

	result, err := r.Execute(context.Background(), "send_email", map[string]any{
		"from": "App <noreply@acme.test>", "to": "ada@example.test",
		"subject": "hi", "text": "hello",
	}, "re_key")
	require.NoError(t, err)
	assert.Contains(t, resultJSON(t, result), "email_1")
}

func TestResendSendEmailValidation(t *testing.T) {
	r := NewResend()
	_, err := r.Execute(context.Background(), "send_email", map[string]any{"from": "a@b.test", "to": "c@d.test"}, "re")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"subject"`)
}
