package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("github", "create_issue")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "github", event.Provider)
	assert.Equal(t, "create_issue", event.Action)
	assert.False(t, event.Timestamp.IsZero())

	other := NewEvent("github", "create_issue")
	assert.NotEqual(t, event.ID, other.ID)
}

func TestWithResult(t *testing.T) {
	event := NewEvent("stripe", "list_customers").
		WithResult(false, "request failed", 1500*time.Millisecond)

	assert.False(t, event.Success)
	assert.Equal(t, "request failed", event.ErrorMessage)
	assert.Equal(t, int64(1500), event.DurationMS)
}

func TestSanitizeParameters(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, SanitizeParameters(nil))
	})

	t.Run("credential-shaped keys are redacted", func(t *testing.T) {
		params := map[string]any{
			"name":         "my-project",
			"api_key":      "sk_live_secret",
			"apiKey":       "another",
			"access_token": "ghp_xyz",
			"password":     "hunter2",
			"webhookSecret": "whsec_1",
			"limit":        10,
		}

		sanitized := SanitizeParameters(params)
		assert.Equal(t, "my-project", sanitized["name"])
		assert.Equal(t, 10, sanitized["limit"])
		for _, k := range []string{"api_key", "apiKey", "access_token", "password", "webhookSecret"} {
			assert.Equal(t, "[REDACTED]", sanitized[k], "key %s", k)
		}

		// Original map is untouched.
		assert.Equal(t, "hunter2", params["password"])
	})

	t.Run("nested maps are sanitized", func(t *testing.T) {
		params := map[string]any{
			"row": map[string]any{
				"email":  "ada@example.com",
				"secret": "shh",
			},
		}

		sanitized := SanitizeParameters(params)
		row, ok := sanitized["row"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ada@example.com", row["email"])
		assert.Equal(t, "[REDACTED]", row["secret"])
	})
}
