package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewEvent creates a new audit event for a provider action.
func NewEvent(provider, action string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Provider:  provider,
		Action:    action,
	}
}

// WithParameters attaches sanitized parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// WithResult records the outcome of the action.
func (e *Event) WithResult(success bool, errorMsg string, duration time.Duration) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = duration.Milliseconds()
	return e
}

// sensitiveFragments flags parameter names whose values must never be
// recorded. Matched as substrings so provider-specific spellings like
// api_key, apiKey, and access_token are all caught.
var sensitiveFragments = []string{
	"password", "secret", "token", "key", "credential", "authorization",
}

// SanitizeParameters returns a copy of params with credential-shaped
// values redacted. Nested maps are sanitized recursively.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if isSensitiveKey(k) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			sanitized[k] = SanitizeParameters(nested)
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
