package connection

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for hub-level failure conditions. Use errors.Is to check.
var (
	// ErrUnimplementedProvider indicates no service adapter is registered
	// for a catalog provider id.
	ErrUnimplementedProvider = errors.New("provider not implemented")

	// ErrNotConnected indicates an action was attempted with no stored
	// credential for the provider.
	ErrNotConnected = errors.New("provider not connected")

	// ErrUnknownAction indicates the action name is absent from the
	// adapter's action table.
	ErrUnknownAction = errors.New("unknown action")
)

// AuthError indicates a provider rejected the credential during
// verification. The user must re-enter a valid credential.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: credential rejected", e.Provider)
	}
	return fmt.Sprintf("%s: credential rejected: %s", e.Provider, e.Message)
}

// NetworkError indicates the provider host was unreachable or the request
// timed out. Transient: the same credential may verify on a retest.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError indicates the remote API rejected a well-formed call. The
// provider's own status code and message are preserved verbatim.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// AuthFailure reports whether the error is a 401/403-class rejection, which
// is strong evidence the stored credential has died out-of-band.
func (e *ProviderError) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsAuthFailure reports whether err carries evidence that the stored
// credential is invalid: either a verification rejection or a 401/403-class
// provider response.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var provErr *ProviderError
	return errors.As(err, &provErr) && provErr.AuthFailure()
}
