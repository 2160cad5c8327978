package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxTries = 3

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 4 << 20
)

// apiClient is the shared HTTP plumbing for adapters. Transport-level
// failures surface as *connection.NetworkError and are retried with
// exponential backoff; HTTP-level rejections are never retried.
type apiClient struct {
	provider string
	baseURL  string
	http     *http.Client
	maxTries uint
}

func newAPIClient(provider, baseURL string) *apiClient {
	return &apiClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		maxTries: defaultMaxTries,
	}
}

// apiRequest describes one outbound provider call. Bodies are byte slices so
// retried attempts can resend them.
type apiRequest struct {
	method      string
	path        string
	query       url.Values
	header      http.Header
	body        []byte
	contentType string
}

type apiResponse struct {
	status int
	body   []byte
}

// do issues the request, retrying transport failures only.
func (c *apiClient) do(ctx context.Context, req apiRequest) (apiResponse, error) {
	operation := func() (apiResponse, error) {
		resp, err := c.attempt(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return apiResponse{}, backoff.Permanent(err)
			}
			return apiResponse{}, err
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return apiResponse{}, &connection.NetworkError{Provider: c.provider, Err: err}
	}
	return resp, nil
}

func (c *apiClient) attempt(ctx context.Context, req apiRequest) (apiResponse, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("building request: %w", err)
	}
	for key, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return apiResponse{}, fmt.Errorf("calling %s: %w", c.provider, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return apiResponse{}, fmt.Errorf("reading %s response: %w", c.provider, err)
	}
	return apiResponse{status: httpResp.StatusCode, body: data}, nil
}

// doJSON issues a JSON request and decodes a JSON response. Non-2xx
// responses become *connection.ProviderError with the provider's own
// message preserved.
func (c *apiClient) doJSON(ctx context.Context, method, path string, query url.Values, header http.Header, payload, out any) error {
	req := apiRequest{method: method, path: path, query: query, header: header}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", c.provider, err)
		}
		req.body = data
		req.contentType = "application/json"
	}
	return c.finish(ctx, req, out)
}

// doForm issues a form-urlencoded request, the convention Stripe uses for
// every write endpoint.
func (c *apiClient) doForm(ctx context.Context, method, path string, form url.Values, header http.Header, out any) error {
	req := apiRequest{
		method:      method,
		path:        path,
		header:      header,
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
	return c.finish(ctx, req, out)
}

func (c *apiClient) finish(ctx context.Context, req apiRequest, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if resp.status >= 400 {
		return &connection.ProviderError{
			Provider:   c.provider,
			StatusCode: resp.status,
			Message:    extractAPIMessage(resp.body),
		}
	}
	if out != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", c.provider, err)
		}
	}
	return nil
}

// extractAPIMessage pulls a human-readable message out of the common JSON
// error envelopes; falls back to the raw body.
func extractAPIMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		switch e := envelope.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if len(envelope.Errors) > 0 && envelope.Errors[0].Message != "" {
			return envelope.Errors[0].Message
		}
	}

	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	if trimmed == "" {
		trimmed = "request failed"
	}
	return trimmed
}

// asAuthError converts a 401/403-class provider rejection into an
// *connection.AuthError for the verification path.
func asAuthError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var provErr *connection.ProviderError
	if errors.As(err, &provErr) && provErr.AuthFailure() {
		return &connection.AuthError{Provider: provider, Message: provErr.Message}
	}
	return err
}
