// Package api is the client for the Netsoc Cloud REST API. It wraps
// outgoing calls with bearer-token auth, substitutes the signed-in
// username into templated paths and normalizes error responses into the
// shared envelope types.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/UCCNetsoc/cloud/internal/rest"
	"go.uber.org/zap"
)

// usernamePlaceholder in a path is replaced with the current username.
const usernamePlaceholder = "$username"

// Credentials supplies the current identity to outgoing requests. The
// session manager implements it; tests use fakes.
type Credentials interface {
	// Username returns the signed-in user's preferred username, or the
	// empty string when unauthenticated.
	Username() string
	// AccessToken returns a bearer token for the API, renewing it first
	// if it is about to expire.
	AccessToken(ctx context.Context) (string, error)
}

// Client performs requests against one API origin. Each call is
// independent: no retries, no caching.
type Client struct {
	base  string
	http  *http.Client
	creds Credentials
	log   *zap.SugaredLogger
}

// NewClient builds a client for the given API base URL. The version
// prefix is appended here so callers only pass resource paths.
func NewClient(baseURL string, creds Credentials, log *zap.SugaredLogger) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/") + "/v1",
		http:  &http.Client{},
		creds: creds,
		log:   log,
	}
}

// do performs one request. path is relative to the versioned base and may
// contain the $username placeholder. body is JSON-encoded when non-nil,
// and the response body is decoded into out when non-nil. Any status
// outside [200,299] is a failure; the returned status lets callers
// distinguish 200 from 201 where the API differentiates.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, auth bool, out interface{}) (int, error) {
	path = strings.Replace(path, usernamePlaceholder, c.creds.Username(), -1)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if auth {
		token, err := c.creds.AccessToken(ctx)
		if err != nil {
			return 0, fmt.Errorf("no valid session: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("request failed", "method", method, "path", path, "error", err)
		return 0, &rest.TransportError{Err: err}
	}
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, &rest.TransportError{Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := rest.ErrorFromResponse(res.StatusCode, buf)
		c.log.Infow("request rejected", "method", method, "path", path, "status", res.StatusCode, "msg", apiErr.Msg)
		return res.StatusCode, apiErr
	}

	if out != nil && len(buf) > 0 {
		if err := json.Unmarshal(buf, out); err != nil {
			return res.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return res.StatusCode, nil
}
