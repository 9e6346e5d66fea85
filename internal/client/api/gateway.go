// Package api is the client's HTTP layer. Every request goes through
// Gateway.Call, which attaches the bearer token, unwraps the server's
// response envelope and transparently recovers from an expired access token:
// on a 401 it refreshes the token pair (collapsing concurrent refreshes into
// one) and retries the original request exactly once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"opsboard/internal/client/creds"
	"opsboard/internal/logging"
)

const refreshPath = "/api/v1/auth/refresh"

// Gateway performs authenticated calls against the OpsBoard server.
type Gateway struct {
	baseURL string
	httpc   *http.Client
	creds   creds.Store
	logger  logging.Logger
	refresh singleflight.Group
}

// NewGateway returns a gateway talking to baseURL using the given credential
// store. A zero timeout falls back to 30s.
func NewGateway(baseURL string, timeout time.Duration, store creds.Store, logger logging.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		creds:   store,
		logger:  logger,
	}
}

// CallOptions tweaks a single request.
type CallOptions struct {
	// Body, when non-nil, is JSON-encoded into the request body.
	Body any
	// Query is appended to the URL.
	Query url.Values
	// NoAuth skips the Authorization header and the 401 recovery path.
	// Used for login and the refresh call itself.
	NoAuth bool
}

// Call performs one API request and returns the payload with the response
// envelope already stripped. Non-2xx responses come back as *Error; an
// unrecoverable 401 comes back as ErrAuthExpired with credentials cleared.
func (g *Gateway) Call(ctx context.Context, method, path string, opts CallOptions) (json.RawMessage, error) {
	var payload []byte
	if opts.Body != nil {
		var err error
		payload, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, err
		}
	}

	res, body, err := g.do(ctx, method, path, payload, opts)
	if err != nil {
		g.logger.Warn(ctx, "request failed before reaching the server", "method", method, "path", path, "error", err)
		return nil, &Error{Message: "service unavailable"}
	}

	if res.StatusCode == http.StatusUnauthorized && !opts.NoAuth {
		if err := g.refreshTokens(ctx); err != nil {
			return nil, err
		}

		res, body, err = g.do(ctx, method, path, payload, opts)
		if err != nil {
			g.logger.Warn(ctx, "retry failed before reaching the server", "method", method, "path", path, "error", err)
			return nil, &Error{Message: "service unavailable"}
		}
		if res.StatusCode == http.StatusUnauthorized {
			// fresh tokens were rejected, give up on the session
			_ = g.creds.Clear()
			return nil, ErrAuthExpired
		}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &Error{Status: res.StatusCode, Message: errorMessage(res.StatusCode, body)}
	}
	return unwrapData(body), nil
}

func (g *Gateway) do(ctx context.Context, method, path string, payload []byte, opts CallOptions) (*http.Response, []byte, error) {
	u := g.baseURL + path
	if len(opts.Query) > 0 {
		u += "?" + opts.Query.Encode()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !opts.NoAuth {
		if token := g.creds.Get().AccessToken; token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := g.httpc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, err
	}
	return res, body, nil
}

// refreshTokens exchanges the refresh token for a new pair. Concurrent
// callers share a single in-flight exchange; they all see its outcome.
// Any failure logs the user out locally.
func (g *Gateway) refreshTokens(ctx context.Context) error {
	_, err, _ := g.refresh.Do("refresh", func() (any, error) {
		rt := g.creds.Get().RefreshToken
		if rt == "" {
			_ = g.creds.Clear()
			return nil, ErrAuthExpired
		}

		payload, err := json.Marshal(map[string]string{"refreshToken": rt})
		if err != nil {
			return nil, err
		}
		res, body, err := g.do(ctx, http.MethodPost, refreshPath, payload, CallOptions{NoAuth: true})
		if err != nil || res.StatusCode < 200 || res.StatusCode > 299 {
			g.logger.Warn(ctx, "token refresh failed, logging out", "error", err)
			_ = g.creds.Clear()
			return nil, ErrAuthExpired
		}

		var pair struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.Unmarshal(unwrapData(body), &pair); err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
			g.logger.Warn(ctx, "token refresh returned an unusable pair, logging out")
			_ = g.creds.Clear()
			return nil, ErrAuthExpired
		}

		if err := g.creds.Set(creds.Pair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// unwrapData strips the `{"data": ...}` envelope when present; bodies
// without the envelope pass through as-is.
func unwrapData(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		return env.Data
	}
	return body
}

// errorMessage extracts a human-readable message from an error response.
// Checked in order: error.message, message, error as a bare string, and
// finally the standard status text.
func errorMessage(status int, body []byte) string {
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Error) > 0 {
			var obj struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(env.Error, &obj); err == nil && obj.Message != "" {
				return obj.Message
			}
		}
		if env.Message != "" {
			return env.Message
		}
		if len(env.Error) > 0 {
			var s string
			if err := json.Unmarshal(env.Error, &s); err == nil && s != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}
