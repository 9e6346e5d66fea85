package api

import (
	"context"
	"encoding/json"
	"net/http"

	"opsboard/internal/client/creds"
)

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Login exchanges a username/password for a token pair, persists the pair
// and returns the authenticated user.
func (g *Gateway) Login(ctx context.Context, username, password string) (User, error) {
	raw, err := g.Call(ctx, http.MethodPost, "/api/v1/auth/login", CallOptions{
		NoAuth: true,
		Body:   map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return User{}, err
	}

	var res LoginResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return User{}, err
	}
	if err := g.creds.Set(creds.Pair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}); err != nil {
		return User{}, err
	}
	return res.User, nil
}

// Logout revokes the refresh token server-side on a best-effort basis and
// always clears local credentials.
func (g *Gateway) Logout(ctx context.Context) error {
	if rt := g.creds.Get().RefreshToken; rt != "" {
		_, _ = g.Call(ctx, http.MethodPost, "/api/v1/auth/logout", CallOptions{
			Body: map[string]string{"refreshToken": rt},
		})
	}
	return g.creds.Clear()
}
