package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// AccountListParams narrows an account listing.
type AccountListParams struct {
	Page     int
	PageSize int
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Headline    *string `json:"headline,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// AvatarUpload is a presigned upload slot for a new avatar image.
type AvatarUpload struct {
	UploadURL string `json:"uploadUrl"`
	AvatarURL string `json:"avatarUrl"`
}

// Me returns the authenticated user's profile.
func (g *Gateway) Me(ctx context.Context) (User, error) {
	raw, err := g.Call(ctx, http.MethodGet, "/api/v1/users/me", CallOptions{})
	if err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

// ListAccounts returns a page of all accounts. Admin only.
func (g *Gateway) ListAccounts(ctx context.Context, p AccountListParams) (UserPage, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	raw, err := g.Call(ctx, http.MethodGet, "/api/v1/users", CallOptions{Query: q})
	if err != nil {
		return UserPage{}, err
	}
	var page UserPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return UserPage{}, err
	}
	return page, nil
}

// ToggleAdmin grants or revokes the admin role on an account.
func (g *Gateway) ToggleAdmin(ctx context.Context, id string, grant bool) (User, error) {
	raw, err := g.Call(ctx, http.MethodPost, "/api/v1/users/"+id+"/toggle-admin", CallOptions{
		Body: map[string]bool{"grant": grant},
	})
	if err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

// UpdateProfile patches the authenticated user's profile.
func (g *Gateway) UpdateProfile(ctx context.Context, patch ProfilePatch) (User, error) {
	raw, err := g.Call(ctx, http.MethodPatch, "/api/v1/users/me/profile", CallOptions{Body: patch})
	if err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

// ChangePassword replaces the authenticated user's password.
func (g *Gateway) ChangePassword(ctx context.Context, current, next string) error {
	_, err := g.Call(ctx, http.MethodPatch, "/api/v1/users/me/password", CallOptions{
		Body: map[string]string{"currentPassword": current, "newPassword": next},
	})
	return err
}

// RequestAvatarUpload asks the server for a presigned URL to upload a new
// avatar image to object storage.
func (g *Gateway) RequestAvatarUpload(ctx context.Context, filename, contentType string) (AvatarUpload, error) {
	raw, err := g.Call(ctx, http.MethodPost, "/api/v1/users/me/avatar-upload", CallOptions{
		Body: map[string]string{"filename": filename, "contentType": contentType},
	})
	if err != nil {
		return AvatarUpload{}, err
	}
	var up AvatarUpload
	if err := json.Unmarshal(raw, &up); err != nil {
		return AvatarUpload{}, err
	}
	return up, nil
}

func decodeUser(raw json.RawMessage) (User, error) {
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, err
	}
	return u, nil
}
