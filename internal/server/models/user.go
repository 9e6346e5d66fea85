// Package models defines the server-side data shapes shared by
// repositories and services.
package models

import "time"

// Roles an account can carry. A user may hold several; "admin" grants the
// administrative surface.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string
	Email        string
	Headline     string
	Bio          string
	AvatarURL    string
	Roles        []string
	Teams        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// Session is a server-stored refresh token. Only a keyed hash of the token
// ever touches the database.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
