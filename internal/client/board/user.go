package board

import (
	"slices"

	"opsboard/internal/client/api"
)

// CurrentUser is the signed-in user's context. The board owns exactly one
// instance; HydrateFrom rewrites it wholesale, never field by field. The
// only targeted mutation is the role mirror applied when the user toggles
// their own admin status.
type CurrentUser struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	Headline    string
	Bio         string
	Role        string
	Teams       []string
}

// HydrateFrom replaces the whole context with the server's view.
func (u *CurrentUser) HydrateFrom(item api.User) {
	*u = CurrentUser{
		ID:          item.ID,
		Username:    item.Username,
		DisplayName: item.DisplayName,
		Email:       item.Email,
		Headline:    item.Headline,
		Bio:         item.Bio,
		Role:        roleFrom(item.Roles),
		Teams:       slices.Clone(item.Teams),
	}
}

// Reset returns the context to the signed-out state.
func (u *CurrentUser) Reset() { *u = CurrentUser{} }

func (u CurrentUser) IsAdmin() bool { return u.Role == RoleAdmin }

// roleFrom collapses the server's role list to the single role the board
// cares about.
func roleFrom(roles []string) string {
	for _, r := range roles {
		if r == RoleAdmin {
			return RoleAdmin
		}
	}
	return RoleMember
}
