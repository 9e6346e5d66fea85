package httpapi

import (
	"context"

	"opsboard/internal/server/models"
)

type contextKey string

const contextKeyUser contextKey = "user"

// withUser binds the authenticated actor to the request context. The actor
// is rebuilt from token claims; handlers that need the full profile load it
// through the user service.
func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

func currentUser(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(contextKeyUser).(*models.User)
	return u, ok
}
