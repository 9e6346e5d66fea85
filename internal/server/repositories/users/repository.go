// Package users implements account persistence.
package users

import (
	"context"

	"opsboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, keyword string, limit, offset int) ([]*models.User, int, error)
	UpdateProfile(ctx context.Context, id, displayName, headline, bio string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRoles(ctx context.Context, id string, roles []string) error
	SetAvatarURL(ctx context.Context, id, avatarURL string) error
}
