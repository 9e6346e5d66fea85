// Package sessions persists refresh-token sessions. Tokens are stored only
// as hashes; the plaintext never reaches the database.
package sessions

import (
	"context"
	"time"

	"opsboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
	FindByHash(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
