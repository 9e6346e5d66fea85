// Package services contains server-side business logic. This file implements
// AuthService, which verifies credentials and issues/rotates the JWT access
// token plus the server-stored refresh token.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"opsboard/internal/common"
	"opsboard/internal/dbx"
	"opsboard/internal/server/auth"
	"opsboard/internal/server/config"
	"opsboard/internal/server/models"
	"opsboard/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides authentication-related operations:
// - Login: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - Logout: revoke the session behind a refresh token
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	autoCreateUsers              bool
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		autoCreateUsers:              cfg.AutoCreateUsers,
	}
}

// Login verifies the password against the stored bcrypt hash and, on success,
// returns the user together with a new TokenPair. Unknown usernames are
// provisioned on the fly when AutoCreateUsers is enabled.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, common.ErrInvalidCredentials
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			if !s.autoCreateUsers {
				return nil, nil, common.ErrInvalidCredentials
			}
			user, err = s.provisionUser(ctx, username, password)
			if err != nil {
				return nil, nil, common.ErrInternal
			}
		} else {
			return nil, nil, common.ErrInternal
		}
	} else if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := hashToken(refreshToken)

	session, err := s.repomanager.Sessions(s.db).FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Sessions(tx).DeleteByHash(ctx, hash); err != nil {
			return fmt.Errorf("error deleting session: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the session behind the refresh token. Unknown tokens are
// not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.repomanager.Sessions(s.db).DeleteByHash(ctx, hashToken(refreshToken))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// VerifyAccessToken parses and validates a bearer token.
func (s *AuthService) VerifyAccessToken(tokenString string) (*auth.Claims, error) {
	return auth.ParseToken(tokenString, s.jwtSecret)
}

// PurgeExpiredSessions removes refresh-token sessions past their expiry.
// Intended to run periodically from the server loop.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.db).DeleteExpired(ctx)
}

// --- helpers below ---

func (s *AuthService) provisionUser(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.db).Create(ctx, &models.User{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  username,
		Roles:        []string{models.RoleMember},
		Teams:        []string{},
	})
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(user, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	refresh, err := common.MakeRandToken(48)
	if err != nil {
		return nil, common.ErrInternal
	}

	if err := s.repomanager.Sessions(tx).Create(ctx, user.ID, hashToken(refresh), s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// hashToken reduces a refresh token to the hex digest stored in the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
