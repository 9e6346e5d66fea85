package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"opsboard/internal/common"
	"opsboard/internal/dbx"
	"opsboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password_hash, display_name, email, headline, bio, avatar_url, roles, teams, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	roles, err := marshalList(user.Roles)
	if err != nil {
		return nil, err
	}
	teams, err := marshalList(user.Teams)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, username, password_hash, display_name, email, headline, bio, avatar_url, roles, teams)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.DisplayName, user.Email,
		user.Headline, user.Bio, user.AvatarURL, roles, teams,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context, keyword string, limit, offset int) ([]*models.User, int, error) {
	query := `SELECT ` + userColumns + `, COUNT(*) OVER() AS total
		 FROM users
		 WHERE ($1 = '' OR username ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		 ORDER BY username
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, keyword, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	total := 0
	for rows.Next() {
		user := &models.User{}
		var roles, teams []byte
		if err := rows.Scan(
			&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName, &user.Email,
			&user.Headline, &user.Bio, &user.AvatarURL, &roles, &teams,
			&user.CreatedAt, &user.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		user.Roles = unmarshalList(roles)
		user.Teams = unmarshalList(teams)
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, displayName, headline, bio string) error {
	query :=
		`UPDATE users SET display_name = $2, headline = $3, bio = $4, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, displayName, headline, bio)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) SetRoles(ctx context.Context, id string, roles []string) error {
	data, err := marshalList(roles)
	if err != nil {
		return err
	}
	query := `UPDATE users SET roles = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, data)
}

func (r *PostgresRepository) SetAvatarURL(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE users SET avatar_url = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, avatarURL)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var roles, teams []byte
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.DisplayName, &user.Email,
		&user.Headline, &user.Bio, &user.AvatarURL, &roles, &teams,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.Roles = unmarshalList(roles)
	user.Teams = unmarshalList(teams)
	return user, nil
}

// roles, teams and tags live in JSONB columns; helpers keep the nil/empty
// distinction out of the database.
func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func unmarshalList(data []byte) []string {
	var out []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}
