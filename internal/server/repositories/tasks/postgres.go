package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

// taskColumns lists the task row plus its current assignment: the active
// one while the task is in flight, or the completed one once it is done.
// Assignment rows released along the way never surface here.
const taskColumns = `t.id, t.title, t.description_html, t.description_plain, t.bounty,
       t.priority, t.status, t.deadline, t.tags, t.created_by, t.published_by,
       t.completed_at, t.created_at, t.updated_at,
       a.id, a.user_id, u.username, u.display_name, a.status, a.assigned_at,
       a.completed_at, a.released_at`

const taskJoins = `
FROM tasks t
LEFT JOIN task_assignments a ON a.task_id = t.id AND a.status IN ('active', 'done')
LEFT JOIN users u ON u.id = a.user_id
`

const taskSelect = `SELECT ` + taskColumns + taskJoins

func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	tags, err := marshalList(t.Tags)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO tasks (id, title, description_html, description_plain, bounty, priority, status, deadline, tags, created_by, published_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.DescriptionHTML, t.DescriptionPlain, t.Bounty,
		t.Priority, t.Status, t.Deadline, tags, t.CreatedBy, t.PublishedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := taskSelect + ` WHERE t.id = $1 AND t.deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Task, error) {
	// the row lock goes on tasks only, the joined tables stay unlocked
	query := taskSelect + ` WHERE t.id = $1 AND t.deleted_at IS NULL FOR UPDATE OF t`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*models.Task, int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total %s
WHERE t.deleted_at IS NULL
  AND ($1 = '' OR t.status = $1)
  AND ($1 <> '' OR t.status <> 'draft')
  AND ($2 = '' OR t.title ILIKE '%%' || $2 || '%%' OR t.description_plain ILIKE '%%' || $2 || '%%')
  AND ($3 = '' OR a.user_id::text = $3)
ORDER BY %s
LIMIT $4 OFFSET $5
`, taskColumns, taskJoins, orderBy(f.Sort))

	rows, err := r.db.QueryContext(ctx, query, f.Status, f.Keyword, f.AssigneeID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	total := 0
	for rows.Next() {
		t, err := scanTask(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepository) UpdateFields(ctx context.Context, t *models.Task) error {
	tags, err := marshalList(t.Tags)
	if err != nil {
		return err
	}

	query :=
		`UPDATE tasks
		 SET title = $2, description_html = $3, description_plain = $4, bounty = $5,
		     priority = $6, deadline = $7, tags = $8, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 `
	return r.exec(ctx, query, t.ID, t.Title, t.DescriptionHTML, t.DescriptionPlain,
		t.Bounty, t.Priority, t.Deadline, tags)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id, status string) error {
	query := `UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	return r.exec(ctx, query, id, status)
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, id, publishedBy string) error {
	query :=
		`UPDATE tasks SET status = 'published', published_by = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 `
	return r.exec(ctx, query, id, publishedBy)
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE tasks SET status = 'completed', completed_at = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 `
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE tasks SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) ActiveAssignment(ctx context.Context, taskID string) (*models.Assignment, error) {
	query :=
		`SELECT a.id, a.task_id, a.user_id, u.username, u.display_name, a.status, a.assigned_at, a.completed_at, a.released_at
		 FROM task_assignments a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.task_id = $1 AND a.status = 'active'
		 `

	a := &models.Assignment{}
	err := r.db.QueryRowContext(ctx, query, taskID).Scan(
		&a.ID, &a.TaskID, &a.UserID, &a.Username, &a.DisplayName,
		&a.Status, &a.AssignedAt, &a.CompletedAt, &a.ReleasedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) CreateAssignment(ctx context.Context, taskID, userID string) error {
	query :=
		`INSERT INTO task_assignments (id, task_id, user_id, status)
		 VALUES ($1, $2, $3, 'active')
		 `

	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), taskID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReleaseAssignment(ctx context.Context, taskID string) error {
	query :=
		`UPDATE task_assignments SET status = 'released', released_at = now()
		 WHERE task_id = $1 AND status = 'active'
		 `
	return r.exec(ctx, query, taskID)
}

func (r *PostgresRepository) CompleteAssignment(ctx context.Context, taskID string, at time.Time) error {
	query :=
		`UPDATE task_assignments SET status = 'done', completed_at = $2
		 WHERE task_id = $1 AND status = 'active'
		 `
	return r.exec(ctx, query, taskID, at)
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

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Task, error) {
	t := &models.Task{}
	var tags []byte
	a := assignmentScan{}
	err := row.Scan(
		&t.ID, &t.Title, &t.DescriptionHTML, &t.DescriptionPlain, &t.Bounty,
		&t.Priority, &t.Status, &t.Deadline, &tags, &t.CreatedBy, &t.PublishedBy,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		&a.id, &a.userID, &a.username, &a.displayName, &a.status, &a.assignedAt,
		&a.completedAt, &a.releasedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Tags = unmarshalList(tags)
	t.CurrentAssignee = a.toModel(t.ID)
	return t, nil
}

func scanTask(rows *sql.Rows, total *int) (*models.Task, error) {
	t := &models.Task{}
	var tags []byte
	a := assignmentScan{}
	err := rows.Scan(
		&t.ID, &t.Title, &t.DescriptionHTML, &t.DescriptionPlain, &t.Bounty,
		&t.Priority, &t.Status, &t.Deadline, &tags, &t.CreatedBy, &t.PublishedBy,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		&a.id, &a.userID, &a.username, &a.displayName, &a.status, &a.assignedAt,
		&a.completedAt, &a.releasedAt,
		total,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Tags = unmarshalList(tags)
	t.CurrentAssignee = a.toModel(t.ID)
	return t, nil
}

// assignmentScan absorbs the nullable columns of the LEFT JOIN.
type assignmentScan struct {
	id          sql.NullString
	userID      sql.NullString
	username    sql.NullString
	displayName sql.NullString
	status      sql.NullString
	assignedAt  sql.NullTime
	completedAt sql.NullTime
	releasedAt  sql.NullTime
}

func (a assignmentScan) toModel(taskID string) *models.Assignment {
	if !a.id.Valid {
		return nil
	}
	m := &models.Assignment{
		ID:          a.id.String,
		TaskID:      taskID,
		UserID:      a.userID.String,
		Username:    a.username.String,
		DisplayName: a.displayName.String,
		Status:      a.status.String,
		AssignedAt:  a.assignedAt.Time,
	}
	if a.completedAt.Valid {
		t := a.completedAt.Time
		m.CompletedAt = &t
	}
	if a.releasedAt.Valid {
		t := a.releasedAt.Time
		m.ReleasedAt = &t
	}
	return m
}

func orderBy(sort string) string {
	switch sort {
	case "deadline":
		return "t.deadline ASC NULLS LAST, t.created_at DESC"
	case "bounty":
		return "t.bounty DESC, t.created_at DESC"
	case "newest":
		return "t.created_at DESC"
	default: // priority
		return "CASE t.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, t.created_at DESC"
	}
}

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
