package tasks

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsboard/internal/common"
	"opsboard/internal/server/models"
)

var taskRowColumns = []string{
	"id", "title", "description_html", "description_plain", "bounty",
	"priority", "status", "deadline", "tags", "created_by", "published_by",
	"completed_at", "created_at", "updated_at",
	"a_id", "a_user_id", "a_username", "a_display_name", "a_status",
	"a_assigned_at", "a_completed_at", "a_released_at",
}

func emptyAssignment() []driver.Value {
	return []driver.Value{nil, nil, nil, nil, nil, nil, nil, nil}
}

func taskRow(id, status string, assignment []driver.Value) []driver.Value {
	now := time.Now()
	row := []driver.Value{
		id, "Rotate certs", "<p>html</p>", "html", int64(30),
		"medium", status, nil, []byte(`["infra"]`), "creator", nil,
		nil, now, now,
	}
	return append(row, assignment...)
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), "Rotate certs", "<p>x</p>", "x", int64(30),
			"medium", "published", nil, []byte(`["infra"]`), "creator", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	repo := NewPostgresRepository(db)
	pub := "creator"
	task, err := repo.Create(context.Background(), &models.Task{
		Title:            "Rotate certs",
		DescriptionHTML:  "<p>x</p>",
		DescriptionPlain: "x",
		Bounty:           30,
		Priority:         models.PriorityMedium,
		Status:           models.TaskStatusPublished,
		Tags:             []string{"infra"},
		CreatedBy:        "creator",
		PublishedBy:      &pub,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_WithAssignee(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	assignment := []driver.Value{"a1", "u2", "bob", "Bob", "active", now, nil, nil}
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(taskRow("t1", "claimed", assignment)...))

	repo := NewPostgresRepository(db)
	task, err := repo.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "claimed", task.Status)
	require.NotNil(t, task.CurrentAssignee)
	assert.Equal(t, "u2", task.CurrentAssignee.UserID)
	assert.Equal(t, "bob", task.CurrentAssignee.Username)
	assert.Equal(t, []string{"infra"}, task.Tags)
}

func TestGetByID_NoAssignee(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(taskRow("t1", "published", emptyAssignment())...))

	repo := NewPostgresRepository(db)
	task, err := repo.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, task.CurrentAssignee)
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	repo := NewPostgresRepository(db)
	_, err = repo.GetByID(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_FiltersAndTotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := append(append([]string{}, taskRowColumns...), "total")
	row := append(taskRow("t1", "published", emptyAssignment()), 11)
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs("published", "cert", "", 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))

	repo := NewPostgresRepository(db)
	tasks, total, err := repo.List(context.Background(), ListFilter{
		Status:  models.TaskStatusPublished,
		Keyword: "cert",
		Limit:   20,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 11, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs("ghost", "claimed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	err = repo.SetStatus(context.Background(), "ghost", models.TaskStatusClaimed)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestAssignmentLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO task_assignments").
		WithArgs(sqlmock.AnyArg(), "t1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE task_assignments SET status = 'released'").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE task_assignments SET status = 'done'").
		WithArgs("t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.CreateAssignment(ctx, "t1", "u2"))
	require.NoError(t, repo.ReleaseAssignment(ctx, "t1"))
	require.NoError(t, repo.CompleteAssignment(ctx, "t1", time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}
