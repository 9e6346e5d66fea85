package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsboard/internal/common"
	"opsboard/internal/dbx"
	"opsboard/internal/server/models"
	"opsboard/internal/server/repositories/sessions"
	"opsboard/internal/server/repositories/tasks"
	"opsboard/internal/server/repositories/users"
)

// fakeRepoManager hands out in-memory repositories regardless of the db
// handle. Services still drive real transactions against the sqlmock db,
// so tests assert Begin/Commit pairs without any SQL expectations.
type fakeRepoManager struct {
	users    *fakeUsersRepo
	sessions *fakeSessionsRepo
	tasks    *fakeTasksRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    &fakeUsersRepo{byID: map[string]*models.User{}},
		sessions: &fakeSessionsRepo{byHash: map[string]*models.Session{}},
		tasks:    &fakeTasksRepo{byID: map[string]*models.Task{}, assignments: map[string][]*models.Assignment{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return m.sessions }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository              { return m.tasks }

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectTxRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// --- users ---

type fakeUsersRepo struct {
	byID map[string]*models.User
	err  error
}

func (r *fakeUsersRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = &u
	return &u, nil
}

func (r *fakeUsersRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUsersRepo) List(_ context.Context, keyword string, limit, offset int) ([]*models.User, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	all := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		if keyword == "" || strings.Contains(strings.ToLower(u.Username+" "+u.DisplayName), strings.ToLower(keyword)) {
			copied := *u
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeUsersRepo) UpdateProfile(_ context.Context, id, displayName, headline, bio string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.DisplayName, u.Headline, u.Bio = displayName, headline, bio
	return nil
}

func (r *fakeUsersRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUsersRepo) SetRoles(_ context.Context, id string, roles []string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Roles = roles
	return nil
}

func (r *fakeUsersRepo) SetAvatarURL(_ context.Context, id, avatarURL string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.AvatarURL = avatarURL
	return nil
}

// --- sessions ---

type fakeSessionsRepo struct {
	byHash map[string]*models.Session
}

func (r *fakeSessionsRepo) Create(_ context.Context, userID, tokenHash string, ttl time.Duration) error {
	r.byHash[tokenHash] = &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeSessionsRepo) FindByHash(_ context.Context, tokenHash string) (*models.Session, error) {
	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionsRepo) DeleteByHash(_ context.Context, tokenHash string) error {
	if _, ok := r.byHash[tokenHash]; !ok {
		return common.ErrNotFound
	}
	delete(r.byHash, tokenHash)
	return nil
}

func (r *fakeSessionsRepo) DeleteExpired(context.Context) (int64, error) {
	var n int64
	for h, s := range r.byHash {
		if s.ExpiresAt.Before(time.Now()) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}

// --- tasks ---

type fakeTasksRepo struct {
	byID        map[string]*models.Task
	assignments map[string][]*models.Assignment
	lastFilter  tasks.ListFilter
}

func (r *fakeTasksRepo) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	copied := *t
	if copied.ID == "" {
		copied.ID = uuid.NewString()
	}
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	r.byID[copied.ID] = &copied
	return r.GetByID(context.Background(), copied.ID)
}

func (r *fakeTasksRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *t
	for _, a := range r.assignments[id] {
		if a.Status == models.AssignmentActive || a.Status == models.AssignmentDone {
			assignment := *a
			copied.CurrentAssignee = &assignment
		}
	}
	return &copied, nil
}

func (r *fakeTasksRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTasksRepo) List(ctx context.Context, f tasks.ListFilter) ([]*models.Task, int, error) {
	r.lastFilter = f
	out := []*models.Task{}
	for id, t := range r.byID {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Status == "" && t.Status == models.TaskStatusDraft {
			continue
		}
		got, _ := r.GetByID(ctx, id)
		if f.AssigneeID != "" && (got.CurrentAssignee == nil || got.CurrentAssignee.UserID != f.AssigneeID) {
			continue
		}
		out = append(out, got)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeTasksRepo) UpdateFields(_ context.Context, t *models.Task) error {
	stored, ok := r.byID[t.ID]
	if !ok {
		return common.ErrNotFound
	}
	copied := *t
	copied.CurrentAssignee = nil
	copied.UpdatedAt = time.Now()
	copied.CreatedAt = stored.CreatedAt
	r.byID[t.ID] = &copied
	return nil
}

func (r *fakeTasksRepo) SetStatus(_ context.Context, id, status string) error {
	t, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTasksRepo) MarkPublished(_ context.Context, id, publishedBy string) error {
	t, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Status = models.TaskStatusPublished
	t.PublishedBy = &publishedBy
	t.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTasksRepo) MarkCompleted(_ context.Context, id string, at time.Time) error {
	t, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
	return nil
}

func (r *fakeTasksRepo) SoftDelete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeTasksRepo) ActiveAssignment(_ context.Context, taskID string) (*models.Assignment, error) {
	for _, a := range r.assignments[taskID] {
		if a.Status == models.AssignmentActive {
			copied := *a
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeTasksRepo) CreateAssignment(_ context.Context, taskID, userID string) error {
	r.assignments[taskID] = append(r.assignments[taskID], &models.Assignment{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		UserID:     userID,
		Status:     models.AssignmentActive,
		AssignedAt: time.Now(),
	})
	return nil
}

func (r *fakeTasksRepo) ReleaseAssignment(_ context.Context, taskID string) error {
	for _, a := range r.assignments[taskID] {
		if a.Status == models.AssignmentActive {
			now := time.Now()
			a.Status = models.AssignmentReleased
			a.ReleasedAt = &now
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakeTasksRepo) CompleteAssignment(_ context.Context, taskID string, at time.Time) error {
	for _, a := range r.assignments[taskID] {
		if a.Status == models.AssignmentActive {
			a.Status = models.AssignmentDone
			a.CompletedAt = &at
			return nil
		}
	}
	return common.ErrNotFound
}
