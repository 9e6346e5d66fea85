package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"opsboard/internal/common"
	"opsboard/internal/dbx"
	"opsboard/internal/server/models"
	"opsboard/internal/server/repositories/repomanager"
	"opsboard/internal/server/repositories/tasks"
)

const (
	maxTitleLength  = 120
	defaultPageSize = 20
	maxPageSize     = 100
)

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// TaskService implements the task board: listing, authoring and the
// claim/submit/verify lifecycle. All transitions run inside a transaction
// holding a row lock on the task.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

// TaskListParams is the query surface of GET /tasks. Assignee accepts a
// user id or the literal "me".
type TaskListParams struct {
	Keyword  string
	Status   string
	Assignee string
	Sort     string
	Page     int
	PageSize int
}

// TaskInput carries the fields of a new task. Publish makes the task go
// live immediately instead of staying a draft.
type TaskInput struct {
	Title           string
	DescriptionHTML string
	Bounty          int64
	Priority        string
	Deadline        *time.Time
	Tags            []string
	Publish         bool
}

// TaskUpdate patches an existing task. Nil fields are left untouched.
type TaskUpdate struct {
	Title           *string
	DescriptionHTML *string
	Bounty          *int64
	Priority        *string
	Deadline        *time.Time
	ClearDeadline   bool
	Tags            *[]string
}

// List returns a page of tasks visible to the actor. The wire status
// "available" maps to the stored "published"; drafts stay hidden from
// status-less listings at the repository level.
func (s *TaskService) List(ctx context.Context, actor *models.User, p TaskListParams) ([]*models.Task, int, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}

	status := p.Status
	if status == "available" {
		status = models.TaskStatusPublished
	}

	assignee := p.Assignee
	if assignee == "me" {
		assignee = actor.ID
	}

	f := tasks.ListFilter{
		Keyword:    strings.TrimSpace(p.Keyword),
		Status:     status,
		AssigneeID: assignee,
		Sort:       p.Sort,
		Limit:      p.PageSize,
		Offset:     (p.Page - 1) * p.PageSize,
	}
	return s.repomanager.Tasks(s.db).List(ctx, f)
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.repomanager.Tasks(s.db).GetByID(ctx, id)
}

// Create authors a task. Admin only.
func (s *TaskService) Create(ctx context.Context, actor *models.User, in TaskInput) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if err := validateTaskInput(in.Title, in.DescriptionHTML, in.Bounty); err != nil {
		return nil, err
	}

	t := &models.Task{
		Title:            strings.TrimSpace(in.Title),
		DescriptionHTML:  in.DescriptionHTML,
		DescriptionPlain: plainText(in.DescriptionHTML),
		Bounty:           in.Bounty,
		Priority:         priorityOrDefault(in.Priority),
		Status:           models.TaskStatusDraft,
		Deadline:         in.Deadline,
		Tags:             normalizeTags(in.Tags),
		CreatedBy:        actor.ID,
	}
	if in.Publish {
		t.Status = models.TaskStatusPublished
		t.PublishedBy = &actor.ID
	}

	created, err := s.repomanager.Tasks(s.db).Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return created, nil
}

// Update patches a task. Admin only; completed tasks are immutable.
func (s *TaskService) Update(ctx context.Context, actor *models.User, id string, up TaskUpdate) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)
		t, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status == models.TaskStatusCompleted {
			return common.ErrConflict
		}

		if up.Title != nil {
			t.Title = strings.TrimSpace(*up.Title)
		}
		if up.DescriptionHTML != nil {
			t.DescriptionHTML = *up.DescriptionHTML
			t.DescriptionPlain = plainText(*up.DescriptionHTML)
		}
		if up.Bounty != nil {
			t.Bounty = *up.Bounty
		}
		if up.Priority != nil {
			t.Priority = priorityOrDefault(*up.Priority)
		}
		if up.Deadline != nil {
			t.Deadline = up.Deadline
		} else if up.ClearDeadline {
			t.Deadline = nil
		}
		if up.Tags != nil {
			t.Tags = normalizeTags(*up.Tags)
		}

		if err := validateTaskInput(t.Title, t.DescriptionHTML, t.Bounty); err != nil {
			return err
		}
		return repo.UpdateFields(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a task. Admin only; completed tasks stay on the record.
func (s *TaskService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !actor.IsAdmin() {
		return common.ErrForbidden
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)
		t, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status == models.TaskStatusCompleted {
			return common.ErrConflict
		}
		return repo.SoftDelete(ctx, id)
	})
}

// Publish takes a draft live. Admin only.
func (s *TaskService) Publish(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}
	return s.transition(ctx, id, func(ctx context.Context, repo tasks.Repository, t *models.Task) error {
		if t.Status != models.TaskStatusDraft {
			return common.ErrConflict
		}
		return repo.MarkPublished(ctx, id, actor.ID)
	})
}

// Claim assigns a published task to the actor. Any signed-in user may claim.
func (s *TaskService) Claim(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	return s.transition(ctx, id, func(ctx context.Context, repo tasks.Repository, t *models.Task) error {
		if t.Status != models.TaskStatusPublished {
			return common.ErrConflict
		}
		if err := repo.CreateAssignment(ctx, id, actor.ID); err != nil {
			return err
		}
		return repo.SetStatus(ctx, id, models.TaskStatusClaimed)
	})
}

// Release hands a claimed task back to the pool. Assignee only.
func (s *TaskService) Release(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	return s.transition(ctx, id, func(ctx context.Context, repo tasks.Repository, t *models.Task) error {
		if t.Status != models.TaskStatusClaimed {
			return common.ErrConflict
		}
		if err := requireAssignee(ctx, repo, id, actor.ID); err != nil {
			return err
		}
		if err := repo.ReleaseAssignment(ctx, id); err != nil {
			return err
		}
		return repo.SetStatus(ctx, id, models.TaskStatusPublished)
	})
}

// Submit marks a claimed task as awaiting review. Assignee only.
func (s *TaskService) Submit(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	return s.transition(ctx, id, func(ctx context.Context, repo tasks.Repository, t *models.Task) error {
		if t.Status != models.TaskStatusClaimed {
			return common.ErrConflict
		}
		if err := requireAssignee(ctx, repo, id, actor.ID); err != nil {
			return err
		}
		return repo.SetStatus(ctx, id, models.TaskStatusSubmitted)
	})
}

// Verify accepts a submission and completes the task. Reviewers are admins
// and the task owner.
func (s *TaskService) Verify(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	return s.transition(ctx, id, func(ctx context.Context, repo tasks.Repository, t *models.Task) error {
		if t.Status != models.TaskStatusSubmitted {
			return common.ErrConflict
		}
		if !canReview(actor, t) {
			return common.ErrForbidden
		}
		now := time.Now()
		if err := repo.CompleteAssignment(ctx, id, now); err != nil {
			return err
		}
		return repo.MarkCompleted(ctx, id, now)
	})
}

// Reject sends a submission back to its assignee for rework. Reviewers are
// admins and the task owner. The assignment stays active.
func (s *TaskService) Reject(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	return s.transition(ctx, id, func(ctx context.Context, repo tasks.Repository, t *models.Task) error {
		if t.Status != models.TaskStatusSubmitted {
			return common.ErrConflict
		}
		if !canReview(actor, t) {
			return common.ErrForbidden
		}
		return repo.SetStatus(ctx, id, models.TaskStatusClaimed)
	})
}

// --- helpers below ---

// transition runs fn against a row-locked task and returns the refreshed
// task after commit so the response carries the joined assignment.
func (s *TaskService) transition(ctx context.Context, id string, fn func(ctx context.Context, repo tasks.Repository, t *models.Task) error) (*models.Task, error) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)
		t, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, repo, t)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func requireAssignee(ctx context.Context, repo tasks.Repository, taskID, userID string) error {
	a, err := repo.ActiveAssignment(ctx, taskID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrConflict
		}
		return err
	}
	if a.UserID != userID {
		return common.ErrForbidden
	}
	return nil
}

func canReview(actor *models.User, t *models.Task) bool {
	return actor.IsAdmin() || actor.ID == t.OwnerID()
}

func validateTaskInput(title, descriptionHTML string, bounty int64) error {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return common.ErrValidation
	}
	if strings.TrimSpace(plainText(descriptionHTML)) == "" {
		return common.ErrValidation
	}
	if bounty < 0 {
		return common.ErrValidation
	}
	return nil
}

// plainText strips markup and entities for search and previews.
func plainText(htmlText string) string {
	stripped := markupPattern.ReplaceAllString(htmlText, " ")
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

func priorityOrDefault(p string) string {
	switch p {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return p
	default:
		return models.PriorityMedium
	}
}

// normalizeTags trims, drops empties and dedupes case-insensitively,
// keeping the first spelling seen.
func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
