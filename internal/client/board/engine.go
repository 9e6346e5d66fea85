package board

import (
	"context"
	"errors"
	"strings"
	"time"

	"opsboard/internal/client/api"
)

var (
	// ErrNotAllowed means the acting user lacks the role or ownership the
	// operation requires.
	ErrNotAllowed = errors.New("not allowed for this user")
	// ErrInvalidTransition means the task is not in a state that permits
	// the operation.
	ErrInvalidTransition = errors.New("task state does not permit this operation")
	// ErrInvalidDraft means a publish or edit payload failed validation.
	ErrInvalidDraft = errors.New("title and description are required")
)

// Draft is a task being composed for publication or edit.
type Draft struct {
	Title           string
	DescriptionHTML string
	Reward          int64
	Priority        string
	Deadline        *time.Time
	Tags            []string
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.DescriptionHTML) == "" {
		return ErrInvalidDraft
	}
	if d.Reward < 0 {
		return ErrInvalidDraft
	}
	return nil
}

func (d Draft) deadlinePayload() *string {
	if d.Deadline == nil {
		return nil
	}
	s := d.Deadline.UTC().Format(time.RFC3339)
	return &s
}

func (d Draft) priorityOrDefault() string {
	if d.Priority == "" {
		return PriorityMedium
	}
	return d.Priority
}

// Engine gates lifecycle transitions. It checks the actor's role and the
// task's state locally so a stale action fails fast with a meaningful
// error, then issues a single mutating call. It never applies a transition
// to local state: on success the board re-fetches the affected collections
// to absorb server-side effects, and on failure nothing is touched.
type Engine struct {
	api Client
}

func NewEngine(api Client) *Engine {
	return &Engine{api: api}
}

// Publish creates a task visible on the board. Admin only.
func (e *Engine) Publish(ctx context.Context, draft Draft, actor CurrentUser) error {
	if !actor.IsAdmin() {
		return ErrNotAllowed
	}
	if err := draft.validate(); err != nil {
		return err
	}
	_, err := e.api.CreateTask(ctx, api.TaskDraft{
		Title:           strings.TrimSpace(draft.Title),
		DescriptionHTML: draft.DescriptionHTML,
		Bounty:          draft.Reward,
		Priority:        draft.priorityOrDefault(),
		Deadline:        draft.deadlinePayload(),
		Tags:            draft.Tags,
		Publish:         true,
	})
	return err
}

// Claim takes an available task for the acting user.
func (e *Engine) Claim(ctx context.Context, task Task, actor CurrentUser) error {
	if actor.ID == "" {
		return ErrNotAllowed
	}
	if task.Status != StatusAvailable {
		return ErrInvalidTransition
	}
	_, err := e.api.ClaimTask(ctx, task.ID)
	return err
}

// Release puts a claimed task back on the board. Assignee only.
func (e *Engine) Release(ctx context.Context, task Task, actor CurrentUser) error {
	if actor.ID == "" || task.AssigneeID() != actor.ID {
		return ErrNotAllowed
	}
	if task.Status != StatusClaimed {
		return ErrInvalidTransition
	}
	_, err := e.api.ReleaseTask(ctx, task.ID)
	return err
}

// Submit hands a claimed task over for review. Assignee only.
func (e *Engine) Submit(ctx context.Context, task Task, actor CurrentUser) error {
	if actor.ID == "" || task.AssigneeID() != actor.ID {
		return ErrNotAllowed
	}
	if task.Status != StatusClaimed {
		return ErrInvalidTransition
	}
	_, err := e.api.SubmitTask(ctx, task.ID)
	return err
}

// Verify accepts a submitted task as complete. Admin or task owner.
func (e *Engine) Verify(ctx context.Context, task Task, actor CurrentUser) error {
	if !canReview(task, actor) {
		return ErrNotAllowed
	}
	if task.Status != StatusSubmitted {
		return ErrInvalidTransition
	}
	_, err := e.api.VerifyTask(ctx, task.ID)
	return err
}

// Reject sends a submitted task back to its assignee, who keeps the claim.
// Admin or task owner.
func (e *Engine) Reject(ctx context.Context, task Task, actor CurrentUser) error {
	if !canReview(task, actor) {
		return ErrNotAllowed
	}
	if task.Status != StatusSubmitted {
		return ErrInvalidTransition
	}
	_, err := e.api.RejectTask(ctx, task.ID)
	return err
}

// Edit overwrites a task's editable fields. Admin only; completed tasks
// are frozen.
func (e *Engine) Edit(ctx context.Context, task Task, draft Draft, actor CurrentUser) error {
	if !actor.IsAdmin() {
		return ErrNotAllowed
	}
	if task.Status == StatusCompleted {
		return ErrInvalidTransition
	}
	if err := draft.validate(); err != nil {
		return err
	}

	title := strings.TrimSpace(draft.Title)
	description := draft.DescriptionHTML
	priority := draft.priorityOrDefault()
	tags := draft.Tags
	reward := draft.Reward
	_, err := e.api.UpdateTask(ctx, task.ID, api.TaskPatch{
		Title:           &title,
		DescriptionHTML: &description,
		Bounty:          &reward,
		Priority:        &priority,
		Deadline:        draft.deadlinePayload(),
		Tags:            &tags,
	})
	return err
}

// Delete removes a task. Admin only; completed tasks are never deleted.
func (e *Engine) Delete(ctx context.Context, task Task, actor CurrentUser) error {
	if !actor.IsAdmin() {
		return ErrNotAllowed
	}
	if task.Status == StatusCompleted {
		return ErrInvalidTransition
	}
	return e.api.DeleteTask(ctx, task.ID)
}

func canReview(task Task, actor CurrentUser) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID != "" && actor.ID == task.OwnerID()
}
