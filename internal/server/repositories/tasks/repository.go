// Package tasks implements task and assignment persistence.
package tasks

import (
	"context"
	"time"

	"opsboard/internal/server/models"
)

// ListFilter narrows and orders a task listing.
type ListFilter struct {
	Keyword    string
	Status     string
	AssigneeID string
	Sort       string
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	// GetByIDForUpdate locks the task row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, f ListFilter) ([]*models.Task, int, error)

	UpdateFields(ctx context.Context, t *models.Task) error
	SetStatus(ctx context.Context, id, status string) error
	MarkPublished(ctx context.Context, id, publishedBy string) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	SoftDelete(ctx context.Context, id string) error

	ActiveAssignment(ctx context.Context, taskID string) (*models.Assignment, error)
	CreateAssignment(ctx context.Context, taskID, userID string) error
	ReleaseAssignment(ctx context.Context, taskID string) error
	CompleteAssignment(ctx context.Context, taskID string, at time.Time) error
}
