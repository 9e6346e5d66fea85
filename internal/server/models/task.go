package models

import "time"

// Task lifecycle statuses. "published" is what the board shows as
// available; clients normalize the name on their side.
const (
	TaskStatusDraft     = "draft"
	TaskStatusPublished = "published"
	TaskStatusClaimed   = "claimed"
	TaskStatusSubmitted = "submitted"
	TaskStatusCompleted = "completed"
)

// Task priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Assignment statuses.
const (
	AssignmentActive   = "active"
	AssignmentReleased = "released"
	AssignmentDone     = "done"
)

type Task struct {
	ID               string
	Title            string
	DescriptionHTML  string
	DescriptionPlain string
	Bounty           int64
	Priority         string
	Status           string
	Deadline         *time.Time
	Tags             []string
	CreatedBy        string
	PublishedBy      *string
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// CurrentAssignee is the active assignment, when one exists.
	CurrentAssignee *Assignment
}

// OwnerID is the reviewer of record: the publisher when set, otherwise the
// creator.
func (t *Task) OwnerID() string {
	if t.PublishedBy != nil && *t.PublishedBy != "" {
		return *t.PublishedBy
	}
	return t.CreatedBy
}

type Assignment struct {
	ID          string
	TaskID      string
	UserID      string
	Username    string
	DisplayName string
	Status      string
	AssignedAt  time.Time
	CompletedAt *time.Time
	ReleasedAt  *time.Time
}
