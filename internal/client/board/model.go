// Package board holds the client's view of the task board: the domain
// types, the lifecycle rules that gate task transitions, and a view model
// that keeps derived lists consistent with what the server returns.
package board

import "time"

// Status is a task's place in its lifecycle.
type Status string

const (
	StatusAvailable Status = "available"
	StatusClaimed   Status = "claimed"
	StatusSubmitted Status = "submitted"
	StatusCompleted Status = "completed"
)

// Roles an account can hold.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Priorities, strongest first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Assignee is the user currently holding a task.
type Assignee struct {
	ID    string
	Name  string
	State string
}

// Task is a board entry. Optional fields are zero values, never nil
// pointers leaking into views (Deadline/CompletedAt/Assignee excepted,
// where absence is meaningful).
type Task struct {
	ID              string
	Title           string
	Summary         string
	DescriptionHTML string
	Reward          int64
	Deadline        *time.Time
	Priority        string
	Tags            []string
	Status          Status
	Assignee        *Assignee
	CreatedBy       string
	PublishedBy     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// OwnerID is who reviews the task: the publisher when known, otherwise the
// creator.
func (t Task) OwnerID() string {
	if t.PublishedBy != "" {
		return t.PublishedBy
	}
	return t.CreatedBy
}

// AssigneeID returns the holder's id, or "" when the task is unclaimed.
func (t Task) AssigneeID() string {
	if t.Assignee == nil {
		return ""
	}
	return t.Assignee.ID
}

// Account is a row in the admin-facing account list.
type Account struct {
	ID    string
	Name  string
	Role  string
	Email string
	Teams []string
}

func (a Account) IsAdmin() bool { return a.Role == RoleAdmin }
