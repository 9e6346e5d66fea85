package board

import (
	"slices"
	"time"

	"opsboard/internal/client/api"
)

// TaskFromAPI normalizes a wire task into the board's domain shape.
// A backend status of "published" means the task sits on the board
// unclaimed, so it maps to StatusAvailable. Missing optional fields
// collapse to empty values instead of propagating nils.
func TaskFromAPI(item api.Task) Task {
	status := Status(item.Status)
	if item.Status == "published" {
		status = StatusAvailable
	}

	t := Task{
		ID:              item.ID,
		Title:           item.Title,
		Summary:         item.DescriptionPlain,
		DescriptionHTML: item.DescriptionHTML,
		Reward:          item.Bounty,
		Deadline:        parseTimePtr(item.Deadline),
		Priority:        item.Priority,
		Tags:            slices.Clone(item.Tags),
		Status:          status,
		CreatedBy:       item.CreatedBy,
		PublishedBy:     item.PublishedBy,
		CreatedAt:       parseTime(item.CreatedAt),
		UpdatedAt:       parseTime(item.UpdatedAt),
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if a := item.CurrentAssignee; a != nil {
		name := a.Username
		if name == "" {
			name = a.DisplayName
		}
		t.Assignee = &Assignee{ID: a.UserID, Name: name, State: a.Status}
		t.CompletedAt = parseTimePtr(a.CompletedAt)
	}
	return t
}

// AccountFromAPI normalizes a wire user into an account-list row.
func AccountFromAPI(item api.User) Account {
	name := item.DisplayName
	if name == "" {
		name = item.Username
	}
	teams := slices.Clone(item.Teams)
	if teams == nil {
		teams = []string{}
	}
	return Account{
		ID:    item.ID,
		Name:  name,
		Role:  roleFrom(item.Roles),
		Email: item.Email,
		Teams: teams,
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
