package httpapi

import (
	"time"

	"opsboard/internal/server/models"
)

// Wire shapes. Field names are part of the public API contract; timestamps
// travel as RFC 3339 strings.

type userDTO struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Headline    string   `json:"headline"`
	Bio         string   `json:"bio"`
	AvatarURL   string   `json:"avatarUrl"`
	Roles       []string `json:"roles"`
	Teams       []string `json:"teams"`
}

type assignmentDTO struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Status      string  `json:"status"`
	AssignedAt  string  `json:"assignedAt"`
	CompletedAt *string `json:"completedAt"`
}

type taskDTO struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	DescriptionHTML  string         `json:"descriptionHtml"`
	DescriptionPlain string         `json:"descriptionPlain"`
	Bounty           int64          `json:"bounty"`
	Priority         string         `json:"priority"`
	Status           string         `json:"status"`
	Deadline         *string        `json:"deadline"`
	Tags             []string       `json:"tags"`
	CreatedBy        string         `json:"createdBy"`
	PublishedBy      string         `json:"publishedBy"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
	CompletedAt      *string        `json:"completedAt"`
	CurrentAssignee  *assignmentDTO `json:"currentAssignee"`
}

type pageDTO[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func toUserDTO(u *models.User) userDTO {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	teams := u.Teams
	if teams == nil {
		teams = []string{}
	}
	return userDTO{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Headline:    u.Headline,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		Roles:       roles,
		Teams:       teams,
	}
}

func toTaskDTO(t *models.Task) taskDTO {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	var publishedBy string
	if t.PublishedBy != nil {
		publishedBy = *t.PublishedBy
	}
	dto := taskDTO{
		ID:               t.ID,
		Title:            t.Title,
		DescriptionHTML:  t.DescriptionHTML,
		DescriptionPlain: t.DescriptionPlain,
		Bounty:           t.Bounty,
		Priority:         t.Priority,
		Status:           t.Status,
		Deadline:         timePtr(t.Deadline),
		Tags:             tags,
		CreatedBy:        t.CreatedBy,
		PublishedBy:      publishedBy,
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        t.UpdatedAt.Format(time.RFC3339),
		CompletedAt:      timePtr(t.CompletedAt),
	}
	if a := t.CurrentAssignee; a != nil {
		dto.CurrentAssignee = &assignmentDTO{
			UserID:      a.UserID,
			Username:    a.Username,
			DisplayName: a.DisplayName,
			Status:      a.Status,
			AssignedAt:  a.AssignedAt.Format(time.RFC3339),
			CompletedAt: timePtr(a.CompletedAt),
		}
	}
	return dto
}

func toTaskPage(items []*models.Task, total int) pageDTO[taskDTO] {
	page := pageDTO[taskDTO]{Items: make([]taskDTO, 0, len(items)), Total: total}
	for _, t := range items {
		page.Items = append(page.Items, toTaskDTO(t))
	}
	return page
}

func toUserPage(items []*models.User, total int) pageDTO[userDTO] {
	page := pageDTO[userDTO]{Items: make([]userDTO, 0, len(items)), Total: total}
	for _, u := range items {
		page.Items = append(page.Items, toUserDTO(u))
	}
	return page
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
