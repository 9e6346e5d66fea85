package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// TaskListParams narrows a task listing. Zero values are omitted.
type TaskListParams struct {
	Keyword  string
	Sort     string
	Status   string
	Assignee string
	Page     int
	PageSize int
}

func (p TaskListParams) query() url.Values {
	q := url.Values{}
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Assignee != "" {
		q.Set("assignee", p.Assignee)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	return q
}

// TaskDraft is the payload for creating a task. Publish makes the task
// visible on the board immediately instead of leaving it a draft.
type TaskDraft struct {
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Bounty          int64    `json:"bounty"`
	Priority        string   `json:"priority,omitempty"`
	Deadline        *string  `json:"deadline,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Publish         bool     `json:"publish,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title           *string   `json:"title,omitempty"`
	DescriptionHTML *string   `json:"descriptionHtml,omitempty"`
	Bounty          *int64    `json:"bounty,omitempty"`
	Priority        *string   `json:"priority,omitempty"`
	Deadline        *string   `json:"deadline,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
}

func (g *Gateway) ListTasks(ctx context.Context, p TaskListParams) (TaskPage, error) {
	raw, err := g.Call(ctx, http.MethodGet, "/api/v1/tasks", CallOptions{Query: p.query()})
	if err != nil {
		return TaskPage{}, err
	}
	var page TaskPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return TaskPage{}, err
	}
	return page, nil
}

func (g *Gateway) GetTask(ctx context.Context, id string) (Task, error) {
	raw, err := g.Call(ctx, http.MethodGet, "/api/v1/tasks/"+id, CallOptions{})
	if err != nil {
		return Task{}, err
	}
	return decodeTask(raw)
}

func (g *Gateway) CreateTask(ctx context.Context, draft TaskDraft) (Task, error) {
	raw, err := g.Call(ctx, http.MethodPost, "/api/v1/tasks", CallOptions{Body: draft})
	if err != nil {
		return Task{}, err
	}
	return decodeTask(raw)
}

func (g *Gateway) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	raw, err := g.Call(ctx, http.MethodPatch, "/api/v1/tasks/"+id, CallOptions{Body: patch})
	if err != nil {
		return Task{}, err
	}
	return decodeTask(raw)
}

func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	_, err := g.Call(ctx, http.MethodDelete, "/api/v1/tasks/"+id, CallOptions{})
	return err
}

func (g *Gateway) PublishTask(ctx context.Context, id string) (Task, error) {
	return g.transition(ctx, id, "publish")
}

func (g *Gateway) ClaimTask(ctx context.Context, id string) (Task, error) {
	return g.transition(ctx, id, "claim")
}

func (g *Gateway) ReleaseTask(ctx context.Context, id string) (Task, error) {
	return g.transition(ctx, id, "release")
}

func (g *Gateway) SubmitTask(ctx context.Context, id string) (Task, error) {
	return g.transition(ctx, id, "submit-progress")
}

func (g *Gateway) VerifyTask(ctx context.Context, id string) (Task, error) {
	return g.transition(ctx, id, "verify")
}

func (g *Gateway) RejectTask(ctx context.Context, id string) (Task, error) {
	return g.transition(ctx, id, "reject")
}

func (g *Gateway) transition(ctx context.Context, id, action string) (Task, error) {
	raw, err := g.Call(ctx, http.MethodPost, "/api/v1/tasks/"+id+"/"+action, CallOptions{})
	if err != nil {
		return Task{}, err
	}
	return decodeTask(raw)
}

func decodeTask(raw json.RawMessage) (Task, error) {
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}
