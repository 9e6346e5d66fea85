package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"opsboard/internal/server/models"
	"opsboard/internal/server/services"
)

type taskCreateRequest struct {
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Bounty          int64    `json:"bounty"`
	Priority        string   `json:"priority"`
	Deadline        *string  `json:"deadline"`
	Tags            []string `json:"tags"`
	Publish         bool     `json:"publish"`
}

type taskUpdateRequest struct {
	Title           *string   `json:"title"`
	DescriptionHTML *string   `json:"descriptionHtml"`
	Bounty          *int64    `json:"bounty"`
	Priority        *string   `json:"priority"`
	Deadline        *string   `json:"deadline"`
	Tags            *[]string `json:"tags"`
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())
	q := r.URL.Query()

	items, total, err := h.tasks.List(r.Context(), actor, services.TaskListParams{
		Keyword:  q.Get("keyword"),
		Status:   q.Get("status"),
		Assignee: q.Get("assignee"),
		Sort:     q.Get("sort"),
		Page:     atoiOrZero(q.Get("page")),
		PageSize: atoiOrZero(q.Get("pageSize")),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskPage(items, total))
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())

	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	deadline, ok := parseDeadline(req.Deadline)
	if !ok {
		respondError(w, http.StatusBadRequest, "bad_request", "deadline must be RFC 3339")
		return
	}

	task, err := h.tasks.Create(r.Context(), actor, services.TaskInput{
		Title:           req.Title,
		DescriptionHTML: req.DescriptionHTML,
		Bounty:          req.Bounty,
		Priority:        req.Priority,
		Deadline:        deadline,
		Tags:            req.Tags,
		Publish:         req.Publish,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTaskDTO(task))
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())

	var req taskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	up := services.TaskUpdate{
		Title:           req.Title,
		DescriptionHTML: req.DescriptionHTML,
		Bounty:          req.Bounty,
		Priority:        req.Priority,
		Tags:            req.Tags,
	}
	if req.Deadline != nil {
		if *req.Deadline == "" {
			up.ClearDeadline = true
		} else {
			parsed, err := time.Parse(time.RFC3339, *req.Deadline)
			if err != nil {
				respondError(w, http.StatusBadRequest, "bad_request", "deadline must be RFC 3339")
				return
			}
			up.Deadline = &parsed
		}
	}

	task, err := h.tasks.Update(r.Context(), actor, chi.URLParam(r, "id"), up)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())
	if err := h.tasks.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handlePublishTask(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.tasks.Publish)
}

func (h *Handler) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.tasks.Claim)
}

func (h *Handler) handleReleaseTask(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.tasks.Release)
}

func (h *Handler) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.tasks.Submit)
}

func (h *Handler) handleVerifyTask(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.tasks.Verify)
}

func (h *Handler) handleRejectTask(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.tasks.Reject)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, *models.User, string) (*models.Task, error)) {
	actor, _ := currentUser(r.Context())
	task, err := op(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskDTO(task))
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parseDeadline accepts a missing or empty deadline and otherwise requires
// RFC 3339.
func parseDeadline(s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
