package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type profileUpdateRequest struct {
	DisplayName *string `json:"displayName"`
	Headline    *string `json:"headline"`
	Bio         *string `json:"bio"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type toggleAdminRequest struct {
	Grant bool `json:"grant"`
}

type avatarUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	AvatarURL string `json:"avatarUrl"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())
	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())
	q := r.URL.Query()

	items, total, err := h.users.List(r.Context(), actor, q.Get("keyword"), atoiOrZero(q.Get("page")), atoiOrZero(q.Get("pageSize")))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserPage(items, total))
}

func (h *Handler) handleToggleAdmin(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())

	var req toggleAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	user, err := h.users.ToggleAdmin(r.Context(), actor, chi.URLParam(r, "id"), req.Grant)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

// handleUpdateProfile patches the actor's own profile. Omitted fields keep
// their stored values.
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	current, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	displayName, headline, bio := current.DisplayName, current.Headline, current.Bio
	if req.DisplayName != nil {
		displayName = *req.DisplayName
	}
	if req.Headline != nil {
		headline = *req.Headline
	}
	if req.Bio != nil {
		bio = *req.Bio
	}

	user, err := h.users.UpdateProfile(r.Context(), actor, displayName, headline, bio)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())

	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	if err := h.users.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (h *Handler) handleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r.Context())

	grant, err := h.users.RequestAvatarUpload(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, avatarUploadResponse{
		UploadURL: grant.UploadURL,
		AvatarURL: grant.AvatarURL,
	})
}
