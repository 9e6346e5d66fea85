package httpapi

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"opsboard/internal/server/models"
)

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

// authRequired parses the bearer token and binds an actor built from its
// claims. Roles ride in the token, so role gates need no database hit.
func (h *Handler) authRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r.Header.Get("Authorization"))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing access token")
			return
		}

		claims, err := h.auth.VerifyAccessToken(token)
		if err != nil {
			h.logger.Debug(r.Context(), "access token rejected", "error", err)
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		actor := &models.User{
			ID:          claims.Subject,
			Username:    claims.Username,
			DisplayName: claims.DisplayName,
			Roles:       claims.Roles,
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), actor)))
	})
}

func (h *Handler) adminRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := currentUser(r.Context())
		if !ok || !actor.IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
