// Package httpapi exposes the REST surface of the task board: auth, task
// lifecycle and account management, all wrapped in a {data}/{error}
// envelope.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"opsboard/internal/logging"
	"opsboard/internal/server/auth"
	"opsboard/internal/server/config"
	"opsboard/internal/server/models"
	"opsboard/internal/server/services"
)

// Service interfaces consumed by the handlers. The concrete services
// satisfy them; tests substitute fakes.
type authService interface {
	Login(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyAccessToken(tokenString string) (*auth.Claims, error)
}

type taskService interface {
	List(ctx context.Context, actor *models.User, p services.TaskListParams) ([]*models.Task, int, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, actor *models.User, in services.TaskInput) (*models.Task, error)
	Update(ctx context.Context, actor *models.User, id string, up services.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Publish(ctx context.Context, actor *models.User, id string) (*models.Task, error)
	Claim(ctx context.Context, actor *models.User, id string) (*models.Task, error)
	Release(ctx context.Context, actor *models.User, id string) (*models.Task, error)
	Submit(ctx context.Context, actor *models.User, id string) (*models.Task, error)
	Verify(ctx context.Context, actor *models.User, id string) (*models.Task, error)
	Reject(ctx context.Context, actor *models.User, id string) (*models.Task, error)
}

type userService interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, actor *models.User, keyword string, page, pageSize int) ([]*models.User, int, error)
	ToggleAdmin(ctx context.Context, actor *models.User, id string, grant bool) (*models.User, error)
	UpdateProfile(ctx context.Context, actor *models.User, displayName, headline, bio string) (*models.User, error)
	ChangePassword(ctx context.Context, actor *models.User, currentPassword, newPassword string) error
	RequestAvatarUpload(ctx context.Context, actor *models.User) (*services.AvatarUpload, error)
}

var (
	_ authService = (*services.AuthService)(nil)
	_ taskService = (*services.TaskService)(nil)
	_ userService = (*services.UserService)(nil)
)

// Handler carries the services behind the REST endpoints.
type Handler struct {
	auth   authService
	tasks  taskService
	users  userService
	logger logging.Logger
}

// NewRouter wires the full route tree. limiter may be nil.
func NewRouter(cfg *config.Config, authSvc authService, taskSvc taskService, userSvc userService, limiter *LoginLimiter, logger logging.Logger) http.Handler {
	h := &Handler{auth: authSvc, tasks: taskSvc, users: userSvc, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(h.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.handleHealth)

	r.Route("/api/v1", func(api chi.Router) {
		api.With(limiter.middleware).Post("/auth/login", h.handleLogin)
		api.Post("/auth/refresh", h.handleRefresh)
		api.Post("/auth/logout", h.handleLogout)

		api.Group(func(priv chi.Router) {
			priv.Use(h.authRequired)

			priv.Get("/users/me", h.handleMe)
			priv.Patch("/users/me/profile", h.handleUpdateProfile)
			priv.Patch("/users/me/password", h.handleChangePassword)
			priv.Post("/users/me/avatar-upload", h.handleAvatarUpload)

			priv.Get("/tasks", h.handleListTasks)
			priv.Get("/tasks/{id}", h.handleGetTask)
			priv.Post("/tasks/{id}/claim", h.handleClaimTask)
			priv.Post("/tasks/{id}/release", h.handleReleaseTask)
			priv.Post("/tasks/{id}/submit-progress", h.handleSubmitTask)
			// verify/reject stay outside the admin gate: the task owner
			// reviews too, the service checks per task
			priv.Post("/tasks/{id}/verify", h.handleVerifyTask)
			priv.Post("/tasks/{id}/reject", h.handleRejectTask)

			priv.Group(func(admin chi.Router) {
				admin.Use(h.adminRequired)
				admin.Post("/tasks", h.handleCreateTask)
				admin.Patch("/tasks/{id}", h.handleUpdateTask)
				admin.Delete("/tasks/{id}", h.handleDeleteTask)
				admin.Post("/tasks/{id}/publish", h.handlePublishTask)

				admin.Get("/users", h.handleListUsers)
				admin.Post("/users/{id}/toggle-admin", h.handleToggleAdmin)
			})
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
