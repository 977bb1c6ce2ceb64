package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agendavel/agendavel-api/internal/directory"
)

type RouterConfig struct {
	Scheduling    SchedulingService
	Directory     DirectoryService
	Notifications NotificationStore
	Tokens        TokenValidator
	Cache         SlotResponseCache
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Log           zerolog.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public catalogue
	r.Get("/providers", listProvidersHandler(cfg.Directory))
	r.Get("/providers/{id}/availability", availabilityHandler(cfg.Scheduling, cfg.Cache, cfg.Log))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens))

		r.Get("/appointments", listAgendaHandler(cfg.Scheduling))
		r.Get("/notifications", listNotificationsHandler(cfg.Notifications))
		r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))
		r.Get("/providers/{id}/reviews", providerReviewsHandler(cfg.Scheduling))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(directory.RoleClient))

			r.Post("/appointments", createAppointmentHandler(cfg.Scheduling))
			r.Post("/appointments/{id}/cancel-by-client", cancelByClientHandler(cfg.Scheduling))
			r.Post("/reviews", createReviewHandler(cfg.Scheduling))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(directory.RoleProvider))

			r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Scheduling))
			r.Post("/appointments/{id}/refuse", refuseAppointmentHandler(cfg.Scheduling))
			r.Post("/appointments/{id}/mark-completed", markCompletedHandler(cfg.Scheduling))
			r.Put("/appointments/{id}/notes", updateNotesHandler(cfg.Scheduling))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(directory.RoleAdmin))

			r.Post("/appointments/{id}/cancel-by-admin", cancelByAdminHandler(cfg.Scheduling))
			r.Post("/providers/{id}/approve", approveProviderHandler(cfg.Directory))
			r.Post("/providers/{id}/block", blockProviderHandler(cfg.Directory))
		})
	})

	return r
}
