package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"expert-crm/internal/config"
	"expert-crm/internal/handler"
	"expert-crm/internal/middleware"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Expert       *handler.ExpertHandler
	Reclaim      *handler.ReclaimHandler
	Cron         *handler.CronHandler
	Webhook      *handler.WebhookHandler
	Settings     *handler.SettingsHandler
	Decay        *handler.DecayHandler
	Audit        *handler.AuditHandler
	Notification *handler.NotificationHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	h Handlers,
	healthCheck func(ctx context.Context) error,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := healthCheck(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Post("/register", h.Auth.Register)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		// Machine-to-machine triggers carry their own authentication.
		api.Get("/cron/expire-ownership", h.Cron.ExpireOwnership)
		api.Post("/webhooks/contact-verified", h.Webhook.ContactVerified)

		api.With(authMiddleware.RequireAuth).Get("/experts", h.Expert.List)
		api.With(authMiddleware.RequireAuth).Get("/experts/{id}", h.Expert.Get)
		api.With(authMiddleware.RequireAuth).Post("/experts", h.Expert.Create)
		api.With(authMiddleware.RequireAuth).Get("/experts/{id}/contacts", h.Expert.ListContacts)
		api.With(authMiddleware.RequireAuth).Post("/experts/{id}/contacts", h.Expert.AddContact)

		api.With(authMiddleware.RequireAuth).Get("/notifications", h.Notification.List)
		api.With(authMiddleware.RequireAuth).Post("/notifications/{id}/read", h.Notification.MarkRead)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin"))

			admin.Patch("/experts/{id}/force-expire", h.Reclaim.ForceExpire)
			admin.Post("/settings/bulk-reclaim", h.Reclaim.BulkReclaim)
			admin.Get("/settings/lease-days", h.Settings.GetLeaseDays)
			admin.Put("/settings/lease-days", h.Settings.SetLeaseDays)
			admin.Get("/decay", h.Decay.Snapshot)
			admin.Get("/audit", h.Audit.List)
			admin.Get("/users", h.User.List)
			admin.Put("/users/{id}/role", h.User.ChangeRole)
		})
	})

	return r
}
