package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/crowdin-gamification/internal/config"
	"github.com/Strob0t/crowdin-gamification/internal/middleware"
)

// MountRoutes registers all connector routes on r.
func MountRoutes(r chi.Router, h *Handlers, srv config.Server, auth config.Auth, roles middleware.ManagerChecker) {
	r.Get("/health", h.HealthStatus)

	// Crowdin authenticates with the webhook secret, not a remote user.
	// Every method is routed here so WebhookBody can answer 405 itself.
	r.With(middleware.WebhookBody(srv.MaxBodyBytes)).HandleFunc(srv.WebhookPath, h.HandleCrowdinWebhook)

	r.Route("/api/v1/crowdin", func(r chi.Router) {
		r.Use(middleware.RemoteUser(auth.UserHeader))
		r.Use(middleware.RequireManager(roles))

		r.Get("/projects", h.ListRemoteProjects)

		r.Route("/hooks", func(r chi.Router) {
			r.Get("/", h.ListHooks)
			r.Post("/", h.CreateHook)
			r.Post("/refresh", h.RefreshHooks)
			r.Get("/{projectId}", h.GetHook)
			r.Delete("/{projectId}", h.DeleteHook)
			r.Put("/{projectId}/watch-limit", h.SetWatchLimit)
		})
	})
}
