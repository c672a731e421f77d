/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the desktop/web frontend

SECURITY NOTE:
  No authentication middleware. The engine is designed to sit behind a
  local frontend, not on the open internet.

SEE ALSO:
  - handlers.go, cash.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Post("/batch", h.BatchUpdateStudents)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Get("/{id}/stats", h.StudentStats)
			r.Get("/{id}/cash", h.StudentCash)

			r.Get("/{id}/scores", h.ListScores)
			r.Post("/{id}/scores", h.AddScore)
			r.Put("/{id}/scores/{index}", h.UpdateScore)
			r.Delete("/{id}/scores/{index}", h.RemoveScore)

			r.Put("/{id}/membership", h.SetMembership)
			r.Delete("/{id}/membership", h.ClearMembership)
			r.Post("/{id}/membership/preset", h.GrantMembership)
		})

		r.Get("/memberships/expiring", h.ExpiringMemberships)

		r.Route("/cash", func(r chi.Router) {
			r.Get("/", h.ListCash)
			r.Post("/", h.CreateCash)
			r.Get("/{id}", h.GetCash)
			r.Put("/{id}", h.UpdateCash)
			r.Delete("/{id}", h.DeleteCash)
			r.Put("/{id}/status", h.UpdateInstallmentStatus)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Get("/plans/{planID}", h.ListPlan)
			r.Post("/plans/{planID}/next", h.GenerateNextInstallment)
			r.Post("/plans/{planID}/cancel", h.CancelPlan)
			r.Post("/overdue-sweep", h.OverdueSweep)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/dashboard", h.DashboardStats)
			r.Get("/financial", h.FinancialStats)
		})

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
