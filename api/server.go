/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/parameters/*   Target version management
  /api/expurgos/*     Exclusion request workflow
  /api/history        Timeline reconstruction
  /api/criteria       Reference data
  /api/sectors        Reference data

SECURITY NOTE:
  Identity arrives in X-User-* headers set by the gateway; this service
  trusts them. Do not expose it without the gateway in front.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-User-Name", "X-User-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Target version routes
		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", h.ListParameters)
			r.Post("/", h.CreateParameter)
			r.Post("/calculate", h.CalculateParameter)
			r.Get("/{id}", h.GetParameter)
			r.Post("/{id}/versions", h.CreateParameterVersion)
			r.Delete("/{id}", h.DeleteParameter)
		})

		// Exclusion request routes
		r.Route("/expurgos", func(r chi.Router) {
			r.Get("/", h.ListExpurgos)
			r.Post("/", h.CreateExpurgo)
			r.Get("/{id}", h.GetExpurgo)
			r.Post("/{id}/approve", h.ApproveExpurgo)
			r.Post("/{id}/reject", h.RejectExpurgo)
		})

		// History routes
		r.Get("/history", h.GetHistory)

		// Reference data routes
		r.Get("/criteria", h.ListCriteria)
		r.Get("/sectors", h.ListSectors)

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
