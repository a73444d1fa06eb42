package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kdimtricp/vidportal/internal/auth"
	"github.com/kdimtricp/vidportal/internal/storage"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	origins := app.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	requireAuth := auth.RequireAuth(app.Verifier)

	r.Get("/api/health", app.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/videos", func(r chi.Router) {
		r.With(requireAuth, auth.RequireUser()).Get("/", app.ListVideosHandler)
		r.With(requireAuth, auth.RequireAdmin()).Post("/upload", app.UploadHandler)
		// View counting is open to anonymous callers.
		r.Post("/{locationId}/view", app.ViewHandler)
		r.With(requireAuth, auth.RequireAdmin()).Delete("/{locationId}", app.DeleteHandler)
	})

	if app.UploadDir != "" {
		fileServer := http.FileServer(http.Dir(app.UploadDir))
		r.Handle(storage.PublicPrefix+"*", http.StripPrefix(storage.PublicPrefix[:len(storage.PublicPrefix)-1], fileServer))
	}

	if app.FrontendDir == "" {
		r.Get("/", RootHandler)
	}
	r.NotFound(app.NotFoundHandler)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
