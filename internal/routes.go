package courier

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the full HTTP handler, middleware included.
func (s *Server) Routes(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed."})
	})

	r.Get("/health", s.HandleHealth)

	r.Post("/api/contact", s.HandleContact)
	r.Options("/api/contact", s.HandlePreflight)

	r.Post("/api/subscribe", s.HandleSubscribe)
	r.Options("/api/subscribe", s.HandlePreflight)

	return r
}
