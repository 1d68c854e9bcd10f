package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server and its database
// are reachable, and 503 otherwise.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "health check: database unreachable", "error", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, HealthResponse{Status: "unavailable"})
			return
		}
	}
	render.JSON(w, r, HealthResponse{Status: "ok"})
}
