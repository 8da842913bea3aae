// Package health provides the HTTP health check endpoint.
package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"prism/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Handler provides the health check endpoint.
type Handler struct {
	startTime time.Time
}

// New creates a new health handler.
func New() *Handler {
	return &Handler{startTime: time.Now()}
}

// Register mounts the health route on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/health", h.HandleStatus)
}

// StatusResponse is the health endpoint response shape.
type StatusResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus reports liveness with version and uptime information.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Message:       "prism backend is running",
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
