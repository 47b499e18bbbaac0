package jobs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes job status lookups.
type Handler struct {
	registry *Registry
	log      zerolog.Logger
}

// NewHandler creates a new jobs handler.
func NewHandler(registry *Registry, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log.With().Str("handler", "jobs").Logger(),
	}
}

// HandleGet returns the state of one job.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, ok := h.registry.Get(id)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found or expired"})
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
