package prices

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Handler exposes the cached price sheet.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new prices handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "prices").Logger(),
	}
}

// HandleGet returns the cached price sheet.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		h.writeError(w, http.StatusServiceUnavailable, "no price source configured")
		return
	}

	sheet, err := h.service.Get()
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"prices":     sheet,
		"fetched_at": h.service.FetchedAt().Format(time.RFC3339),
	})
}

// HandleRefresh forces a re-fetch of the price sheet.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		h.writeError(w, http.StatusServiceUnavailable, "no price source configured")
		return
	}

	if err := h.service.Refresh(); err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
