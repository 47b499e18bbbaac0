package allocation

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/targets"
)

// PositionsRepository provides access to a portfolio's positions.
type PositionsRepository interface {
	GetPositions(id int64) ([]domain.Position, error)
}

// Handler handles target allocation HTTP requests.
type Handler struct {
	repo          *Repository
	portfolioRepo PositionsRepository
	log           zerolog.Logger
}

// NewHandler creates a new allocation handler.
func NewHandler(repo *Repository, portfolioRepo PositionsRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo:          repo,
		portfolioRepo: portfolioRepo,
		log:           log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleGetTargets returns the stored target weights.
func (h *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	weights, err := h.repo.GetAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"weights": weights})
}

// HandlePutTargets replaces the stored target weights.
func (h *Handler) HandlePutTargets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.repo.ReplaceAll(req.Weights); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info().Int("tickers", len(req.Weights)).Msg("Targets replaced")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"saved": len(req.Weights)})
}

// HandleGenerateDefaults derives equal-weight targets from a portfolio's
// current positions, stores them, and returns the breakdown.
func (h *Handler) HandleGenerateDefaults(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PortfolioID int64 `json:"portfolio_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	positions, err := h.portfolioRepo.GetPositions(req.PortfolioID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	defaults, err := targets.BuildDefaults(positions)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.ReplaceAll(defaults.ByTicker.Weights()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights":     defaults.ByTicker.Weights(),
		"by_type":     defaults.ByType,
		"within_type": defaults.WithinTypeByTicker,
		"asset_types": defaults.AssetTypeByTicker,
	})
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
