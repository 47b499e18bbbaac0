package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/loaders"
	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/prices"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	repo      *Repository
	allocRepo *allocation.Repository
	prices    *prices.Service
	log       zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(repo *Repository, allocRepo *allocation.Repository, priceSvc *prices.Service, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		allocRepo: allocRepo,
		prices:    priceSvc,
		log:       log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleList returns all portfolios.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []Record{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

// HandleCreate creates a new portfolio.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	rec, err := h.repo.Create(req.Name, req.Cash)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// HandleGet returns one portfolio with its positions.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}

	rec, err := h.repo.Get(id)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	positions, err := h.repo.GetPositions(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         rec.ID,
		"name":       rec.Name,
		"cash":       rec.Cash,
		"created_at": rec.CreatedAt,
		"positions":  positions,
	})
}

// HandleDelete removes a portfolio.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(id); err != nil {
		h.writeRepoError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandlePutPositions replaces a portfolio's positions (and optionally cash).
func (h *Handler) HandlePutPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}

	var req UpdatePositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.repo.ReplacePositions(id, req.Positions, req.Cash); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeRepoError(w, err)
		} else {
			h.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.log.Info().Int64("portfolio_id", id).Int("positions", len(req.Positions)).Msg("Positions replaced")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"saved": len(req.Positions)})
}

// HandleImportPositions replaces a portfolio's positions from a CSV body
// (columns ticker, asset_type, quantity, price). An optional cash query
// parameter updates the cash balance in the same transaction.
func (h *Handler) HandleImportPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}

	positions, err := loaders.ParsePositionsCSV(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cash *float64
	if raw := r.URL.Query().Get("cash"); raw != "" {
		v, err := loaders.ParseDecimal(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid cash value")
			return
		}
		cash = &v
	}

	if err := h.repo.ReplacePositions(id, positions, cash); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeRepoError(w, err)
		} else {
			h.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.csv"
	}
	if err := h.repo.RecordImport(id, filename); err != nil {
		h.log.Warn().Err(err).Int64("portfolio_id", id).Msg("Failed to record import run")
	}

	h.log.Info().Int64("portfolio_id", id).Int("positions", len(positions)).Msg("Positions imported")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"imported": len(positions)})
}

// HandleGetSummary returns the portfolio marked to market with weight
// deviations from the stored targets.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}

	pf, err := h.repo.Load(id)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	target, err := h.allocRepo.GetAllocation()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sheet := map[string]float64{}
	if h.prices.Configured() {
		sheet, err = h.prices.Get()
		if err != nil {
			h.log.Warn().Err(err).Msg("Price sheet unavailable, valuing with reference prices")
			sheet = map[string]float64{}
		}
	}

	summary, err := Summarize(pf, target, sheet)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeError(w, http.StatusInternalServerError, err.Error())
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
