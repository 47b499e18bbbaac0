package rebalancing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/modules/jobs"
	"github.com/aristath/rebalancer/internal/modules/portfolio"
	"github.com/aristath/rebalancer/internal/rebalance"
)

// Handler handles rebalance HTTP requests.
type Handler struct {
	service  *Service
	registry *jobs.Registry
	log      zerolog.Logger
}

// NewHandler creates a new rebalancing handler.
func NewHandler(service *Service, registry *jobs.Registry, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		registry: registry,
		log:      log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleRebalance computes (and optionally applies) a trade plan
// synchronously.
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Run(req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleRebalanceAsync queues the run as a background job and returns its id.
func (h *Handler) HandleRebalanceAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	rec := h.registry.Submit(func() (interface{}, error) {
		return h.service.Run(req)
	})
	h.writeJSON(w, http.StatusAccepted, rec)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return Request{}, false
	}
	if req.Mode == "" {
		req.Mode = string(rebalance.ModeTrade)
	}
	if req.MinTradeNotional < 0 {
		h.writeError(w, http.StatusBadRequest, "min_trade_notional must be >= 0")
		return Request{}, false
	}
	return req, true
}

// writeServiceError maps the engine and settlement error taxonomy onto HTTP
// statuses: bad request shapes are 400, unknown portfolios 404, and plans the
// inputs cannot satisfy 422.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validation  *ValidationError
		invalidMode *rebalance.InvalidModeError

		missingPrice *rebalance.MissingPriceError
		invalidPrice *rebalance.InvalidPriceError
		unknownPos   *rebalance.UnknownPositionError
		oversell     *rebalance.OversellError
		noCash       *rebalance.InsufficientCashError
		noAssetType  *rebalance.MissingAssetTypeError
		invalidSide  *rebalance.InvalidTradeSideError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &invalidMode):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, portfolio.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &missingPrice),
		errors.As(err, &invalidPrice),
		errors.As(err, &unknownPos),
		errors.As(err, &oversell),
		errors.As(err, &noCash),
		errors.As(err, &noAssetType),
		errors.As(err, &invalidSide):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Rebalance failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
