package handler

import (
	"net/http"

	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RedemptionHandler handles the registration code redemption page.
type RedemptionHandler struct {
	service service.RedemptionService
	logger  zerolog.Logger
}

// NewRedemptionHandler creates a new redemption handler.
func NewRedemptionHandler(service service.RedemptionService, logger zerolog.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		service: service,
		logger:  logger.With().Str("handler", "redemption").Logger(),
	}
}

// Show handles GET /shoppingcart/register/redeem/{code}.
func (h *RedemptionHandler) Show(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	info, err := h.service.Describe(r.Context(), p.UserID, chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Redeem handles POST /shoppingcart/register/redeem/{code}.
func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	info, err := h.service.Redeem(r.Context(), p.UserID, chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
