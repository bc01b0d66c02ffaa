package handler

import (
	"encoding/json"
	"net/http"

	"coursecart/internal/model"
	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// UseCodeRequest is the body of POST /shoppingcart/use_code.
type UseCodeRequest struct {
	Code string `json:"code"`
}

// UpdateCartRequest is the body of POST /shoppingcart/update_user_cart.
// Qty is kept raw so that non-integer input yields a quantity error rather
// than a JSON error.
type UpdateCartRequest struct {
	ItemID int64           `json:"item_id"`
	Qty    json.RawMessage `json:"qty"`
}

// RemoveItemRequest is the body of POST /shoppingcart/remove_item.
type RemoveItemRequest struct {
	ID int64 `json:"id"`
}

// CartHandler handles shopping cart HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Show handles GET /shoppingcart/.
func (h *CartHandler) Show(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Cart(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddCourse handles POST /shoppingcart/add/course/{course_id}.
func (h *CartHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	courseID := chi.URLParam(r, "*")
	if courseID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "course ID is required", h.logger)
		return
	}

	view, err := h.service.AddCourse(r.Context(), p.UserID, courseID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UseCode handles POST /shoppingcart/use_code.
func (h *CartHandler) UseCode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req UseCodeRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.Code == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "code is required", h.logger)
		return
	}

	result, err := h.service.UseCode(r.Context(), p.UserID, req.Code)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UpdateQuantity handles POST /shoppingcart/update_user_cart.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateCartRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	qty, err := service.ParseQuantity(string(req.Qty))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	view, err := h.service.UpdateQuantity(r.Context(), p.UserID, req.ItemID, qty)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveItem handles POST /shoppingcart/remove_item.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req RemoveItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.service.RemoveItem(r.Context(), p.UserID, req.ID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Clear handles POST /shoppingcart/clear.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Clear(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ResetRedemptions handles POST /shoppingcart/reset_code_redemption.
func (h *CartHandler) ResetRedemptions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.ResetRedemptions(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
