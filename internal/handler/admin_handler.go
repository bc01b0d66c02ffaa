package handler

import (
	"net/http"

	"coursecart/internal/model"
	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ImportRequest is the body of POST /shoppingcart/admin/coupons/import.
type ImportRequest struct {
	Files []string `json:"files"`
}

// DonationConfigRequest is the body of PUT /shoppingcart/admin/donation_configuration.
type DonationConfigRequest struct {
	Enabled bool `json:"enabled"`
}

// MintCodesRequest is the body of POST /shoppingcart/admin/registration_codes.
type MintCodesRequest struct {
	CourseID string `json:"course_id"`
	Mode     string `json:"mode"`
	Count    int    `json:"count"`
}

// AdminHandler serves staff and sales admin operations.
type AdminHandler struct {
	admin    service.AdminService
	checkout service.CheckoutService
	logger   zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService, checkout service.CheckoutService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:    admin,
		checkout: checkout,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

// CreateCoupon handles POST /shoppingcart/admin/coupons.
func (h *AdminHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req service.CouponRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	c, err := h.admin.CreateCoupon(r.Context(), p.UserID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListCoupons handles GET /shoppingcart/admin/coupons.
func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.admin.ListCoupons(r.Context(), r.URL.Query().Get("course_id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}
	writeJSON(w, http.StatusOK, coupons)
}

// DeactivateCoupon handles DELETE /shoppingcart/admin/coupons/{couponID}.
func (h *AdminHandler) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "couponID"), "coupon ID", h.logger)
	if !ok {
		return
	}

	if err := h.admin.DeactivateCoupon(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ImportCoupons handles POST /shoppingcart/admin/coupons/import.
func (h *AdminHandler) ImportCoupons(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req ImportRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if len(req.Files) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "at least one file is required", h.logger)
		return
	}

	summary, err := h.admin.ImportCoupons(r.Context(), p.UserID, req.Files)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DonationConfiguration handles GET /shoppingcart/admin/donation_configuration.
func (h *AdminHandler) DonationConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.admin.DonationConfiguration(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SetDonationConfiguration handles PUT /shoppingcart/admin/donation_configuration.
func (h *AdminHandler) SetDonationConfiguration(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req DonationConfigRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	cfg, err := h.admin.SetDonationsEnabled(r.Context(), p.UserID, req.Enabled)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// MintCodes handles POST /shoppingcart/admin/registration_codes.
func (h *AdminHandler) MintCodes(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req MintCodesRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.CourseID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "course_id is required", h.logger)
		return
	}

	codes, err := h.admin.MintCodes(r.Context(), p.UserID, req.CourseID, req.Mode, req.Count)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, codes)
}

// RefundItem handles POST /shoppingcart/admin/items/{itemID}/refund.
func (h *AdminHandler) RefundItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "itemID"), "item ID", h.logger)
	if !ok {
		return
	}

	item, err := h.checkout.Refund(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id":  item.ID,
		"order_id": item.OrderID,
		"status":   item.Status,
	})
}
