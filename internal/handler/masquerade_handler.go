package handler

import (
	"net/http"

	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MasqueradeRequest is the body of PUT /masquerade/{course_id}.
type MasqueradeRequest struct {
	Role string `json:"role"`
}

// MasqueradeHandler lets staff view a course as a student.
type MasqueradeHandler struct {
	service service.MasqueradeService
	logger  zerolog.Logger
}

// NewMasqueradeHandler creates a new masquerade handler.
func NewMasqueradeHandler(service service.MasqueradeService, logger zerolog.Logger) *MasqueradeHandler {
	return &MasqueradeHandler{
		service: service,
		logger:  logger.With().Str("handler", "masquerade").Logger(),
	}
}

// Get handles GET /masquerade/{course_id}.
func (h *MasqueradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.View(p.UserID, chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Set handles PUT /masquerade/{course_id}.
func (h *MasqueradeHandler) Set(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req MasqueradeRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.service.SetRole(p.UserID, chi.URLParam(r, "*"), req.Role)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
