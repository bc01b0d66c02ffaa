package handler

import (
	"net/http"
	"strconv"

	"coursecart/internal/model"
	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CourseHandler handles course catalog HTTP requests.
type CourseHandler struct {
	service service.CourseService
	logger  zerolog.Logger
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(service service.CourseService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		logger:  logger.With().Str("handler", "course").Logger(),
	}
}

// List handles GET /courses requests with pagination.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 10 // default
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid limit parameter", h.logger)
			return
		}
	}

	offset := 0 // default
	if offsetStr != "" {
		var err error
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid offset parameter", h.logger)
			return
		}
	}

	courses, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, courses)
}

// Get handles GET /courses/{course_id} requests. Course IDs may contain
// slashes, so the ID is the wildcard tail of the path.
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "*")
	if courseID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "course ID is required", h.logger)
		return
	}

	course, err := h.service.Get(r.Context(), courseID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, course)
}
