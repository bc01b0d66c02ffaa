package handler

import (
	"bytes"
	"net/http"

	"coursecart/internal/model"
	"coursecart/internal/report"
	"coursecart/internal/service"

	"github.com/rs/zerolog"
)

// ReportHandler serves the finance CSV reports.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("handler", "report").Logger(),
	}
}

// PaymentCSVReport handles /shoppingcart/payment_csv_report. GET lists the
// available reports, POST renders one; any other method is a bad request.
func (h *ReportHandler) PaymentCSVReport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	if !p.HasRole(model.RoleFinanceAdmin) {
		writeServiceError(w, r, model.ErrPermissionDenied, h.logger)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"reports": report.Available})
	case http.MethodPost:
		h.generate(w, r)
	default:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMethodNotAllowed, "Invalid request method.", h.logger)
	}
}

func (h *ReportHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req service.ReportRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	// rendered into a buffer so that a failure can still become an error response
	var buf bytes.Buffer
	if err := h.service.Generate(r.Context(), &buf, req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.Kind+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error().Err(err).Str("report", req.Kind).Msg("failed to write report")
	}
}
