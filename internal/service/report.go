package service

import (
	"context"
	"io"

	"coursecart/internal/report"

	"github.com/rs/zerolog"
)

// ReportRequest is a submitted report form.
type ReportRequest struct {
	Kind        string `json:"requested_report"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartLetter string `json:"start_letter"`
	EndLetter   string `json:"end_letter"`
}

// reportService implements ReportService.
type reportService struct {
	store  Store
	logger zerolog.Logger
}

// NewReportService creates a new report service.
func NewReportService(store Store, logger zerolog.Logger) ReportService {
	return &reportService{
		store:  store,
		logger: logger.With().Str("service", "report").Logger(),
	}
}

func (s *reportService) Generate(ctx context.Context, w io.Writer, req ReportRequest) error {
	window, err := report.ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return err
	}

	kind := report.Kind(req.Kind)
	if _, err := report.Header(kind); err != nil {
		return err
	}

	items, err := s.store.Orders.ReportItems(ctx, s.store.DB, window.Start, window.End)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("report", req.Kind).
		Str("start", req.StartDate).
		Str("end", req.EndDate).
		Int("items", len(items)).
		Msg("generating report")

	return report.Write(w, report.Params{
		Kind:        kind,
		Window:      window,
		StartLetter: req.StartLetter,
		EndLetter:   req.EndLetter,
	}, items)
}
