package repository

import (
	"context"
	"fmt"

	"coursecart/internal/model"

	"github.com/rs/zerolog"
)

type settingsRepository struct {
	logger zerolog.Logger
}

// NewSettingsRepository creates a new PostgreSQL-backed settings repository.
func NewSettingsRepository(logger zerolog.Logger) SettingsRepository {
	return &settingsRepository{
		logger: logger.With().Str("repository", "settings").Logger(),
	}
}

func (r *settingsRepository) DonationConfiguration(ctx context.Context, q DBTX) (*model.DonationConfiguration, error) {
	query := `
		SELECT id, enabled, changed_by, change_date
		FROM donation_configuration
		ORDER BY change_date DESC, id DESC
		LIMIT 1
	`

	var cfg model.DonationConfiguration
	err := q.QueryRow(ctx, query).Scan(&cfg.ID, &cfg.Enabled, &cfg.ChangedBy, &cfg.ChangeDate)
	if err != nil {
		if isNoRows(err) {
			return &model.DonationConfiguration{Enabled: false}, nil
		}
		r.logger.Error().Err(err).Msg("failed to query donation configuration")
		return nil, fmt.Errorf("failed to query donation configuration: %w", err)
	}

	return &cfg, nil
}

func (r *settingsRepository) SaveDonationConfiguration(ctx context.Context, q DBTX, enabled bool, changedBy int64) (*model.DonationConfiguration, error) {
	query := `
		INSERT INTO donation_configuration (enabled, changed_by)
		VALUES ($1, $2)
		RETURNING id, enabled, changed_by, change_date
	`

	var cfg model.DonationConfiguration
	err := q.QueryRow(ctx, query, enabled, changedBy).Scan(&cfg.ID, &cfg.Enabled, &cfg.ChangedBy, &cfg.ChangeDate)
	if err != nil {
		r.logger.Error().Err(err).Bool("enabled", enabled).Msg("failed to save donation configuration")
		return nil, fmt.Errorf("failed to save donation configuration: %w", err)
	}

	r.logger.Info().Bool("enabled", enabled).Int64("changed_by", changedBy).Msg("donation configuration changed")

	return &cfg, nil
}
