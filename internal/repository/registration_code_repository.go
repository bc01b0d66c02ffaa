package repository

import (
	"context"
	"fmt"

	"coursecart/internal/model"

	"github.com/rs/zerolog"
)

// registrationCodeRepository implements RegistrationCodeRepository using PostgreSQL.
type registrationCodeRepository struct {
	logger zerolog.Logger
}

// NewRegistrationCodeRepository creates a new PostgreSQL-backed registration code repository.
func NewRegistrationCodeRepository(logger zerolog.Logger) RegistrationCodeRepository {
	return &registrationCodeRepository{
		logger: logger.With().Str("repository", "registration_code").Logger(),
	}
}

// GetByCode retrieves a code with its redemption state.
func (r *registrationCodeRepository) GetByCode(ctx context.Context, q DBTX, code string) (*model.RegistrationCode, error) {
	query := `
		SELECT rc.id, rc.code, rc.course_id, rc.mode_slug, rc.created_by, rc.order_id, rc.created_at,
			EXISTS (SELECT 1 FROM registration_code_redemptions r WHERE r.registration_code_id = rc.id)
		FROM registration_codes rc
		WHERE rc.code = $1
	`

	var rc model.RegistrationCode
	err := q.QueryRow(ctx, query, code).Scan(
		&rc.ID, &rc.Code, &rc.CourseID, &rc.ModeSlug, &rc.CreatedBy, &rc.OrderID, &rc.CreatedAt, &rc.Redeemed,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query registration code")
		return nil, fmt.Errorf("failed to query registration code: %w", err)
	}

	return &rc, nil
}

// Create inserts a code. It reports false when the code string is taken.
func (r *registrationCodeRepository) Create(ctx context.Context, q DBTX, rc *model.RegistrationCode) (bool, error) {
	query := `
		INSERT INTO registration_codes (code, course_id, mode_slug, created_by, order_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query, rc.Code, rc.CourseID, rc.ModeSlug, rc.CreatedBy, rc.OrderID).
		Scan(&rc.ID, &rc.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			r.logger.Warn().Str("code", rc.Code).Msg("registration code collision")
			return false, nil
		}
		r.logger.Error().Err(err).Str("course_id", rc.CourseID).Msg("failed to create registration code")
		return false, fmt.Errorf("failed to create registration code: %w", err)
	}

	return true, nil
}

// ListByOrder returns the codes bought through an order.
func (r *registrationCodeRepository) ListByOrder(ctx context.Context, q DBTX, orderID int64) ([]model.RegistrationCode, error) {
	query := `
		SELECT rc.id, rc.code, rc.course_id, rc.mode_slug, rc.created_by, rc.order_id, rc.created_at,
			EXISTS (SELECT 1 FROM registration_code_redemptions r WHERE r.registration_code_id = rc.id)
		FROM registration_codes rc
		WHERE rc.order_id = $1
		ORDER BY rc.id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query registration codes")
		return nil, fmt.Errorf("failed to query registration codes: %w", err)
	}
	defer rows.Close()

	var codes []model.RegistrationCode
	for rows.Next() {
		var rc model.RegistrationCode
		if err := rows.Scan(&rc.ID, &rc.Code, &rc.CourseID, &rc.ModeSlug, &rc.CreatedBy, &rc.OrderID, &rc.CreatedAt, &rc.Redeemed); err != nil {
			return nil, fmt.Errorf("failed to scan registration code: %w", err)
		}
		codes = append(codes, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration codes: %w", err)
	}

	return codes, nil
}

// CreateRedemption records the single use of a code. The loser of a
// concurrent redemption gets ErrRegistrationCodeUsed.
func (r *registrationCodeRepository) CreateRedemption(ctx context.Context, q DBTX, red *model.RegistrationCodeRedemption) error {
	query := `
		INSERT INTO registration_code_redemptions (registration_code_id, order_id, item_id, redeemed_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (registration_code_id) DO NOTHING
		RETURNING id, redeemed_at
	`

	err := q.QueryRow(ctx, query, red.RegistrationCodeID, red.OrderID, red.ItemID, red.RedeemedBy).
		Scan(&red.ID, &red.RedeemedAt)
	if err != nil {
		if isNoRows(err) {
			return model.ErrRegistrationCodeUsed
		}
		r.logger.Error().Err(err).Int64("registration_code_id", red.RegistrationCodeID).Msg("failed to record code redemption")
		return fmt.Errorf("failed to record code redemption: %w", err)
	}

	r.logger.Debug().Int64("registration_code_id", red.RegistrationCodeID).Int64("user_id", red.RedeemedBy).Msg("registration code redeemed")

	return nil
}

// RedemptionForItem returns the redemption attached to an item, or nil.
func (r *registrationCodeRepository) RedemptionForItem(ctx context.Context, q DBTX, itemID int64) (*model.RegistrationCodeRedemption, error) {
	query := `
		SELECT id, registration_code_id, order_id, item_id, redeemed_by, redeemed_at
		FROM registration_code_redemptions
		WHERE item_id = $1
		LIMIT 1
	`

	var red model.RegistrationCodeRedemption
	err := q.QueryRow(ctx, query, itemID).Scan(
		&red.ID, &red.RegistrationCodeID, &red.OrderID, &red.ItemID, &red.RedeemedBy, &red.RedeemedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query code redemption: %w", err)
	}

	return &red, nil
}

// DeleteRedemptionsForItem removes redemptions attached to an item.
func (r *registrationCodeRepository) DeleteRedemptionsForItem(ctx context.Context, q DBTX, itemID int64) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM registration_code_redemptions WHERE item_id = $1`, itemID)
	if err != nil {
		r.logger.Error().Err(err).Int64("item_id", itemID).Msg("failed to delete code redemptions")
		return 0, fmt.Errorf("failed to delete code redemptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteRedemptionsForOrder removes redemptions attached to an order.
func (r *registrationCodeRepository) DeleteRedemptionsForOrder(ctx context.Context, q DBTX, orderID int64) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM registration_code_redemptions WHERE order_id = $1`, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to delete code redemptions")
		return 0, fmt.Errorf("failed to delete code redemptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
