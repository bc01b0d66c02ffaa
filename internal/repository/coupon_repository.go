package repository

import (
	"context"
	"fmt"
	"time"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const couponColumns = `id, code, description, course_id, percentage_discount,
	created_by, created_at, expiration_date, is_active`

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.CourseID, &c.PercentageDiscount,
		&c.CreatedBy, &c.CreatedAt, &c.ExpirationDate, &c.IsActive)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) queryCoupons(ctx context.Context, q DBTX, query string, args ...any) ([]model.Coupon, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query coupons")
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan coupon row")
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

// Create inserts a coupon.
func (r *couponRepository) Create(ctx context.Context, q DBTX, c *model.Coupon) error {
	query := `
		INSERT INTO coupons (code, description, course_id, percentage_discount, created_by, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, is_active
	`

	err := q.QueryRow(ctx, query, c.Code, c.Description, c.CourseID, c.PercentageDiscount,
		c.CreatedBy, c.ExpirationDate).Scan(&c.ID, &c.CreatedAt, &c.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Conflict(model.ErrCodeCouponExists,
				"Coupon with code '%s' already exists for course %s.", c.Code, c.CourseID)
		}
		r.logger.Error().Err(err).Str("code", c.Code).Str("course_id", c.CourseID).Msg("failed to create coupon")
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	r.logger.Info().Int64("coupon_id", c.ID).Str("code", c.Code).Msg("coupon created")

	return nil
}

// GetByID retrieves a coupon by ID.
func (r *couponRepository) GetByID(ctx context.Context, q DBTX, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	c, err := scanCoupon(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("coupon_id", id).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	return c, nil
}

// ListActiveByCode returns active, unexpired coupons with the given code.
func (r *couponRepository) ListActiveByCode(ctx context.Context, q DBTX, code string, now time.Time) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = $1 AND is_active AND (expiration_date IS NULL OR expiration_date > $2)
		ORDER BY id`

	return r.queryCoupons(ctx, q, query, code, now)
}

// List returns all coupons, or the coupons of one course.
func (r *couponRepository) List(ctx context.Context, q DBTX, courseID string) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + `
		FROM coupons
		WHERE $1 = '' OR course_id = $1
		ORDER BY created_at DESC, id DESC`

	return r.queryCoupons(ctx, q, query, courseID)
}

// Deactivate soft-deletes a coupon.
func (r *couponRepository) Deactivate(ctx context.Context, q DBTX, id int64) error {
	tag, err := q.Exec(ctx, `UPDATE coupons SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("coupon_id", id).Msg("failed to deactivate coupon")
		return fmt.Errorf("failed to deactivate coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound(model.ErrCodeCouponNotFound, "coupon with id (%d) DoesNotExist", id)
	}

	r.logger.Info().Int64("coupon_id", id).Msg("coupon deactivated")

	return nil
}

// UpsertCoupons inserts coupons whose course exists and whose code is not
// already active for that course.
func (r *couponRepository) UpsertCoupons(ctx context.Context, q DBTX, coupons []model.Coupon) (int64, error) {
	if len(coupons) == 0 {
		return 0, nil
	}

	codes := make([]string, len(coupons))
	courses := make([]string, len(coupons))
	percents := make([]int32, len(coupons))
	descriptions := make([]string, len(coupons))
	creators := make([]int64, len(coupons))
	for i, c := range coupons {
		codes[i] = c.Code
		courses[i] = c.CourseID
		percents[i] = int32(c.PercentageDiscount)
		descriptions[i] = c.Description
		creators[i] = c.CreatedBy
	}

	query := `
		INSERT INTO coupons (code, course_id, percentage_discount, description, created_by)
		SELECT v.code, v.course_id, v.percentage_discount, v.description, v.created_by
		FROM unnest($1::text[], $2::text[], $3::int[], $4::text[], $5::bigint[])
			AS v(code, course_id, percentage_discount, description, created_by)
		WHERE EXISTS (SELECT 1 FROM courses c WHERE c.id = v.course_id)
		ON CONFLICT (code, course_id) WHERE is_active DO NOTHING
	`

	tag, err := q.Exec(ctx, query, codes, courses, percents, descriptions, creators)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(coupons)).Msg("failed to import coupons")
		return 0, fmt.Errorf("failed to import coupons: %w", err)
	}

	r.logger.Info().
		Int("submitted", len(coupons)).
		Int64("imported", tag.RowsAffected()).
		Msg("coupons imported")

	return tag.RowsAffected(), nil
}

// ListRedemptions returns the coupon redemptions of an order.
func (r *couponRepository) ListRedemptions(ctx context.Context, q DBTX, orderID int64) ([]model.CouponRedemption, error) {
	query := `
		SELECT cr.id, cr.order_id, cr.user_id, cr.coupon_id, c.code, c.course_id, cr.created_at
		FROM coupon_redemptions cr
		JOIN coupons c ON c.id = cr.coupon_id
		WHERE cr.order_id = $1
		ORDER BY cr.id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query coupon redemptions")
		return nil, fmt.Errorf("failed to query coupon redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.CouponRedemption
	for rows.Next() {
		var cr model.CouponRedemption
		if err := rows.Scan(&cr.ID, &cr.OrderID, &cr.UserID, &cr.CouponID, &cr.Code, &cr.CourseID, &cr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coupon redemption: %w", err)
		}
		redemptions = append(redemptions, cr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupon redemptions: %w", err)
	}

	return redemptions, nil
}

// CreateRedemption records a coupon applied to an order.
func (r *couponRepository) CreateRedemption(ctx context.Context, q DBTX, cr *model.CouponRedemption) error {
	query := `
		INSERT INTO coupon_redemptions (order_id, user_id, coupon_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := q.QueryRow(ctx, query, cr.OrderID, cr.UserID, cr.CouponID).Scan(&cr.ID, &cr.CreatedAt); err != nil {
		r.logger.Error().Err(err).Int64("order_id", cr.OrderID).Int64("coupon_id", cr.CouponID).Msg("failed to record coupon redemption")
		return fmt.Errorf("failed to record coupon redemption: %w", err)
	}

	return nil
}

// DeleteRedemptionsForCourse removes the order's redemptions of coupons for a course.
func (r *couponRepository) DeleteRedemptionsForCourse(ctx context.Context, q DBTX, orderID int64, courseID string) (int64, error) {
	query := `
		DELETE FROM coupon_redemptions cr
		USING coupons c
		WHERE cr.coupon_id = c.id AND cr.order_id = $1 AND c.course_id = $2
	`

	tag, err := q.Exec(ctx, query, orderID, courseID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to delete coupon redemptions")
		return 0, fmt.Errorf("failed to delete coupon redemptions: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteRedemptions removes every coupon redemption of an order.
func (r *couponRepository) DeleteRedemptions(ctx context.Context, q DBTX, orderID int64) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM coupon_redemptions WHERE order_id = $1`, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to delete coupon redemptions")
		return 0, fmt.Errorf("failed to delete coupon redemptions: %w", err)
	}

	return tag.RowsAffected(), nil
}
