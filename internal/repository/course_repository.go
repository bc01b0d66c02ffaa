package repository

import (
	"context"
	"fmt"

	"coursecart/internal/model"

	"github.com/rs/zerolog"
)

// courseRepository implements the CourseRepository interface using PostgreSQL.
type courseRepository struct {
	logger zerolog.Logger
}

// NewCourseRepository creates a new PostgreSQL-backed course repository.
func NewCourseRepository(logger zerolog.Logger) CourseRepository {
	return &courseRepository{
		logger: logger.With().Str("repository", "course").Logger(),
	}
}

// GetAll retrieves courses with their modes, with pagination support.
func (r *courseRepository) GetAll(ctx context.Context, q DBTX, limit, offset int) ([]model.Course, error) {
	query := `
		SELECT id, org, display_name, enrollment_start, enrollment_end, created_at
		FROM courses
		ORDER BY display_name, id
		LIMIT $1 OFFSET $2
	`

	rows, err := q.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query courses")
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Org, &c.DisplayName, &c.EnrollmentStart, &c.EnrollmentEnd, &c.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan course row")
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating course rows")
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}

	if len(courses) == 0 {
		return courses, nil
	}

	ids := make([]string, len(courses))
	for i := range courses {
		ids[i] = courses[i].ID
	}

	modes, err := r.modes(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i].Modes = modes[courses[i].ID]
	}

	r.logger.Debug().Int("count", len(courses)).Msg("retrieved courses")

	return courses, nil
}

// GetByID retrieves a course with its modes.
func (r *courseRepository) GetByID(ctx context.Context, q DBTX, id string) (*model.Course, error) {
	query := `
		SELECT id, org, display_name, enrollment_start, enrollment_end, created_at
		FROM courses
		WHERE id = $1
	`

	var c model.Course
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Org, &c.DisplayName, &c.EnrollmentStart, &c.EnrollmentEnd, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("course_id", id).Msg("course not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("course_id", id).Msg("failed to query course")
		return nil, fmt.Errorf("failed to query course: %w", err)
	}

	modes, err := r.modes(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	c.Modes = modes[id]

	return &c, nil
}

func (r *courseRepository) modes(ctx context.Context, q DBTX, courseIDs []string) (map[string][]model.CourseMode, error) {
	query := `
		SELECT course_id, mode_slug, mode_display_name, min_price, currency, expiration_datetime
		FROM course_modes
		WHERE course_id = ANY($1)
		ORDER BY course_id, min_price, mode_slug
	`

	rows, err := q.Query(ctx, query, courseIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(courseIDs)).Msg("failed to query course modes")
		return nil, fmt.Errorf("failed to query course modes: %w", err)
	}
	defer rows.Close()

	modes := make(map[string][]model.CourseMode, len(courseIDs))
	for rows.Next() {
		var m model.CourseMode
		if err := rows.Scan(&m.CourseID, &m.Slug, &m.DisplayName, &m.MinPrice, &m.Currency, &m.ExpirationDate); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan course mode row")
			return nil, fmt.Errorf("failed to scan course mode: %w", err)
		}
		modes[m.CourseID] = append(modes[m.CourseID], m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course modes: %w", err)
	}

	return modes, nil
}

// Save inserts or updates a course and its modes.
func (r *courseRepository) Save(ctx context.Context, q DBTX, c *model.Course) error {
	query := `
		INSERT INTO courses (id, org, display_name, enrollment_start, enrollment_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			org = EXCLUDED.org,
			display_name = EXCLUDED.display_name,
			enrollment_start = EXCLUDED.enrollment_start,
			enrollment_end = EXCLUDED.enrollment_end
	`

	if _, err := q.Exec(ctx, query, c.ID, c.Org, c.DisplayName, c.EnrollmentStart, c.EnrollmentEnd); err != nil {
		r.logger.Error().Err(err).Str("course_id", c.ID).Msg("failed to save course")
		return fmt.Errorf("failed to save course: %w", err)
	}

	modeQuery := `
		INSERT INTO course_modes (course_id, mode_slug, mode_display_name, min_price, currency, expiration_datetime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id, mode_slug) DO UPDATE SET
			mode_display_name = EXCLUDED.mode_display_name,
			min_price = EXCLUDED.min_price,
			currency = EXCLUDED.currency,
			expiration_datetime = EXCLUDED.expiration_datetime
	`

	for _, m := range c.Modes {
		if _, err := q.Exec(ctx, modeQuery, c.ID, m.Slug, m.DisplayName, m.MinPrice, m.Currency, m.ExpirationDate); err != nil {
			r.logger.Error().Err(err).Str("course_id", c.ID).Str("mode", m.Slug).Msg("failed to save course mode")
			return fmt.Errorf("failed to save course mode: %w", err)
		}
	}

	return nil
}

// IsEnrolled reports whether the user holds an active enrollment.
func (r *courseRepository) IsEnrolled(ctx context.Context, q DBTX, userID int64, courseID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 AND is_active)`

	var enrolled bool
	if err := q.QueryRow(ctx, query, userID, courseID).Scan(&enrolled); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Str("course_id", courseID).Msg("failed to check enrollment")
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return enrolled, nil
}

// Enroll activates an enrollment in the given mode.
func (r *courseRepository) Enroll(ctx context.Context, q DBTX, e *model.Enrollment) error {
	query := `
		INSERT INTO enrollments (user_id, course_id, mode, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, course_id) DO UPDATE SET mode = EXCLUDED.mode, is_active = TRUE
	`

	if _, err := q.Exec(ctx, query, e.UserID, e.CourseID, e.Mode); err != nil {
		r.logger.Error().Err(err).Int64("user_id", e.UserID).Str("course_id", e.CourseID).Msg("failed to enroll user")
		return fmt.Errorf("failed to enroll user: %w", err)
	}
	e.IsActive = true

	r.logger.Info().Int64("user_id", e.UserID).Str("course_id", e.CourseID).Str("mode", e.Mode).Msg("user enrolled")

	return nil
}

// Unenroll deactivates an enrollment.
func (r *courseRepository) Unenroll(ctx context.Context, q DBTX, userID int64, courseID string) error {
	query := `UPDATE enrollments SET is_active = FALSE WHERE user_id = $1 AND course_id = $2`

	if _, err := q.Exec(ctx, query, userID, courseID); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Str("course_id", courseID).Msg("failed to unenroll user")
		return fmt.Errorf("failed to unenroll user: %w", err)
	}

	return nil
}
