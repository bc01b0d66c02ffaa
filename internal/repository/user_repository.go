package repository

import (
	"context"
	"fmt"
	"strings"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const userColumns = `id, username, email, name, password_hash, roles, is_active,
	city, country, gender, year_of_birth, level_of_education, mailing_address, goals, created_at`

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(logger zerolog.Logger) UserRepository {
	return &userRepository{
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	p := &u.Profile
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.IsActive,
		&p.City, &p.Country, &p.Gender, &p.YearOfBirth, &p.LevelOfEducation, &p.MailingAddress, &p.Goals, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and fills in its ID.
func (r *userRepository) Create(ctx context.Context, q DBTX, u *model.User) error {
	query := `
		INSERT INTO users (username, email, name, password_hash, roles, is_active,
			city, country, gender, year_of_birth, level_of_education, mailing_address, goals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	p := u.Profile
	err := q.QueryRow(ctx, query, u.Username, u.Email, u.Name, u.PasswordHash, roles, u.IsActive,
		p.City, p.Country, p.Gender, p.YearOfBirth, p.LevelOfEducation, p.MailingAddress, p.Goals,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			switch violatedConstraint(err) {
			case "users_email_key":
				return fmt.Errorf("user %s: %w", u.Username, ErrDuplicateEmail)
			case "users_username_key":
				return fmt.Errorf("user %s: %w", u.Username, ErrDuplicateUsername)
			}
			return fmt.Errorf("user %s: %w", u.Username, ErrDuplicate)
		}
		r.logger.Error().Err(err).Str("username", u.Username).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user created")

	return nil
}

// GetByID retrieves a user.
func (r *userRepository) GetByID(ctx context.Context, q DBTX, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("user_id", id).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return u, nil
}

// GetByLogin retrieves a user by username or e-mail.
func (r *userRepository) GetByLogin(ctx context.Context, q DBTX, login string) (*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR lower(email) = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1`

	u, err := scanUser(q.QueryRow(ctx, query, login))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("login", login).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return u, nil
}

// GetBySocialAuth retrieves the user linked to a third-party account.
func (r *userRepository) GetBySocialAuth(ctx context.Context, q DBTX, provider, uid string) (*model.User, error) {
	query := `SELECT ` + prefixed("u.", userColumns) + `
		FROM users u
		JOIN user_social_auth s ON s.user_id = u.id
		WHERE s.provider = $1 AND s.uid = $2`

	u, err := scanUser(q.QueryRow(ctx, query, provider, uid))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("provider", provider).Msg("failed to query linked user")
		return nil, fmt.Errorf("failed to query linked user: %w", err)
	}

	return u, nil
}

// LinkSocialAuth associates a third-party account with a user.
func (r *userRepository) LinkSocialAuth(ctx context.Context, q DBTX, userID int64, provider, uid string) error {
	query := `INSERT INTO user_social_auth (provider, uid, user_id) VALUES ($1, $2, $3)`

	if _, err := q.Exec(ctx, query, provider, uid, userID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s account %s: %w", provider, uid, ErrDuplicate)
		}
		r.logger.Error().Err(err).Int64("user_id", userID).Str("provider", provider).Msg("failed to link account")
		return fmt.Errorf("failed to link account: %w", err)
	}

	r.logger.Info().Int64("user_id", userID).Str("provider", provider).Msg("third-party account linked")

	return nil
}

// prefixed qualifies each column of a comma-separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

// Conflicts reports whether the e-mail or username is already taken.
func (r *userRepository) Conflicts(ctx context.Context, q DBTX, email, username string) (bool, bool, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1)),
			EXISTS (SELECT 1 FROM users WHERE username = $2)
	`

	var emailTaken, usernameTaken bool
	if err := q.QueryRow(ctx, query, email, username).Scan(&emailTaken, &usernameTaken); err != nil {
		r.logger.Error().Err(err).Msg("failed to check account conflicts")
		return false, false, fmt.Errorf("failed to check account conflicts: %w", err)
	}

	return emailTaken, usernameTaken, nil
}

// SetOrgTag stores a per-org preference of a user.
func (r *userRepository) SetOrgTag(ctx context.Context, q DBTX, userID int64, org, key, value string) error {
	query := `
		INSERT INTO user_org_tags (user_id, org, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, org, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query, userID, org, key, value); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Str("org", org).Str("key", key).Msg("failed to set org tag")
		return fmt.Errorf("failed to set org tag: %w", err)
	}

	return nil
}

// GetOrgTag returns a per-org preference of a user.
func (r *userRepository) GetOrgTag(ctx context.Context, q DBTX, userID int64, org, key string) (string, bool, error) {
	query := `SELECT value FROM user_org_tags WHERE user_id = $1 AND org = $2 AND key = $3`

	var value string
	if err := q.QueryRow(ctx, query, userID, org, key).Scan(&value); err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query org tag: %w", err)
	}

	return value, true, nil
}
