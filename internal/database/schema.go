package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Execer runs schema statements.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schemaStatements are applied in order; each one is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL CONSTRAINT users_username_key UNIQUE,
		email TEXT NOT NULL CONSTRAINT users_email_key UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		roles TEXT[] NOT NULL DEFAULT '{}',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		city TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		year_of_birth INTEGER,
		level_of_education TEXT NOT NULL DEFAULT '',
		mailing_address TEXT NOT NULL DEFAULT '',
		goals TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_org_tags (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		org TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, org, key)
	)`,
	`CREATE TABLE IF NOT EXISTS user_social_auth (
		provider TEXT NOT NULL,
		uid TEXT NOT NULL,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (provider, uid)
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		org TEXT NOT NULL,
		display_name TEXT NOT NULL,
		enrollment_start TIMESTAMPTZ,
		enrollment_end TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS course_modes (
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		mode_slug TEXT NOT NULL,
		mode_display_name TEXT NOT NULL DEFAULT '',
		min_price NUMERIC(30, 2) NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'usd',
		expiration_datetime TIMESTAMPTZ,
		PRIMARY KEY (course_id, mode_slug)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		mode TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, course_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		status TEXT NOT NULL DEFAULT 'cart',
		order_type TEXT NOT NULL DEFAULT 'personal',
		currency TEXT NOT NULL DEFAULT 'usd',
		bill_to_first TEXT NOT NULL DEFAULT '',
		bill_to_last TEXT NOT NULL DEFAULT '',
		bill_to_street1 TEXT NOT NULL DEFAULT '',
		bill_to_street2 TEXT NOT NULL DEFAULT '',
		bill_to_city TEXT NOT NULL DEFAULT '',
		bill_to_state TEXT NOT NULL DEFAULT '',
		bill_to_postalcode TEXT NOT NULL DEFAULT '',
		bill_to_country TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		company_contact_name TEXT NOT NULL DEFAULT '',
		company_contact_email TEXT NOT NULL DEFAULT '',
		recipient_name TEXT NOT NULL DEFAULT '',
		recipient_email TEXT NOT NULL DEFAULT '',
		customer_reference_number TEXT NOT NULL DEFAULT '',
		purchase_time TIMESTAMPTZ,
		refunded_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_one_cart ON orders(user_id) WHERE status = 'cart'`,
	`CREATE INDEX IF NOT EXISTS idx_orders_purchase_time ON orders(purchase_time)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL,
		course_id TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'cart',
		qty INTEGER NOT NULL DEFAULT 1 CHECK (qty BETWEEN 1 AND 1000),
		unit_cost NUMERIC(30, 2) NOT NULL DEFAULT 0,
		list_price NUMERIC(30, 2),
		line_desc TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'usd',
		fulfilled_time TIMESTAMPTZ,
		refund_requested_time TIMESTAMPTZ,
		service_fee NUMERIC(30, 2) NOT NULL DEFAULT 0,
		report_comments TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL REFERENCES courses(id),
		percentage_discount INTEGER NOT NULL CHECK (percentage_discount BETWEEN 0 AND 100),
		created_by BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expiration_date TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_active_code ON coupons(code, course_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS coupon_redemptions (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id),
		coupon_id BIGINT NOT NULL REFERENCES coupons(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS registration_codes (
		id BIGSERIAL PRIMARY KEY,
		code TEXT UNIQUE NOT NULL,
		course_id TEXT NOT NULL REFERENCES courses(id),
		mode_slug TEXT NOT NULL,
		created_by BIGINT NOT NULL DEFAULT 0,
		order_id BIGINT REFERENCES orders(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS registration_code_redemptions (
		id BIGSERIAL PRIMARY KEY,
		registration_code_id BIGINT UNIQUE NOT NULL REFERENCES registration_codes(id),
		order_id BIGINT REFERENCES orders(id) ON DELETE CASCADE,
		item_id BIGINT,
		redeemed_by BIGINT NOT NULL REFERENCES users(id),
		redeemed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS donation_configuration (
		id BIGSERIAL PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		changed_by BIGINT,
		change_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db Execer, logger zerolog.Logger) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			logger.Error().Err(err).Int("statement", i).Msg("failed to apply schema statement")
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	logger.Info().Int("statements", len(schemaStatements)).Msg("database schema ensured")

	return nil
}
