package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coursecart/internal/database"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"coursecart/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Seeded courses.
const (
	DemoCourseID    = "course-v1:edX+DemoX+2026"
	CircuitCourseID = "MITx/6.002x/2026"
	ClosedCourseID  = "course-v1:edX+Closed+2020"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the application schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("coursecart"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.EnsureSchema(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// NewStore wires the repositories against the test pool.
func NewStore(pool *pgxpool.Pool) service.Store {
	logger := zerolog.Nop()
	return service.Store{
		DB:       pool,
		Tx:       repository.NewTransactor(pool, logger),
		Orders:   repository.NewOrderRepository(logger),
		Coupons:  repository.NewCouponRepository(logger),
		Codes:    repository.NewRegistrationCodeRepository(logger),
		Courses:  repository.NewCourseRepository(logger),
		Users:    repository.NewUserRepository(logger),
		Settings: repository.NewSettingsRepository(logger),
	}
}

// SeedCourses inserts a $40 honor course, a $100 verified course and a
// course whose enrollment has closed.
func SeedCourses(t *testing.T, store service.Store) {
	t.Helper()

	ctx := context.Background()
	closed := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)

	courses := []*model.Course{
		{
			ID:          DemoCourseID,
			Org:         "edX",
			DisplayName: "Demo Course",
			Modes: []model.CourseMode{
				{Slug: model.ModeHonor, DisplayName: "Honor", MinPrice: decimal.NewFromInt(40), Currency: "usd"},
				{Slug: model.ModeVerified, DisplayName: "Verified", MinPrice: decimal.NewFromInt(90), Currency: "usd"},
			},
		},
		{
			ID:          CircuitCourseID,
			Org:         "MITx",
			DisplayName: "Circuits and Electronics",
			Modes: []model.CourseMode{
				{Slug: model.ModeVerified, DisplayName: "Verified", MinPrice: decimal.NewFromInt(100), Currency: "usd"},
			},
		},
		{
			ID:            ClosedCourseID,
			Org:           "edX",
			DisplayName:   "Closed Course",
			EnrollmentEnd: &closed,
			Modes: []model.CourseMode{
				{Slug: model.ModeHonor, DisplayName: "Honor", MinPrice: decimal.NewFromInt(10), Currency: "usd"},
			},
		},
	}

	for _, c := range courses {
		if err := store.Courses.Save(ctx, store.DB, c); err != nil {
			t.Fatalf("failed to seed course %s: %v", c.ID, err)
		}
	}
}

// SeedUser inserts an active user with the given roles.
func SeedUser(t *testing.T, store service.Store, username string, roles ...string) *model.User {
	t.Helper()

	if roles == nil {
		roles = []string{}
	}
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		PasswordHash: "unused",
		Roles:        roles,
		IsActive:     true,
	}
	if err := store.Users.Create(context.Background(), store.DB, user); err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

// CleanupDB removes orders, codes, coupons, enrollments and users, keeping
// the seeded courses.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"registration_code_redemptions",
		"registration_codes",
		"coupon_redemptions",
		"coupons",
		"order_items",
		"orders",
		"enrollments",
		"donation_configuration",
		"user_org_tags",
		"user_social_auth",
		"users",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
