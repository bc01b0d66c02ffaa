//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"coursecart/internal/config"
	"coursecart/internal/database"
	"coursecart/internal/model"
	"coursecart/internal/repository"

	"github.com/shopspring/decimal"
)

// Creates the schema and a few sample courses for local development.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to create schema: %v\n", err)
		os.Exit(1)
	}

	opens := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	courses := []*model.Course{
		{
			ID:              "course-v1:edX+DemoX+2026",
			Org:             "edX",
			DisplayName:     "Demonstration Course",
			EnrollmentStart: &opens,
			Modes: []model.CourseMode{
				{Slug: model.ModeHonor, DisplayName: "Honor Code Certificate", MinPrice: decimal.NewFromInt(40), Currency: cfg.Payment.Currency},
				{Slug: model.ModeVerified, DisplayName: "Verified Certificate", MinPrice: decimal.NewFromInt(90), Currency: cfg.Payment.Currency},
			},
		},
		{
			ID:          "MITx/6.002x/2026",
			Org:         "MITx",
			DisplayName: "Circuits and Electronics",
			Modes: []model.CourseMode{
				{Slug: model.ModeVerified, DisplayName: "Verified Certificate", MinPrice: decimal.NewFromInt(100), Currency: cfg.Payment.Currency},
			},
		},
	}

	repo := repository.NewCourseRepository(logger)
	for _, c := range courses {
		if err := repo.Save(ctx, pool, c); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to save course %s: %v\n", c.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s (%d modes)\n", c.ID, len(c.Modes))
	}
}
