package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursecart/internal/auth"
	"coursecart/internal/codegen"
	"coursecart/internal/config"
	"coursecart/internal/coupon"
	"coursecart/internal/database"
	"coursecart/internal/events"
	"coursecart/internal/handler"
	"coursecart/internal/payment"
	"coursecart/internal/ratelimit"
	"coursecart/internal/repository"
	"coursecart/internal/router"
	"coursecart/internal/service"
)

// masqueradeTTL is how long a staff member's "view as" choice is kept.
const masqueradeTTL = 8 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting coursecart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// Initialize repositories
	store := service.Store{
		DB:       pool,
		Tx:       repository.NewTransactor(pool, logger),
		Orders:   repository.NewOrderRepository(logger),
		Coupons:  repository.NewCouponRepository(logger),
		Codes:    repository.NewRegistrationCodeRepository(logger),
		Courses:  repository.NewCourseRepository(logger),
		Users:    repository.NewUserRepository(logger),
		Settings: repository.NewSettingsRepository(logger),
	}

	// Initialize coupon loader with S3 and local fallback
	fileLoader := coupon.NewFileLoader(cfg.CouponImport.Dir, logger)
	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		s3Loader, err = coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}
	couponLoader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)
	importer := coupon.NewImporter(couponLoader, logger)

	// Initialize event publisher
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	} else {
		publisher = events.NewNopPublisher()
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	processor := payment.NewHMACProcessor(cfg.Payment.SharedSecret, cfg.Payment.PaymentURL)
	codes := codegen.NewRandom()

	// Initialize services
	cartService := service.NewCartService(store, cfg.Payment.Currency, logger)
	checkoutService := service.NewCheckoutService(store, processor, publisher, codes,
		cfg.Payment.Currency, cfg.Registration.PlatformName, logger)
	redemptionService := service.NewRedemptionService(store, publisher, logger)
	reportService := service.NewReportService(store, logger)
	identities := auth.NewUserInfoVerifier(cfg.ThirdPartyAuth.UserInfoURLs, nil)
	accountService := service.NewAccountService(store, tokens, auth.NewBcryptHasher(0),
		cfg.Registration, cfg.ThirdPartyAuth, identities, logger)
	adminService := service.NewAdminService(store, importer, codes, logger)
	masqueradeService := service.NewMasqueradeService(masqueradeTTL, logger)
	courseService := service.NewCourseService(store, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Course:     handler.NewCourseHandler(courseService, logger),
		Cart:       handler.NewCartHandler(cartService, logger),
		Checkout:   handler.NewCheckoutHandler(checkoutService, processor, logger),
		Redemption: handler.NewRedemptionHandler(redemptionService, logger),
		Report:     handler.NewReportHandler(reportService, logger),
		Account:    handler.NewAccountHandler(accountService, cfg.Auth.SecureCookie, logger),
		Admin:      handler.NewAdminHandler(adminService, checkoutService, logger),
		Masquerade: handler.NewMasqueradeHandler(masqueradeService, logger),
	}

	limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Attempts, cfg.RateLimit.Window)
	trustedProxies, err := cfg.RateLimit.TrustedProxyPrefixes()
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	// Initialize router
	mux := router.New(handlers, tokens, limiter, trustedProxies, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
