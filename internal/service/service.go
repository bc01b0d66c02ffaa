package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"coursecart/internal/events"
	"coursecart/internal/form"
	"coursecart/internal/model"
	"coursecart/internal/repository"

	"github.com/rs/zerolog"
)

// CartService defines operations on a user's shopping cart.
type CartService interface {
	// Cart returns the user's current cart, creating an empty one when needed.
	Cart(ctx context.Context, userID int64) (*model.CartView, error)

	// AddCourse adds a paid registration for a course to the cart.
	AddCourse(ctx context.Context, userID int64, courseID string) (*model.CartView, error)

	// UpdateQuantity changes the number of seats bought for a cart item.
	UpdateQuantity(ctx context.Context, userID, itemID int64, qty int) (*model.CartView, error)

	// RemoveItem removes an item and reverses its discounts.
	RemoveItem(ctx context.Context, userID, itemID int64) (*model.CartView, error)

	// Clear empties the cart and reverses every discount.
	Clear(ctx context.Context, userID int64) (*model.CartView, error)

	// ResetRedemptions removes coupon redemptions and restores list prices.
	ResetRedemptions(ctx context.Context, userID int64) (*model.CartView, error)

	// UseCode applies a registration code or a coupon to the cart.
	UseCode(ctx context.Context, userID int64, code string) (*model.CodeResult, error)
}

// CheckoutService defines payment, fulfilment and receipt operations.
type CheckoutService interface {
	// Checkout moves the cart to paying and returns the processor request.
	Checkout(ctx context.Context, userID int64, billing model.BillingInfo) (*model.PaymentInfo, error)

	// CompletePayment verifies a processor callback and fulfils the order.
	CompletePayment(ctx context.Context, params map[string]string) (*model.Order, error)

	// Donate replaces the cart with a single donation and checks it out.
	Donate(ctx context.Context, userID int64, amount, courseID string) (*model.PaymentInfo, error)

	// DonationsEnabled reports whether donations are currently accepted.
	DonationsEnabled(ctx context.Context) (bool, error)

	// Receipt returns the receipt of a purchased order owned by the user.
	Receipt(ctx context.Context, userID, orderID int64) (*model.Receipt, error)

	// Refund refunds a purchased item and revokes what it granted.
	Refund(ctx context.Context, itemID int64) (*model.OrderItem, error)
}

// RedemptionService defines the registration code redemption page.
type RedemptionService interface {
	// Describe returns what a code grants to the user.
	Describe(ctx context.Context, userID int64, code string) (*model.RedeemInfo, error)

	// Redeem enrols the user with a code.
	Redeem(ctx context.Context, userID int64, code string) (*model.RedeemInfo, error)
}

// ReportService renders finance reports.
type ReportService interface {
	// Generate writes the requested CSV report to w.
	Generate(ctx context.Context, w io.Writer, req ReportRequest) error
}

// AccountService defines login, registration and preference operations.
type AccountService interface {
	LoginForm() *form.Description
	PasswordResetForm() *form.Description

	// RegistrationForm describes the registration form, pre-filled from a
	// third-party-auth pipeline token when one is supplied.
	RegistrationForm(ctx context.Context, pipelineToken string) (*form.Description, error)

	// Login checks credentials and issues a session token.
	Login(ctx context.Context, login, password string) (*model.Session, error)

	// Register creates an account. Validation failures are *model.FieldErrors.
	Register(ctx context.Context, req *model.RegistrationRequest) (*model.User, error)

	// ExchangeAccessToken trades a third-party access token for a session.
	// Request failures are *model.OAuthError.
	ExchangeAccessToken(ctx context.Context, backend, accessToken, clientID string) (*model.TokenExchange, error)

	// SetEmailOptIn stores the user's e-mail preference for a course's org.
	SetEmailOptIn(ctx context.Context, userID int64, courseID, optIn string) error
}

// AdminService defines staff operations on coupons, codes and settings.
type AdminService interface {
	CreateCoupon(ctx context.Context, userID int64, req *CouponRequest) (*model.Coupon, error)
	ListCoupons(ctx context.Context, courseID string) ([]model.Coupon, error)
	DeactivateCoupon(ctx context.Context, id int64) error

	// ImportCoupons loads gzipped coupon files and inserts their coupons.
	ImportCoupons(ctx context.Context, userID int64, files []string) (*ImportSummary, error)

	DonationConfiguration(ctx context.Context) (*model.DonationConfiguration, error)
	SetDonationsEnabled(ctx context.Context, userID int64, enabled bool) (*model.DonationConfiguration, error)

	// MintCodes creates count registration codes for a course mode.
	MintCodes(ctx context.Context, userID int64, courseID, mode string, count int) ([]model.RegistrationCode, error)
}

// MasqueradeService tracks how staff view a course.
type MasqueradeService interface {
	View(userID int64, courseID string) (*model.MasqueradeView, error)
	SetRole(userID int64, courseID, role string) (*model.MasqueradeView, error)
}

// CourseService defines read operations on the course catalog.
type CourseService interface {
	List(ctx context.Context, limit, offset int) ([]model.Course, error)
	Get(ctx context.Context, id string) (*model.Course, error)
}

// Store bundles the repositories and the database handles they run on.
type Store struct {
	DB       repository.DBTX
	Tx       repository.Transactor
	Orders   repository.OrderRepository
	Coupons  repository.CouponRepository
	Codes    repository.RegistrationCodeRepository
	Courses  repository.CourseRepository
	Users    repository.UserRepository
	Settings repository.SettingsRepository
}

// withTx runs fn in a transaction, committing when it returns nil.
// publishTimeout bounds how long a committed change waits on the broker.
const publishTimeout = 5 * time.Second

// publishCommitted emits events for a change that has already committed. The
// request context may be cancelled by then, so only its values are kept.
func publishCommitted(ctx context.Context, publisher events.Publisher, evts ...events.Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return publisher.Publish(ctx, evts...)
}

func withTx(ctx context.Context, store Store, logger zerolog.Logger, fn func(tx repository.DBTX) error) (err error) {
	tx, err := store.Tx.BeginTx(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return err
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
