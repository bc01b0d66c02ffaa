package repository

import (
	"context"
	"time"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so every repository method
// can run either standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor starts database transactions.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// OrderRepository defines the interface for order and order item data access.
type OrderRepository interface {
	// GetOrCreateCart returns the user's cart, creating it when missing, and
	// locks it for the rest of the transaction.
	GetOrCreateCart(ctx context.Context, q DBTX, userID int64, currency string) (*model.Order, error)

	// GetByID retrieves an order by its ID. It returns nil when none exists.
	GetByID(ctx context.Context, q DBTX, id int64) (*model.Order, error)

	// UpdateOrder persists status, type, billing and timestamps of an order.
	UpdateOrder(ctx context.Context, q DBTX, order *model.Order) error

	// MarkDefunct moves the user's other paying orders and their items to defunct.
	MarkDefunct(ctx context.Context, q DBTX, userID, exceptOrderID int64) (int64, error)

	// ListItems returns the items of an order ordered by ID.
	ListItems(ctx context.Context, q DBTX, orderID int64) ([]model.OrderItem, error)

	// GetItem retrieves an item by ID. It returns nil when none exists.
	GetItem(ctx context.Context, q DBTX, itemID int64) (*model.OrderItem, error)

	// AddItem inserts an item and fills in its ID and creation time.
	AddItem(ctx context.Context, q DBTX, item *model.OrderItem) error

	// UpdateItem persists the mutable fields of an item.
	UpdateItem(ctx context.Context, q DBTX, item *model.OrderItem) error

	// UpdateItemStatuses sets the status of every item in an order.
	UpdateItemStatuses(ctx context.Context, q DBTX, orderID int64, status model.OrderStatus) error

	// DeleteItem removes a cart item of an order and reports whether it existed.
	DeleteItem(ctx context.Context, q DBTX, orderID, itemID int64) (bool, error)

	// DeleteItems removes every item of an order.
	DeleteItems(ctx context.Context, q DBTX, orderID int64) error

	// ReportItems returns purchased and refunded items whose purchase or
	// refund time falls in [start, end).
	ReportItems(ctx context.Context, q DBTX, start, end time.Time) ([]model.ReportItem, error)
}

// CouponRepository defines the interface for coupons and their redemptions.
type CouponRepository interface {
	// Create inserts a coupon. A second active coupon with the same code for
	// the same course is a conflict.
	Create(ctx context.Context, q DBTX, coupon *model.Coupon) error

	// GetByID retrieves a coupon by ID. It returns nil when none exists.
	GetByID(ctx context.Context, q DBTX, id int64) (*model.Coupon, error)

	// ListActiveByCode returns active, unexpired coupons with the given code.
	ListActiveByCode(ctx context.Context, q DBTX, code string, now time.Time) ([]model.Coupon, error)

	// List returns all coupons, or the coupons of one course when courseID is set.
	List(ctx context.Context, q DBTX, courseID string) ([]model.Coupon, error)

	// Deactivate soft-deletes a coupon.
	Deactivate(ctx context.Context, q DBTX, id int64) error

	// UpsertCoupons inserts coupons whose course exists and whose code is not
	// already active for that course. It returns the number inserted.
	UpsertCoupons(ctx context.Context, q DBTX, coupons []model.Coupon) (int64, error)

	// ListRedemptions returns the coupon redemptions of an order.
	ListRedemptions(ctx context.Context, q DBTX, orderID int64) ([]model.CouponRedemption, error)

	// CreateRedemption records a coupon applied to an order.
	CreateRedemption(ctx context.Context, q DBTX, redemption *model.CouponRedemption) error

	// DeleteRedemptionsForCourse removes the order's redemptions of coupons for a course.
	DeleteRedemptionsForCourse(ctx context.Context, q DBTX, orderID int64, courseID string) (int64, error)

	// DeleteRedemptions removes every coupon redemption of an order.
	DeleteRedemptions(ctx context.Context, q DBTX, orderID int64) (int64, error)
}

// RegistrationCodeRepository defines the interface for registration codes.
type RegistrationCodeRepository interface {
	// GetByCode retrieves a code with its redemption state. It returns nil
	// when none exists.
	GetByCode(ctx context.Context, q DBTX, code string) (*model.RegistrationCode, error)

	// Create inserts a code. It reports false when the code string is taken.
	Create(ctx context.Context, q DBTX, code *model.RegistrationCode) (bool, error)

	// ListByOrder returns the codes bought through an order.
	ListByOrder(ctx context.Context, q DBTX, orderID int64) ([]model.RegistrationCode, error)

	// CreateRedemption records the single use of a code.
	CreateRedemption(ctx context.Context, q DBTX, redemption *model.RegistrationCodeRedemption) error

	// RedemptionForItem returns the redemption attached to an item, or nil.
	RedemptionForItem(ctx context.Context, q DBTX, itemID int64) (*model.RegistrationCodeRedemption, error)

	// DeleteRedemptionsForItem removes redemptions attached to an item.
	DeleteRedemptionsForItem(ctx context.Context, q DBTX, itemID int64) (int64, error)

	// DeleteRedemptionsForOrder removes redemptions attached to an order.
	DeleteRedemptionsForOrder(ctx context.Context, q DBTX, orderID int64) (int64, error)
}

// CourseRepository defines the interface for courses, modes and enrollments.
type CourseRepository interface {
	// GetAll retrieves courses with their modes, with pagination support.
	GetAll(ctx context.Context, q DBTX, limit, offset int) ([]model.Course, error)

	// GetByID retrieves a course with its modes. It returns nil when none exists.
	GetByID(ctx context.Context, q DBTX, id string) (*model.Course, error)

	// Save inserts or updates a course and its modes.
	Save(ctx context.Context, q DBTX, course *model.Course) error

	// IsEnrolled reports whether the user holds an active enrollment.
	IsEnrolled(ctx context.Context, q DBTX, userID int64, courseID string) (bool, error)

	// Enroll activates an enrollment in the given mode.
	Enroll(ctx context.Context, q DBTX, enrollment *model.Enrollment) error

	// Unenroll deactivates an enrollment.
	Unenroll(ctx context.Context, q DBTX, userID int64, courseID string) error
}

// UserRepository defines the interface for accounts and org tags.
type UserRepository interface {
	// Create inserts a user and fills in its ID. Duplicate e-mails return
	// ErrDuplicateEmail and duplicate usernames ErrDuplicateUsername.
	Create(ctx context.Context, q DBTX, user *model.User) error

	// GetByID retrieves a user. It returns nil when none exists.
	GetByID(ctx context.Context, q DBTX, id int64) (*model.User, error)

	// GetByLogin retrieves a user by username or e-mail. It returns nil when none exists.
	GetByLogin(ctx context.Context, q DBTX, login string) (*model.User, error)

	// GetBySocialAuth retrieves the user linked to a third-party account. It
	// returns nil when none is linked.
	GetBySocialAuth(ctx context.Context, q DBTX, provider, uid string) (*model.User, error)

	// LinkSocialAuth associates a third-party account with a user.
	LinkSocialAuth(ctx context.Context, q DBTX, userID int64, provider, uid string) error

	// Conflicts reports whether the e-mail or username is already taken.
	Conflicts(ctx context.Context, q DBTX, email, username string) (emailTaken, usernameTaken bool, err error)

	// SetOrgTag stores a per-org preference of a user.
	SetOrgTag(ctx context.Context, q DBTX, userID int64, org, key, value string) error

	// GetOrgTag returns a per-org preference of a user.
	GetOrgTag(ctx context.Context, q DBTX, userID int64, org, key string) (string, bool, error)
}

// SettingsRepository defines the interface for feature configuration history.
type SettingsRepository interface {
	// DonationConfiguration returns the newest donation configuration. With
	// no history donations are disabled.
	DonationConfiguration(ctx context.Context, q DBTX) (*model.DonationConfiguration, error)

	// SaveDonationConfiguration appends a configuration entry.
	SaveDonationConfiguration(ctx context.Context, q DBTX, enabled bool, changedBy int64) (*model.DonationConfiguration, error)
}
