package model

import "time"

// Coupon is a percentage discount on one course.
type Coupon struct {
	ID                 int64      `json:"id"`
	Code               string     `json:"code"`
	Description        string     `json:"description"`
	CourseID           string     `json:"course_id"`
	PercentageDiscount int        `json:"percentage_discount"`
	CreatedBy          int64      `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	IsActive           bool       `json:"is_active"`
}

// Expired reports whether the coupon has passed its expiration date.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpirationDate != nil && !now.Before(*c.ExpirationDate)
}

// CouponRedemption records a coupon applied to an order.
type CouponRedemption struct {
	ID        int64
	OrderID   int64
	UserID    int64
	CouponID  int64
	Code      string
	CourseID  string
	CreatedAt time.Time
}

// RegistrationCode grants free enrollment into a course mode.
type RegistrationCode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	CourseID  string    `json:"course_id"`
	ModeSlug  string    `json:"mode_slug"`
	CreatedBy int64     `json:"created_by"`
	OrderID   *int64    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Redeemed  bool      `json:"redeemed"`
}

// RegistrationCodeRedemption records the single use of a registration code.
type RegistrationCodeRedemption struct {
	ID                 int64
	RegistrationCodeID int64
	OrderID            *int64
	ItemID             *int64
	RedeemedBy         int64
	RedeemedAt         time.Time
}

// DonationConfiguration is one entry of the donation feature flag history.
type DonationConfiguration struct {
	ID         int64     `json:"id"`
	Enabled    bool      `json:"enabled"`
	ChangedBy  *int64    `json:"changed_by,omitempty"`
	ChangeDate time.Time `json:"change_date"`
}
