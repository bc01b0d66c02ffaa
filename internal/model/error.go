package model

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ErrorKind classifies a domain error for the transport layer.
type ErrorKind int

const (
	KindBadRequest ErrorKind = iota
	KindNotFound
	KindForbidden
	// KindConflict is a business-rule violation; it is reported as a bad request.
	KindConflict
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeItemNotFound        = "ITEM_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeCourseNotFound      = "COURSE_NOT_FOUND"
	ErrCodeAlreadyInCart       = "ALREADY_IN_CART"
	ErrCodeAlreadyRegistered   = "ALREADY_REGISTERED"
	ErrCodeEnrollmentClosed    = "ENROLLMENT_CLOSED"
	ErrCodeNoPurchasableMode   = "NO_PURCHASABLE_MODE"
	ErrCodeDiscountNotFound    = "DISCOUNT_NOT_FOUND"
	ErrCodeCodeNotApplicable   = "CODE_NOT_APPLICABLE"
	ErrCodeMultipleCoupons     = "MULTIPLE_COUPONS"
	ErrCodeCodeQuantity        = "CODE_QUANTITY_CONFLICT"
	ErrCodeCodeInvalid         = "CODE_INVALID"
	ErrCodeCodeAlreadyUsed     = "CODE_ALREADY_USED"
	ErrCodeItemRedeemed        = "ITEM_ALREADY_REDEEMED"
	ErrCodeCodeNotFound        = "CODE_NOT_FOUND"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeInvalidOrderState   = "INVALID_ORDER_STATE"
	ErrCodePaymentRejected     = "PAYMENT_REJECTED"
	ErrCodeDonationsDisabled   = "DONATIONS_DISABLED"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidDate         = "INVALID_DATE"
	ErrCodeUnknownReport       = "UNKNOWN_REPORT"
	ErrCodeCouponExists        = "COUPON_EXISTS"
	ErrCodeCouponNotFound      = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive      = "COUPON_INACTIVE"
	ErrCodeInvalidCoupon       = "INVALID_COUPON"
	ErrCodeInvalidCourse       = "INVALID_COURSE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeAccountLinked       = "ACCOUNT_ALREADY_LINKED"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business error with a stable code and a user-facing message.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

func BadRequest(code, format string, args ...any) *DomainError {
	return NewDomainError(KindBadRequest, code, fmt.Sprintf(format, args...))
}

func NotFound(code, format string, args ...any) *DomainError {
	return NewDomainError(KindNotFound, code, fmt.Sprintf(format, args...))
}

func Forbidden(code, format string, args ...any) *DomainError {
	return NewDomainError(KindForbidden, code, fmt.Sprintf(format, args...))
}

func Conflict(code, format string, args ...any) *DomainError {
	return NewDomainError(KindConflict, code, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrQuantityRange        = BadRequest(ErrCodeInvalidQuantity, "Quantity must be between %d and %d.", MinQuantity, MaxQuantity)
	ErrQuantityNotInteger   = BadRequest(ErrCodeInvalidQuantity, "Quantity must be an integer.")
	ErrItemNotFound         = NotFound(ErrCodeItemNotFound, "Order item does not exist.")
	ErrOrderNotFound        = NotFound(ErrCodeOrderNotFound, "Order does not exist.")
	ErrCourseNotFound       = NotFound(ErrCodeCourseNotFound, "The course you requested does not exist.")
	ErrMultipleCoupons      = Conflict(ErrCodeMultipleCoupons, "Only one coupon redemption is allowed against an order")
	ErrRedeemQuantity       = Conflict(ErrCodeCodeQuantity, "Cart item quantity should not be greater than 1 when applying activation code")
	ErrRegistrationCodeUsed = Conflict(ErrCodeCodeAlreadyUsed, "You've clicked a link for an enrollment code that has already been used.")
	ErrEmptyCart            = BadRequest(ErrCodeEmptyCart, "Your shopping cart is empty.")
	ErrDonationsDisabled    = NotFound(ErrCodeDonationsDisabled, "Donations are not enabled.")
	ErrInvalidAmount        = BadRequest(ErrCodeInvalidAmount, "Amount must be a positive number with at most two decimal places.")
	ErrInvalidReportDate    = BadRequest(ErrCodeInvalidDate, "There was an error in your date input.  It should be formatted as YYYY-MM-DD")
	ErrInvalidCredentials   = Forbidden(ErrCodeInvalidCredentials, "Email or password is incorrect.")
	ErrLoginRequired        = Forbidden(ErrCodeUnauthorised, "You must be signed in to do that.")
	ErrPermissionDenied     = Forbidden(ErrCodeForbidden, "You do not have permission to do that.")
	ErrRateLimited          = Forbidden(ErrCodeRateLimited, "Rate limit exceeded. Try again later.")
)

// ErrAlreadyInCart is returned when the course already sits in the cart.
func ErrAlreadyInCart(courseID string) *DomainError {
	return BadRequest(ErrCodeAlreadyInCart, "The course %s is already in your cart.", courseID)
}

// ErrAlreadyRegistered is returned when the user is enrolled in the course.
func ErrAlreadyRegistered(courseID string) *DomainError {
	return BadRequest(ErrCodeAlreadyRegistered, "You are already registered in course %s.", courseID)
}

// ErrDiscountNotFound is returned when a code matches no usable coupon.
func ErrDiscountNotFound(code string) *DomainError {
	return NotFound(ErrCodeDiscountNotFound, "Discount does not exist against code '%s'.", code)
}

// ErrNotInCart is returned when a registration code matches no cart item.
func ErrNotInCart(code string) *DomainError {
	return NotFound(ErrCodeCodeNotApplicable, "Code '%s' is not valid for any course in the shopping cart.", code)
}

// ErrItemAlreadyRedeemed is returned when a cart item already carries a
// registration code.
func ErrItemAlreadyRedeemed(courseID string) *DomainError {
	return Conflict(ErrCodeItemRedeemed, "A registration code has already been applied to %s in your cart.", courseID)
}

// ErrInvalidOrExpiredCode is returned for spent registration codes at checkout.
func ErrInvalidOrExpiredCode(code string) *DomainError {
	return BadRequest(ErrCodeCodeInvalid, "Oops! The code '%s' you entered is either invalid or expired", code)
}

// ErrAccountLinked is returned when a provider account already belongs to
// another user.
func ErrAccountLinked(backend string) *DomainError {
	return Conflict(ErrCodeAccountLinked, "This %s account is already linked to another user.", backend)
}

// OAuth 2.0 token endpoint error codes.
const (
	OAuthInvalidRequest = "invalid_request"
	OAuthInvalidClient  = "invalid_client"
	OAuthInvalidGrant   = "invalid_grant"
)

// OAuthError is an OAuth 2.0 token endpoint error. It is written as the
// response body unchanged.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func NewOAuthError(code, format string, args ...any) *OAuthError {
	return &OAuthError{Code: code, Description: fmt.Sprintf(format, args...)}
}

func (e *OAuthError) Error() string {
	return e.Code + ": " + e.Description
}

// FieldErrors reports per-field validation failures from account registration.
// Conflict marks duplicate e-mail or username failures.
type FieldErrors struct {
	Conflict bool
	Fields   map[string][]string
}

// NewFieldErrors creates an empty set of field errors.
func NewFieldErrors() *FieldErrors {
	return &FieldErrors{Fields: make(map[string][]string)}
}

// Add records a message against a field.
func (e *FieldErrors) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field failed.
func (e *FieldErrors) Empty() bool {
	return len(e.Fields) == 0
}

func (e *FieldErrors) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
	}
	return strings.Join(parts, ", ")
}
