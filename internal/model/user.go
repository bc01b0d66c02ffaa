package model

import "time"

// Roles granted to users.
const (
	RoleStaff        = "staff"
	RoleFinanceAdmin = "finance_admin"
	RoleSalesAdmin   = "sales_admin"
)

// Field length limits for account data.
const (
	EmailMinLength    = 3
	EmailMaxLength    = 254
	NameMaxLength     = 255
	UsernameMinLength = 2
	UsernameMaxLength = 30
	PasswordMinLength = 2
	PasswordMaxLength = 75
)

// Org tag keys.
const TagEmailOptIn = "email-optin"

// User is a platform account.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	IsActive     bool
	Profile      Profile
	CreatedAt    time.Time
}

// HasRole reports whether the user holds role. Staff hold every role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role || r == RoleStaff {
			return true
		}
	}
	return false
}

// Profile holds the optional registration extras.
type Profile struct {
	City             string
	Country          string
	Gender           string
	YearOfBirth      *int
	LevelOfEducation string
	MailingAddress   string
	Goals            string
}

// RegistrationRequest is the submitted registration form.
type RegistrationRequest struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	City             string `json:"city"`
	Country          string `json:"country"`
	Gender           string `json:"gender"`
	YearOfBirth      string `json:"year_of_birth"`
	LevelOfEducation string `json:"level_of_education"`
	MailingAddress   string `json:"mailing_address"`
	Goals            string `json:"goals"`
	HonorCode        string `json:"honor_code"`
	TermsOfService   string `json:"terms_of_service"`

	// PipelineToken links the new account to the provider account that
	// started a third-party sign-up. It travels in the tpa_pipeline cookie.
	PipelineToken string `json:"-"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
}

// TokenExchange is the outcome of exchanging a provider access token. Session
// is set when the provider account is linked to a user; otherwise
// PipelineToken carries the provider details on to registration.
type TokenExchange struct {
	Session       *Session
	PipelineToken string
}

// MasqueradeView is the effective course view of a staff member.
type MasqueradeView struct {
	CourseID       string `json:"course_id"`
	Role           string `json:"role"`
	Masquerading   bool   `json:"masquerading"`
	StaffDebugInfo bool   `json:"staff_debug_info"`
	ShowAnswer     bool   `json:"show_answer"`
}
