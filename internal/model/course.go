package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mode slugs offered by courses.
const (
	ModeHonor    = "honor"
	ModeAudit    = "audit"
	ModeVerified = "verified"
)

// Course is a purchasable course with its enrollment window and modes.
type Course struct {
	ID              string       `json:"id"`
	Org             string       `json:"org"`
	DisplayName     string       `json:"display_name"`
	EnrollmentStart *time.Time   `json:"enrollment_start,omitempty"`
	EnrollmentEnd   *time.Time   `json:"enrollment_end,omitempty"`
	Modes           []CourseMode `json:"modes"`
	CreatedAt       time.Time    `json:"-"`
}

// CourseMode is a paid or free track of a course.
type CourseMode struct {
	CourseID       string          `json:"-"`
	Slug           string          `json:"slug"`
	DisplayName    string          `json:"name"`
	MinPrice       decimal.Decimal `json:"min_price"`
	Currency       string          `json:"currency"`
	ExpirationDate *time.Time      `json:"expiration_datetime,omitempty"`
}

// Mode returns the course mode with the given slug.
func (c *Course) Mode(slug string) (*CourseMode, bool) {
	for i := range c.Modes {
		if c.Modes[i].Slug == slug {
			return &c.Modes[i], true
		}
	}
	return nil, false
}

// DefaultMode picks the mode used for cart registrations: honor when offered,
// otherwise the cheapest mode.
func (c *Course) DefaultMode() (*CourseMode, bool) {
	if m, ok := c.Mode(ModeHonor); ok {
		return m, true
	}
	var best *CourseMode
	for i := range c.Modes {
		if best == nil || c.Modes[i].MinPrice.LessThan(best.MinPrice) {
			best = &c.Modes[i]
		}
	}
	return best, best != nil
}

// EnrollmentOpen reports whether now lies inside the enrollment window.
func (c *Course) EnrollmentOpen(now time.Time) bool {
	if c.EnrollmentStart != nil && now.Before(*c.EnrollmentStart) {
		return false
	}
	if c.EnrollmentEnd != nil && now.After(*c.EnrollmentEnd) {
		return false
	}
	return true
}

// Enrollment links a user to a course mode.
type Enrollment struct {
	UserID    int64
	CourseID  string
	Mode      string
	IsActive  bool
	CreatedAt time.Time
}

// CourseKey is the parsed form of a course identifier.
type CourseKey struct {
	Org    string
	Course string
	Run    string
}

// ParseCourseKey accepts "course-v1:Org+Course+Run" and the legacy
// "Org/Course/Run" form.
func ParseCourseKey(id string) (CourseKey, error) {
	var parts []string
	switch {
	case strings.HasPrefix(id, "course-v1:"):
		parts = strings.Split(strings.TrimPrefix(id, "course-v1:"), "+")
	case strings.Count(id, "/") == 2:
		parts = strings.Split(id, "/")
	default:
		return CourseKey{}, fmt.Errorf("invalid course key: %q", id)
	}

	if len(parts) != 3 {
		return CourseKey{}, fmt.Errorf("invalid course key: %q", id)
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t") {
			return CourseKey{}, fmt.Errorf("invalid course key: %q", id)
		}
	}

	return CourseKey{Org: parts[0], Course: parts[1], Run: parts[2]}, nil
}

// String renders the key in the course-v1 form.
func (k CourseKey) String() string {
	return fmt.Sprintf("course-v1:%s+%s+%s", k.Org, k.Course, k.Run)
}
