package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCourseKey(t *testing.T) {
	tests := []struct {
		input   string
		want    CourseKey
		wantErr bool
	}{
		{input: "course-v1:MITx+6.002x+2024_T1", want: CourseKey{Org: "MITx", Course: "6.002x", Run: "2024_T1"}},
		{input: "edX/DemoX/Demo_Course", want: CourseKey{Org: "edX", Course: "DemoX", Run: "Demo_Course"}},
		{input: "invalid", wantErr: true},
		{input: "course-v1:MITx+6.002x", wantErr: true},
		{input: "a//b", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCourseKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCourseKey_String(t *testing.T) {
	key := CourseKey{Org: "edX", Course: "DemoX", Run: "2024"}
	assert.Equal(t, "course-v1:edX+DemoX+2024", key.String())
}

func TestCourse_DefaultMode(t *testing.T) {
	course := &Course{Modes: []CourseMode{
		{Slug: ModeVerified, MinPrice: decimal.NewFromInt(50)},
		{Slug: ModeAudit, MinPrice: decimal.Zero},
	}}

	mode, ok := course.DefaultMode()
	require.True(t, ok)
	assert.Equal(t, ModeAudit, mode.Slug)

	course.Modes = append(course.Modes, CourseMode{Slug: ModeHonor, MinPrice: decimal.NewFromInt(40)})
	mode, ok = course.DefaultMode()
	require.True(t, ok)
	assert.Equal(t, ModeHonor, mode.Slug)

	_, ok = (&Course{}).DefaultMode()
	assert.False(t, ok)
}

func TestCourse_EnrollmentOpen(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	assert.True(t, (&Course{}).EnrollmentOpen(now))
	assert.True(t, (&Course{EnrollmentStart: &past, EnrollmentEnd: &future}).EnrollmentOpen(now))
	assert.False(t, (&Course{EnrollmentEnd: &past}).EnrollmentOpen(now))
	assert.False(t, (&Course{EnrollmentStart: &future}).EnrollmentOpen(now))
}

func TestCoupon_Expired(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	assert.False(t, (&Coupon{}).Expired(now))
	assert.True(t, (&Coupon{ExpirationDate: &yesterday}).Expired(now))
	assert.False(t, (&Coupon{ExpirationDate: &tomorrow}).Expired(now))
}

func TestUser_HasRole(t *testing.T) {
	assert.True(t, (&User{Roles: []string{RoleFinanceAdmin}}).HasRole(RoleFinanceAdmin))
	assert.True(t, (&User{Roles: []string{RoleStaff}}).HasRole(RoleSalesAdmin))
	assert.False(t, (&User{}).HasRole(RoleFinanceAdmin))
}
