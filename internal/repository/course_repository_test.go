package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	courseCols = []string{"id", "org", "display_name", "enrollment_start", "enrollment_end", "created_at"}
	modeCols   = []string{"course_id", "mode_slug", "mode_display_name", "min_price", "currency", "expiration_datetime"}
)

func TestCourseRepository_GetAll(t *testing.T) {
	mock := newMock(t)
	repo := NewCourseRepository(zerolog.Nop())

	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)

	mock.ExpectQuery("FROM courses").
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(courseCols).
			AddRow("course-v1:edX+A+1", "edX", "Alpha", nil, &end, now).
			AddRow("course-v1:MITx+B+1", "MITx", "Beta", nil, nil, now))
	mock.ExpectQuery("FROM course_modes").
		WithArgs([]string{"course-v1:edX+A+1", "course-v1:MITx+B+1"}).
		WillReturnRows(pgxmock.NewRows(modeCols).
			AddRow("course-v1:edX+A+1", model.ModeHonor, "Honor", decimal.NewFromInt(40), "usd", nil).
			AddRow("course-v1:edX+A+1", model.ModeVerified, "Verified", decimal.NewFromInt(90), "usd", nil))

	courses, err := repo.GetAll(context.Background(), mock, 10, 0)

	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Len(t, courses[0].Modes, 2)
	require.NotNil(t, courses[0].EnrollmentEnd)
	assert.Empty(t, courses[1].Modes)
}

func TestCourseRepository_GetAll_Empty(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("FROM courses").
		WithArgs(10, 20).
		WillReturnRows(pgxmock.NewRows(courseCols))

	courses, err := NewCourseRepository(zerolog.Nop()).GetAll(context.Background(), mock, 10, 20)

	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestCourseRepository_GetByID(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantNil bool
		wantErr bool
	}{
		{
			name: "course with mode",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM courses").
					WithArgs("course-v1:edX+A+1").
					WillReturnRows(pgxmock.NewRows(courseCols).AddRow("course-v1:edX+A+1", "edX", "Alpha", nil, nil, time.Now()))
				mock.ExpectQuery("FROM course_modes").
					WithArgs([]string{"course-v1:edX+A+1"}).
					WillReturnRows(pgxmock.NewRows(modeCols).
						AddRow("course-v1:edX+A+1", model.ModeHonor, "Honor", decimal.NewFromInt(40), "usd", nil))
			},
		},
		{
			name: "unknown course",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM courses").WithArgs("course-v1:edX+A+1").WillReturnError(pgx.ErrNoRows)
			},
			wantNil: true,
		},
		{
			name: "query failure",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("FROM courses").WithArgs("course-v1:edX+A+1").WillReturnError(errors.New("boom"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			course, err := NewCourseRepository(zerolog.Nop()).GetByID(context.Background(), mock, "course-v1:edX+A+1")

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, course)
				return
			}
			require.NotNil(t, course)
			mode, ok := course.Mode(model.ModeHonor)
			require.True(t, ok)
			assert.Equal(t, "40", mode.MinPrice.String())
		})
	}
}

func TestCourseRepository_Save(t *testing.T) {
	mock := newMock(t)
	repo := NewCourseRepository(zerolog.Nop())

	course := &model.Course{
		ID:          "course-v1:edX+A+1",
		Org:         "edX",
		DisplayName: "Alpha",
		Modes: []model.CourseMode{
			{Slug: model.ModeHonor, DisplayName: "Honor", MinPrice: decimal.NewFromInt(40), Currency: "usd"},
		},
	}

	mock.ExpectExec("INSERT INTO courses").
		WithArgs("course-v1:edX+A+1", "edX", "Alpha", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO course_modes").
		WithArgs("course-v1:edX+A+1", model.ModeHonor, "Honor", pgxmock.AnyArg(), "usd", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Save(context.Background(), mock, course))
}

func TestCourseRepository_Enrollment(t *testing.T) {
	mock := newMock(t)
	repo := NewCourseRepository(zerolog.Nop())
	ctx := context.Background()

	mock.ExpectQuery("FROM enrollments").
		WithArgs(int64(7), "course-v1:edX+A+1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(int64(7), "course-v1:edX+A+1", model.ModeVerified).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE enrollments SET is_active = FALSE").
		WithArgs(int64(7), "course-v1:edX+A+1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	enrolled, err := repo.IsEnrolled(ctx, mock, 7, "course-v1:edX+A+1")
	require.NoError(t, err)
	assert.False(t, enrolled)

	enrollment := &model.Enrollment{UserID: 7, CourseID: "course-v1:edX+A+1", Mode: model.ModeVerified}
	require.NoError(t, repo.Enroll(ctx, mock, enrollment))
	assert.True(t, enrollment.IsActive)

	require.NoError(t, repo.Unenroll(ctx, mock, 7, "course-v1:edX+A+1"))
}
