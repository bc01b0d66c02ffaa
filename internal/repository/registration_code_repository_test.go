package repository

import (
	"context"
	"testing"
	"time"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registrationCodeCols = []string{
	"id", "code", "course_id", "mode_slug", "created_by", "order_id", "created_at", "redeemed",
}

func TestRegistrationCodeRepository_GetByCode(t *testing.T) {
	mock := newMock(t)
	repo := NewRegistrationCodeRepository(zerolog.Nop())
	orderID := int64(42)

	mock.ExpectQuery("FROM registration_codes rc").
		WithArgs("ABCD1234").
		WillReturnRows(pgxmock.NewRows(registrationCodeCols).
			AddRow(int64(1), "ABCD1234", "course-v1:edX+DemoX+2024", model.ModeHonor, int64(2), &orderID, time.Now(), true))
	mock.ExpectQuery("FROM registration_codes rc").
		WithArgs("MISSING").
		WillReturnError(pgx.ErrNoRows)

	code, err := repo.GetByCode(context.Background(), mock, "ABCD1234")
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.True(t, code.Redeemed)
	require.NotNil(t, code.OrderID)
	assert.Equal(t, orderID, *code.OrderID)

	missing, err := repo.GetByCode(context.Background(), mock, "MISSING")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegistrationCodeRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewRegistrationCodeRepository(zerolog.Nop())

	mock.ExpectQuery("INSERT INTO registration_codes").
		WithArgs("NEWCODE1", "course-v1:edX+DemoX+2024", model.ModeHonor, int64(2), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), time.Now()))
	mock.ExpectQuery("INSERT INTO registration_codes").
		WithArgs(anyArgs(5)...).
		WillReturnError(pgx.ErrNoRows)

	code := &model.RegistrationCode{Code: "NEWCODE1", CourseID: "course-v1:edX+DemoX+2024", ModeSlug: model.ModeHonor, CreatedBy: 2}
	created, err := repo.Create(context.Background(), mock, code)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), code.ID)

	created, err = repo.Create(context.Background(), mock, code)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRegistrationCodeRepository_CreateRedemption(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "first redemption",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO registration_code_redemptions").
					WithArgs(int64(1), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(7)).
					WillReturnRows(pgxmock.NewRows([]string{"id", "redeemed_at"}).AddRow(int64(9), time.Now()))
			},
		},
		{
			name: "lost the race",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO registration_code_redemptions").
					WithArgs(anyArgs(4)...).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: model.ErrRegistrationCodeUsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			red := &model.RegistrationCodeRedemption{RegistrationCodeID: 1, RedeemedBy: 7}
			err := NewRegistrationCodeRepository(zerolog.Nop()).CreateRedemption(context.Background(), mock, red)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(9), red.ID)
		})
	}
}

func TestRegistrationCodeRepository_RedemptionForItem(t *testing.T) {
	mock := newMock(t)
	repo := NewRegistrationCodeRepository(zerolog.Nop())
	orderID, itemID := int64(42), int64(9)

	mock.ExpectQuery("FROM registration_code_redemptions").
		WithArgs(itemID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "registration_code_id", "order_id", "item_id", "redeemed_by", "redeemed_at"}).
			AddRow(int64(3), int64(1), &orderID, &itemID, int64(7), time.Now()))
	mock.ExpectExec("DELETE FROM registration_code_redemptions WHERE item_id").
		WithArgs(itemID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM registration_code_redemptions WHERE order_id").
		WithArgs(orderID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	red, err := repo.RedemptionForItem(context.Background(), mock, itemID)
	require.NoError(t, err)
	require.NotNil(t, red)
	assert.Equal(t, int64(1), red.RegistrationCodeID)

	n, err := repo.DeleteRedemptionsForItem(context.Background(), mock, itemID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteRedemptionsForOrder(context.Background(), mock, orderID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
