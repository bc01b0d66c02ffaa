package repository

import (
	"context"
	"testing"
	"time"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{
	"id", "username", "email", "name", "password_hash", "roles", "is_active",
	"city", "country", "gender", "year_of_birth", "level_of_education", "mailing_address", "goals", "created_at",
}

func TestUserRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(zerolog.Nop())

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ada", "ada@example.com", "Ada Lovelace", "hash", []string{}, true,
			"London", "GB", "", pgxmock.AnyArg(), "", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(anyArgs(13)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(anyArgs(13)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	user := &model.User{
		Username:     "ada",
		Email:        "ada@example.com",
		Name:         "Ada Lovelace",
		PasswordHash: "hash",
		IsActive:     true,
		Profile:      model.Profile{City: "London", Country: "GB"},
	}
	require.NoError(t, repo.Create(context.Background(), mock, user))
	assert.Equal(t, int64(7), user.ID)

	err := repo.Create(context.Background(), mock, user)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.Create(context.Background(), mock, user)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepository_SocialAuth(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(zerolog.Nop())

	mock.ExpectQuery("JOIN user_social_auth").
		WithArgs("google-oauth2", "g-123").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(int64(7), "ada", "ada@example.com", "Ada", "hash", []string{}, true,
				"", "", "", (*int)(nil), "", "", "", time.Now()))
	mock.ExpectQuery("JOIN user_social_auth").
		WithArgs("google-oauth2", "g-999").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO user_social_auth").
		WithArgs("google-oauth2", "g-123", int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_social_auth").
		WithArgs("google-oauth2", "g-123", int64(8)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	user, err := repo.GetBySocialAuth(context.Background(), mock, "google-oauth2", "g-123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(7), user.ID)

	missing, err := repo.GetBySocialAuth(context.Background(), mock, "google-oauth2", "g-999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.LinkSocialAuth(context.Background(), mock, 7, "google-oauth2", "g-123"))
	assert.ErrorIs(t, repo.LinkSocialAuth(context.Background(), mock, 8, "google-oauth2", "g-123"), ErrDuplicate)
}

func TestUserRepository_GetByLogin(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(zerolog.Nop())
	year := 1990

	mock.ExpectQuery("FROM users").
		WithArgs("ada").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(int64(7), "ada", "ada@example.com", "Ada", "hash", []string{model.RoleFinanceAdmin}, true,
				"", "", "f", &year, "", "", "", time.Now()))
	mock.ExpectQuery("FROM users").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.GetByLogin(context.Background(), mock, "ada")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.HasRole(model.RoleFinanceAdmin))
	require.NotNil(t, user.Profile.YearOfBirth)
	assert.Equal(t, 1990, *user.Profile.YearOfBirth)

	ghost, err := repo.GetByLogin(context.Background(), mock, "ghost")
	require.NoError(t, err)
	assert.Nil(t, ghost)
}

func TestUserRepository_Conflicts(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("EXISTS").
		WithArgs("ada@example.com", "ada").
		WillReturnRows(pgxmock.NewRows([]string{"email", "username"}).AddRow(true, false))

	emailTaken, usernameTaken, err := NewUserRepository(zerolog.Nop()).Conflicts(context.Background(), mock, "ada@example.com", "ada")

	require.NoError(t, err)
	assert.True(t, emailTaken)
	assert.False(t, usernameTaken)
}

func TestUserRepository_OrgTags(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(zerolog.Nop())
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO user_org_tags").
		WithArgs(int64(7), "edX", model.TagEmailOptIn, "True").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM user_org_tags").
		WithArgs(int64(7), "edX", model.TagEmailOptIn).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("True"))
	mock.ExpectQuery("FROM user_org_tags").
		WithArgs(int64(7), "MITx", model.TagEmailOptIn).
		WillReturnError(pgx.ErrNoRows)

	require.NoError(t, repo.SetOrgTag(ctx, mock, 7, "edX", model.TagEmailOptIn, "True"))

	value, ok, err := repo.GetOrgTag(ctx, mock, 7, "edX", model.TagEmailOptIn)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "True", value)

	_, ok, err = repo.GetOrgTag(ctx, mock, 7, "MITx", model.TagEmailOptIn)
	require.NoError(t, err)
	assert.False(t, ok)
}
