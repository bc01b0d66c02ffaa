package auth

import (
	"context"
	"testing"
	"time"

	"coursecart/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(now time.Time) *TokenManager {
	m := NewTokenManager("test-secret", "coursecart", time.Hour)
	m.now = func() time.Time { return now }
	return m
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	token, expiresAt, err := m.Issue(&model.User{ID: 42, Username: "alice", Roles: []string{model.RoleFinanceAdmin}})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.HasRole(model.RoleFinanceAdmin))
	assert.False(t, p.HasRole(model.RoleSalesAdmin))
}

func TestTokenManager_ParseRejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	valid, _, err := m.Issue(&model.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	other := NewTokenManager("other-secret", "coursecart", time.Hour)
	other.now = m.now
	forged, _, err := other.Issue(&model.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	wrongIssuer := NewTokenManager("test-secret", "someone-else", time.Hour)
	wrongIssuer.now = m.now
	foreign, _, err := wrongIssuer.Issue(&model.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	later := newTestManager(now.Add(2 * time.Hour))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "coursecart",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *TokenManager
		token   string
	}{
		{"garbage", m, "not-a-token"},
		{"wrong secret", m, forged},
		{"wrong issuer", m, foreign},
		{"expired", later, valid},
		{"unsigned", m, none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_Pipeline(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	token, err := m.IssuePipeline(PipelineDetails{
		Backend:  "google-oauth2",
		UID:      "10769150350006150715113082367",
		Email:    "bob@example.com",
		Username: "bob",
		FullName: "Bob Builder",
	}, 10*time.Minute)
	require.NoError(t, err)

	details, err := m.ParsePipeline(token)
	require.NoError(t, err)
	assert.Equal(t, "google-oauth2", details.Backend)
	assert.Equal(t, "bob@example.com", details.Email)
	assert.Equal(t, "10769150350006150715113082367", details.UID)

	// a session token is not a pipeline token
	session, _, err := m.Issue(&model.User{ID: 3, Username: "carol"})
	require.NoError(t, err)
	_, err = m.ParsePipeline(session)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = newTestManager(now.Add(time.Hour)).ParsePipeline(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, h.Compare(hash, "s3cret"))
	assert.Error(t, h.Compare(hash, "wrong"))
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFrom(ctx))

	p := &Principal{UserID: 7, Roles: []string{model.RoleStaff}}
	ctx = WithPrincipal(ctx, p)
	assert.Same(t, p, PrincipalFrom(ctx))
	assert.True(t, PrincipalFrom(ctx).HasRole(model.RoleSalesAdmin))
}
