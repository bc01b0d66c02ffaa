package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Identity is the provider account an OAuth2 access token belongs to.
type Identity struct {
	Backend  string
	UID      string
	Email    string
	Username string
	FullName string
}

// IdentityVerifier resolves third-party access tokens to provider accounts.
type IdentityVerifier interface {
	// Supports reports whether tokens from backend can be verified.
	Supports(backend string) bool

	// Verify returns the account behind accessToken. Tokens the provider
	// rejects yield ErrInvalidToken.
	Verify(ctx context.Context, backend, accessToken string) (*Identity, error)
}

const maxUserInfoBytes = 1 << 20

// UserInfoVerifier verifies access tokens by calling each provider's OAuth2
// userinfo endpoint with the token as a bearer credential.
type UserInfoVerifier struct {
	endpoints map[string]string
	client    *http.Client
}

// NewUserInfoVerifier creates a verifier for the given backend to userinfo
// URL map. A nil client uses a client with a ten second timeout.
func NewUserInfoVerifier(endpoints map[string]string, client *http.Client) *UserInfoVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &UserInfoVerifier{endpoints: endpoints, client: client}
}

func (v *UserInfoVerifier) Supports(backend string) bool {
	_, ok := v.endpoints[backend]
	return ok
}

// userInfo covers the OpenID Connect claims and the id/login fields that
// non-OIDC providers return instead.
type userInfo struct {
	Sub               string          `json:"sub"`
	ID                json.RawMessage `json:"id"`
	Email             string          `json:"email"`
	Name              string          `json:"name"`
	PreferredUsername string          `json:"preferred_username"`
	Login             string          `json:"login"`
}

func (v *UserInfoVerifier) Verify(ctx context.Context, backend, accessToken string) (*Identity, error) {
	endpoint, ok := v.endpoints[backend]
	if !ok {
		return nil, fmt.Errorf("no userinfo endpoint for provider %s", backend)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request to %s failed: %w", backend, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s rejected the access token", ErrInvalidToken, backend)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("userinfo request to %s returned status %d", backend, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode %s userinfo: %w", backend, err)
	}

	uid := info.Sub
	if uid == "" && len(info.ID) > 0 && string(info.ID) != "null" {
		uid = strings.Trim(string(info.ID), `"`)
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: %s userinfo has no subject", ErrInvalidToken, backend)
	}

	username := info.PreferredUsername
	if username == "" {
		username = info.Login
	}

	return &Identity{
		Backend:  backend,
		UID:      uid,
		Email:    info.Email,
		Username: username,
		FullName: info.Name,
	}, nil
}
