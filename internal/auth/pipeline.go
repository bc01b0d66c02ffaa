package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PipelineDetails are the account details a third-party provider handed over
// while the user is part way through sign-up.
type PipelineDetails struct {
	Backend  string `json:"backend"`
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullname"`
}

type pipelineClaims struct {
	PipelineDetails
	jwt.RegisteredClaims
}

const pipelineAudience = "tpa_pipeline"

// IssuePipeline signs a short-lived third-party-auth pipeline token.
func (m *TokenManager) IssuePipeline(details PipelineDetails, ttl time.Duration) (string, error) {
	now := m.now()
	claims := pipelineClaims{
		PipelineDetails: details,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{pipelineAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign pipeline token: %w", err)
	}
	return signed, nil
}

// ParsePipeline verifies a pipeline token.
func (m *TokenManager) ParsePipeline(raw string) (*PipelineDetails, error) {
	var claims pipelineClaims
	_, err := jwt.ParseWithClaims(raw, &claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(pipelineAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Backend == "" {
		return nil, fmt.Errorf("%w: missing backend", ErrInvalidToken)
	}

	details := claims.PipelineDetails
	return &details, nil
}
