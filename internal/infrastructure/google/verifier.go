package google

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/intranet-auth-api/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier validates Google ID tokens against this application's client ID.
// idtoken.Validate checks the signature against Google's published keys plus
// the issuer, audience, and expiry. Claims are only read after that passes.
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

type rawClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// Verify validates the ID token and returns the identity claims.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid.
func (v *Verifier) Verify(ctx context.Context, raw string) (*domain.IdentityClaims, error) {
	if _, err := idtoken.Validate(ctx, raw, v.clientID); err != nil {
		return nil, fmt.Errorf("invalid google id token: %w", domain.ErrUnauthorized)
	}

	// Signature already verified above; this pass only extracts typed claims.
	var claims rawClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("id token missing subject: %w", domain.ErrUnauthorized)
	}
	return &domain.IdentityClaims{
		Sub:     claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
