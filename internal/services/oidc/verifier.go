package oidc

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/billminder/billminder/internal/models"
)

// Verifier checks token signatures against a JWKS and validates standard claims.
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a new JWT verifier
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
	}
}

// Verify parses and verifies a token, returning its claims. Signature,
// expiry, and issuer are all enforced by jwt.Parse.
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	claims := &models.JWTClaims{
		Sub:   token.Subject(),
		Email: stringClaim(token, "email"),
		Name:  stringClaim(token, "name"),
		Iss:   token.Issuer(),
	}
	if exp := token.Expiration(); !exp.IsZero() {
		claims.Exp = exp.Unix()
	}
	if iat := token.IssuedAt(); !iat.IsZero() {
		claims.Iat = iat.Unix()
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}

	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
