// Package middleware provides HTTP middleware for bearer authentication,
// request IDs and rate limiting.
package middleware

import (
	"context"
	"fmt"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims holds the parsed claims from a validated JWT.
type JWTClaims struct {
	Subject  string
	Issuer   string
	Audience []string
	Email    *string
}

// PrincipalName is the name recorded for the caller: the email when present,
// the subject otherwise.
func (c *JWTClaims) PrincipalName() string {
	if c.Email != nil && *c.Email != "" {
		return *c.Email
	}
	return c.Subject
}

// JWTValidator validates a JWT token and returns the parsed claims.
type JWTValidator interface {
	Validate(ctx context.Context, tokenString string) (*JWTClaims, error)
}

// OIDCValidator validates JWTs using OIDC discovery and JWKS.
type OIDCValidator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCValidator creates a validator from an OIDC issuer URL. Tokens must
// carry audience in their aud claim.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	return &OIDCValidator{verifier: provider.Verifier(&oidc.Config{ClientID: audience})}, nil
}

// NewOIDCValidatorFromKeySet creates a validator that verifies against keys
// directly, skipping discovery.
func NewOIDCValidatorFromKeySet(issuerURL, audience string, keySet oidc.KeySet) *OIDCValidator {
	return &OIDCValidator{verifier: oidc.NewVerifier(issuerURL, keySet, &oidc.Config{ClientID: audience})}
}

// Validate verifies the JWT using the OIDC provider's JWKS.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	var extra struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	claims := &JWTClaims{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: idToken.Audience,
	}
	if extra.Email != "" {
		claims.Email = &extra.Email
	}
	return claims, nil
}

// HS256Validator validates JWTs signed with a shared HS256 secret.
type HS256Validator struct {
	secret   []byte
	audience string
}

// NewHS256Validator creates a validator for local/dev HS256 tokens. When
// audience is non-empty tokens must name it in their aud claim.
func NewHS256Validator(secret, audience string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret), audience: audience}, nil
}

// Validate verifies a JWT signed with HS256 and extracts claims.
func (v *HS256Validator) Validate(_ context.Context, tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	tok, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}

	claims := &JWTClaims{}
	claims.Subject, _ = raw.GetSubject()
	claims.Issuer, _ = raw.GetIssuer()
	if aud, err := raw.GetAudience(); err == nil {
		claims.Audience = slices.Clone([]string(aud))
	}
	if email, ok := raw["email"].(string); ok {
		claims.Email = &email
	}
	return claims, nil
}
