// Package auth provides token issuance/verification, password hashing, and
// the request-side plumbing that turns an HTTP request into verified claims.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /api/v1/login verifies the password and signs a token carrying
//     {username, iat, id}
//  2. The token is returned in the body and set as the "auth" cookie
//  3. Later requests present it as "Authorization: Bearer <token>" or via
//     the cookie; the header wins when both are present
//  4. Verify checks signature, issuer and expiry and hands back the claims
//
// Tokens are stateless: nothing about them is stored server-side.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/account-service/internal/model"
)

const issuer = "account-service"

// DefaultTokenTTL matches the lifetime of the auth cookie.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. The secret should be at least 32 bytes of random data in
// production. Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. The internal user ID travels in "sub"; the
// username gets its own claim so handlers can compare identities without
// a database round-trip.
type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sign creates and signs a token for c that expires after the service TTL.
// A zero c.IssuedAt is replaced with the current time.
func (s *TokenService) Sign(c model.Claims) (string, error) {
	return s.SignWithTTL(c, s.ttl)
}

// SignWithTTL is Sign with a custom lifetime. Used in tests to mint
// already-expired tokens.
func (s *TokenService) SignWithTTL(c model.Claims, ttl time.Duration) (string, error) {
	if c.Username == "" {
		return "", errors.New("auth: claims must carry a username")
	}
	issuedAt := c.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	payload := claims{
		Username: c.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and verifies a token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256
//   - Token is not expired
//   - Issuer matches
//
// Callers must not forward the returned error to clients; it may explain
// exactly why a forged token was rejected.
func (s *TokenService) Verify(tokenStr string) (*model.Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Username == "" {
		return nil, fmt.Errorf("auth: token has no username")
	}

	out := &model.Claims{Username: c.Username, ID: c.Subject}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, nil
}
