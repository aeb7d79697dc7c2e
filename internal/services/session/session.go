// Package session issues and validates the service's own signed session
// tokens, created after a Google credential has been verified.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/webboard/webboard-api/internal/models"
)

// DefaultTTL is how long an issued session token stays valid. Expiry is the
// only termination path; there is no revocation list.
const DefaultTTL = 7 * 24 * time.Hour

const issuer = "webboard-api"

var (
	// ErrNoToken is returned when no bearer token is present on the request.
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken is returned when a token is malformed, tampered with,
	// or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotConfigured is returned when no signing secret is configured.
	ErrNotConfigured = errors.New("signing secret not configured")
)

// Claims are the session token claims: registered JWT claims plus the
// identity fields carried over from the provider credential.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Codec issues and validates HS256-signed session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec signing with secret. An empty secret is allowed at
// construction time; Issue and Validate report it per call.
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    DefaultTTL,
	}
}

// WithTTL overrides the token lifetime.
func (c *Codec) WithTTL(ttl time.Duration) *Codec {
	c.ttl = ttl
	return c
}

// Issue creates a signed session token embedding identity, valid from now
// until now + TTL.
func (c *Codec) Issue(identity *models.Identity, now time.Time) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrNotConfigured
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email:   identity.Email,
		Name:    identity.Name,
		Picture: identity.AvatarURL,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies a session token's signature and expiry and returns the
// identity embedded at issue time. All verification failures, including
// expiry, are reported as ErrInvalidToken.
func (c *Codec) Validate(tokenString string) (*models.Identity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}
	if len(c.secret) == 0 {
		return nil, ErrNotConfigured
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return &models.Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

// BearerToken extracts the bearer token from the Authorization header.
// Header lookup is case-insensitive (Header.Get canonicalizes), and so is the
// "Bearer" scheme. Returns ErrNoToken when absent or malformed.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrNoToken
	}

	return parts[1], nil
}
