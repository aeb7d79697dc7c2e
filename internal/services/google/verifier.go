// Package google verifies Google Sign-In credentials (ID tokens) against
// Google's published signing keys.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/webboard/webboard-api/internal/models"
)

var (
	// ErrMissingCredential is returned when no credential is supplied.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned for any signature, issuer, audience,
	// or expiry failure.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNotConfigured is returned when no Google client ID is configured.
	ErrNotConfigured = errors.New("google client id not configured")
)

// Issuers accepted in Sign-In ID tokens. Google uses both forms.
var acceptedIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// Verifier verifies Google Sign-In ID tokens
type Verifier struct {
	jwksManager *JWKSManager
	clientID    string
	jwksURL     string
}

// NewVerifier creates a verifier for credentials issued to clientID
func NewVerifier(jwksManager *JWKSManager, clientID string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		clientID:    clientID,
		jwksURL:     CertsURL,
	}
}

// WithJWKSURL overrides the JWKS endpoint. Used in tests.
func (v *Verifier) WithJWKSURL(url string) *Verifier {
	v.jwksURL = url
	return v
}

// Verify verifies a Sign-In credential and extracts the caller's identity.
// Signature, expiry, issuer, and audience are all checked; any failure is
// reported as ErrInvalidCredential.
func (v *Verifier) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}
	if v.clientID == "" {
		return nil, ErrNotConfigured
	}

	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(credential), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	issuerOK := false
	for _, iss := range acceptedIssuers {
		if token.Issuer() == iss {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidCredential, token.Issuer())
	}

	audienceOK := false
	for _, aud := range token.Audience() {
		if aud == v.clientID {
			audienceOK = true
			break
		}
	}
	if !audienceOK {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidCredential)
	}

	identity := &models.Identity{
		SubjectID: token.Subject(),
	}
	if identity.SubjectID == "" {
		return nil, fmt.Errorf("%w: token missing subject claim", ErrInvalidCredential)
	}

	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			identity.Email = s
		}
	}
	if name, ok := token.Get("name"); ok {
		if s, ok := name.(string); ok {
			identity.Name = s
		}
	}
	if picture, ok := token.Get("picture"); ok {
		if s, ok := picture.(string); ok {
			identity.AvatarURL = s
		}
	}

	return identity, nil
}
