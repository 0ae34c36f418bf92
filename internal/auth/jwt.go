package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
)

const (
	defaultHandleTTL = 24 * time.Hour
	handleIssuer     = "ticketgpt"
)

// ClipClaims represents the claims in a clip handle
type ClipClaims struct {
	Clip string `json:"clip"`
	jwt.RegisteredClaims
}

// HandleSigner issues and verifies clip handles
type HandleSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHandleSigner creates a signer using secret. A zero ttl uses 24 hours.
func NewHandleSigner(secret []byte, ttl time.Duration) (*HandleSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("handle secret is required")
	}
	if ttl <= 0 {
		ttl = defaultHandleTTL
	}
	return &HandleSigner{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// RandomSecret returns 32 random bytes for use when no secret is configured
func RandomSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate handle secret: %w", err)
	}
	return secret, nil
}

// IssueClipHandle generates a signed handle naming clip
func (s *HandleSigner) IssueClipHandle(clip string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &ClipClaims{
		Clip: clip,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    handleIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign clip handle: %w", err)
	}

	return signed, expiresAt, nil
}

// ParseClipHandle validates a handle and returns the clip name it carries
func (s *HandleSigner) ParseClipHandle(handle string) (string, error) {
	token, err := jwt.ParseWithClaims(handle, &ClipClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(handleIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidHandle, err)
	}

	claims, ok := token.Claims.(*ClipClaims)
	if !ok || !token.Valid {
		return "", domain.ErrInvalidHandle
	}

	if !entities.IsClipName(claims.Clip) {
		return "", fmt.Errorf("%w: unexpected clip %q", domain.ErrInvalidHandle, claims.Clip)
	}

	return claims.Clip, nil
}
