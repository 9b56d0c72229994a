// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package session issues and validates signed, time-bounded session
// tokens. A token wraps the subject and its claim set in a JWT signed
// with HMAC-SHA256; the signature covers subject, claims, and both
// timestamps, so any mutation invalidates the token.
//
// There is no server-side session table. Sign-out is the caller
// discarding the token, which means an issued token stays valid until its
// natural expiry. That is a documented limitation of this design, not an
// oversight; revocation would require a server-side list.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/BlueshiftWorks/adgate/pkg/auth"
)

// Session validation errors
var (
	// ErrExpired is returned for an authentic token past its expiry.
	ErrExpired = errors.New("session has expired")

	// ErrMalformed is returned for anything else: bad signature, wrong
	// algorithm, truncated or garbage input. No field of such a token is
	// trusted.
	ErrMalformed = errors.New("malformed or tampered session token")
)

// KeySize is the minimum HMAC signing key length in bytes.
const KeySize = 32

// Session is the validated content of a session token.
type Session struct {
	Subject   string
	Claims    auth.ClaimSet
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds issuer settings.
type Config struct {
	// SigningKey is the HMAC-SHA256 key. At least KeySize bytes.
	SigningKey []byte `mapstructure:"-"`

	// TTL is the fixed session lifetime from issuance.
	TTL time.Duration `mapstructure:"ttl"`

	// Issuer is the iss claim stamped on and required from tokens.
	Issuer string `mapstructure:"issuer"`
}

// DefaultConfig returns default session settings.
func DefaultConfig() Config {
	return Config{
		TTL:    8 * time.Hour,
		Issuer: "adgate",
	}
}

// sessionClaims is the JWT payload of a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Claims auth.ClaimSet `json:"cls,omitempty"`
}

// Issuer creates and validates session tokens. Safe for concurrent use;
// validation is pure computation and never blocks.
type Issuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
}

// NewIssuer creates a session issuer.
func NewIssuer(config Config) (*Issuer, error) {
	if len(config.SigningKey) < KeySize {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", KeySize, len(config.SigningKey))
	}
	if config.TTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}
	if config.Issuer == "" {
		config.Issuer = "adgate"
	}
	return &Issuer{
		key:    config.SigningKey,
		ttl:    config.TTL,
		issuer: config.Issuer,
	}, nil
}

// Issue creates a signed token for subject carrying claims, valid from now
// until now+TTL.
func (i *Issuer) Issue(subject string, claims auth.ClaimSet, now time.Time) (string, error) {
	payload := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
		Claims: claims,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token as of now. It returns ErrExpired
// for an authentic token past its expiry and ErrMalformed for everything
// else; both fail closed.
func (i *Issuer) Validate(tokenString string, now time.Time) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return i.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	return &Session{
		Subject:   claims.Subject,
		Claims:    claims.Claims,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TTL returns the configured session lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// GenerateKey generates a random signing key of KeySize bytes. Intended
// for local development; production keys come from the settings provider.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
