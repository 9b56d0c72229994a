// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlueshiftWorks/adgate/pkg/auth"
)

func testIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	issuer, err := NewIssuer(Config{SigningKey: key, TTL: ttl, Issuer: "adgate-test"})
	require.NoError(t, err)
	return issuer
}

func testClaims() auth.ClaimSet {
	return auth.ClaimSet{
		{Type: auth.ClaimIdentifier, Value: "cn=alice,ou=people,dc=example,dc=com"},
		{Type: auth.ClaimName, Value: "Alice A"},
		{Type: auth.ClaimRole, Value: "Viewer"},
		{Type: auth.ClaimRole, Value: "Administrator"},
	}
}

func TestNewIssuer_Validation(t *testing.T) {
	t.Parallel()

	key, err := GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  Config{SigningKey: key, TTL: time.Hour},
			wantErr: false,
		},
		{
			name:    "missing key",
			config:  Config{TTL: time.Hour},
			wantErr: true,
		},
		{
			name:    "short key",
			config:  Config{SigningKey: []byte("too-short"), TTL: time.Hour},
			wantErr: true,
		},
		{
			name:    "non-positive TTL",
			config:  Config{SigningKey: key},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewIssuer(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := testIssuer(t, time.Hour)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	token, err := issuer.Issue("alice", testClaims(), issued)
	require.NoError(t, err)

	sess, err := issuer.Validate(token, issued.Add(59*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "alice", sess.Subject)
	assert.Equal(t, testClaims(), sess.Claims)
	assert.Equal(t, issued.Unix(), sess.IssuedAt.Unix())
	assert.Equal(t, issued.Add(time.Hour).Unix(), sess.ExpiresAt.Unix())
}

func TestIssuer_Expiry(t *testing.T) {
	t.Parallel()

	issuer := testIssuer(t, time.Hour)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	token, err := issuer.Issue("alice", testClaims(), issued)
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "just before expiry", at: issued.Add(time.Hour - time.Second)},
		{name: "exactly at expiry", at: issued.Add(time.Hour), wantErr: ErrExpired},
		{name: "long after expiry", at: issued.Add(48 * time.Hour), wantErr: ErrExpired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := issuer.Validate(token, tt.at)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIssuer_TamperSensitivity(t *testing.T) {
	t.Parallel()

	issuer := testIssuer(t, time.Hour)
	now := time.Now()

	token, err := issuer.Issue("alice", testClaims(), now)
	require.NoError(t, err)

	// Flip one character in each JWT segment; every mutation must fail
	// closed as malformed, not as expired or valid.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	for i, offsets := range [][]int{{1}, {5}, {3}} {
		for _, off := range offsets {
			mutated := make([]string, 3)
			copy(mutated, parts)
			seg := []byte(mutated[i])
			if seg[off] == 'A' {
				seg[off] = 'B'
			} else {
				seg[off] = 'A'
			}
			mutated[i] = string(seg)

			_, err := issuer.Validate(strings.Join(mutated, "."), now)
			assert.ErrorIs(t, err, ErrMalformed, "segment %d mutated", i)
		}
	}
}

func TestIssuer_RejectsForeignKey(t *testing.T) {
	t.Parallel()

	issuerA := testIssuer(t, time.Hour)
	issuerB := testIssuer(t, time.Hour)
	now := time.Now()

	token, err := issuerA.Issue("alice", testClaims(), now)
	require.NoError(t, err)

	_, err = issuerB.Validate(token, now)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIssuer_RejectsGarbage(t *testing.T) {
	t.Parallel()

	issuer := testIssuer(t, time.Hour)
	now := time.Now()

	for _, token := range []string{"", "not-a-token", "a.b.c", strings.Repeat("x", 4096)} {
		_, err := issuer.Validate(token, now)
		assert.ErrorIs(t, err, ErrMalformed)
	}
}
