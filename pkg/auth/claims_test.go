// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimSet_Has(t *testing.T) {
	t.Parallel()

	claims := ClaimSet{
		{Type: ClaimIdentifier, Value: "cn=alice,dc=example,dc=com"},
		{Type: ClaimRole, Value: "Viewer"},
		{Type: ClaimRole, Value: "Administrator"},
	}

	assert.True(t, claims.Has(ClaimRole, "Viewer"))
	assert.True(t, claims.HasRole("Administrator"))
	assert.False(t, claims.HasRole("Auditor"))
	assert.False(t, claims.Has(ClaimName, "Viewer"))
}

func TestClaimSet_Values(t *testing.T) {
	t.Parallel()

	claims := ClaimSet{
		{Type: ClaimRole, Value: "Viewer"},
		{Type: ClaimName, Value: "Alice A"},
		{Type: ClaimRole, Value: "Administrator"},
	}

	assert.Equal(t, []string{"Viewer", "Administrator"}, claims.Values(ClaimRole))
	assert.Equal(t, "Alice A", claims.First(ClaimName))
	assert.Empty(t, claims.First(ClaimIdentifier))
	assert.Nil(t, claims.Values(ClaimIdentifier))
}

func TestCredentials_Zero(t *testing.T) {
	t.Parallel()

	creds := Credentials{Principal: "alice", Secret: "hunter2"}
	creds.Zero()

	assert.Empty(t, creds.Principal)
	assert.Empty(t, creds.Secret)
}
