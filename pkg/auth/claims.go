// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth orchestrates credential validation against a directory
// server, resolves directory identities into claim sets, and evaluates
// named authorization policies over those claims.
package auth

// ClaimType is the closed vocabulary of facts a claim can state about a
// subject. Keep this exhaustive wherever policies are evaluated; an open
// bag of string keys defeats the point of typed claims.
type ClaimType string

const (
	// ClaimRole is a role granted through directory group membership.
	ClaimRole ClaimType = "role"

	// ClaimName is the subject's human-readable display name.
	ClaimName ClaimType = "name"

	// ClaimIdentifier is the subject's distinguished name in the directory.
	ClaimIdentifier ClaimType = "id"
)

// Claim is one typed fact about an authenticated subject.
type Claim struct {
	Type  ClaimType `json:"t"`
	Value string    `json:"v"`
}

// ClaimSet is an ordered collection of claims with no duplicate
// (type, value) pairs. It is built once per authentication and immutable
// afterward; it travels verbatim inside the session token.
type ClaimSet []Claim

// Has reports whether the set contains a claim of the given type and value.
func (cs ClaimSet) Has(t ClaimType, value string) bool {
	for _, c := range cs {
		if c.Type == t && c.Value == value {
			return true
		}
	}
	return false
}

// HasRole reports whether the set contains a Role claim with the given value.
func (cs ClaimSet) HasRole(role string) bool {
	return cs.Has(ClaimRole, role)
}

// Values returns all claim values of the given type, in set order.
func (cs ClaimSet) Values(t ClaimType) []string {
	var values []string
	for _, c := range cs {
		if c.Type == t {
			values = append(values, c.Value)
		}
	}
	return values
}

// First returns the first claim value of the given type, or "".
func (cs ClaimSet) First(t ClaimType) string {
	for _, c := range cs {
		if c.Type == t {
			return c.Value
		}
	}
	return ""
}

// Credentials carries one principal/secret pair for the duration of a
// single validation call. Never log or persist it; call Zero when done.
type Credentials struct {
	Principal string
	Secret    string
}

// Zero clears both fields so the secret does not outlive the call that
// needed it.
func (c *Credentials) Zero() {
	c.Principal = ""
	c.Secret = ""
}
