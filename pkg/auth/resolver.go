// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"strings"

	"github.com/BlueshiftWorks/adgate/pkg/directory"
)

// Resolver maps directory identities onto claim sets using a static
// group-DN to role-name table. It is a pure function of its input plus the
// table: no network, no storage, safe for unsynchronized concurrent use.
type Resolver struct {
	// groupRoles maps lowercased group DNs to role names. Populated once
	// at construction and never mutated.
	groupRoles map[string]string
}

// NewResolver builds a resolver from a group-DN to role-name mapping.
// DN matching is case-insensitive, as DNs are in the directory itself.
func NewResolver(groupRoles map[string]string) *Resolver {
	normalized := make(map[string]string, len(groupRoles))
	for dn, role := range groupRoles {
		normalized[strings.ToLower(dn)] = role
	}
	return &Resolver{groupRoles: normalized}
}

// Resolve derives the claim set for a directory identity:
// an Identifier claim from the DN, a Name claim from the display name when
// present, and one Role claim per mapped group. Groups without a mapping
// are ignored. Duplicate (type, value) pairs are collapsed, so two groups
// mapping to the same role yield a single Role claim.
func (r *Resolver) Resolve(identity *directory.Identity) ClaimSet {
	claims := ClaimSet{{Type: ClaimIdentifier, Value: identity.DN}}

	if identity.DisplayName != "" {
		claims = append(claims, Claim{Type: ClaimName, Value: identity.DisplayName})
	}

	for _, group := range identity.Groups {
		role, ok := r.groupRoles[strings.ToLower(group)]
		if !ok {
			continue
		}
		if claims.Has(ClaimRole, role) {
			continue
		}
		claims = append(claims, Claim{Type: ClaimRole, Value: role})
	}

	return claims
}
