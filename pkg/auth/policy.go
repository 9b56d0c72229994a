// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"fmt"

	"github.com/BlueshiftWorks/adgate/pkg/logger"
)

// RoleAdministrator is the built-in administrative role name.
const RoleAdministrator = "Administrator"

// ErrUnknownPolicy is returned when a policy name has no registration.
// It is a configuration error, surfaced distinctly from a legitimate
// denial so operators can spot a typo in policy wiring. The decision is
// still Deny: an unknown policy must never open access.
var ErrUnknownPolicy = errors.New("unknown authorization policy")

// Decision is the outcome of an authorization check.
type Decision int

const (
	// DecisionDeny is the zero value so every failure path fails closed.
	DecisionDeny Decision = iota

	// DecisionPermit allows the protected operation.
	DecisionPermit
)

func (d Decision) String() string {
	if d == DecisionPermit {
		return "permit"
	}
	return "deny"
}

// Policy is a named predicate over a claim set.
type Policy struct {
	Name   string
	Assert func(ClaimSet) bool
}

// RequireRole returns a policy permitting claim sets that carry a Role
// claim with the given value.
func RequireRole(name, role string) Policy {
	return Policy{
		Name: name,
		Assert: func(claims ClaimSet) bool {
			return claims.HasRole(role)
		},
	}
}

// AdministratorPolicy is the policy guarding administrative operations.
func AdministratorPolicy() Policy {
	return RequireRole(RoleAdministrator, RoleAdministrator)
}

// PolicyRegistry holds the process-wide policy table. It is populated once
// at startup and read-only afterward, so concurrent Authorize calls need
// no synchronization.
type PolicyRegistry struct {
	policies map[string]Policy
}

// NewPolicyRegistry builds a registry from the given policies. A policy
// without a name or predicate is a programming error.
func NewPolicyRegistry(policies ...Policy) (*PolicyRegistry, error) {
	table := make(map[string]Policy, len(policies))
	for _, p := range policies {
		if p.Name == "" || p.Assert == nil {
			return nil, fmt.Errorf("policy %q: name and predicate are required", p.Name)
		}
		if _, exists := table[p.Name]; exists {
			return nil, fmt.Errorf("policy %q registered twice", p.Name)
		}
		table[p.Name] = p
	}
	return &PolicyRegistry{policies: table}, nil
}

// Authorize evaluates the named policy against claims. An unregistered
// policy name denies and returns ErrUnknownPolicy; a registered policy
// whose predicate fails denies with a nil error. The two paths are
// distinct on purpose: one is misconfiguration, the other a user who is
// authenticated but lacks the permission.
func (r *PolicyRegistry) Authorize(claims ClaimSet, policyName string) (Decision, error) {
	policy, ok := r.policies[policyName]
	if !ok {
		logger.Error().Str("policy", policyName).Msg("authorization against unregistered policy")
		return DecisionDeny, fmt.Errorf("%w: %s", ErrUnknownPolicy, policyName)
	}
	if policy.Assert(claims) {
		return DecisionPermit, nil
	}
	return DecisionDeny, nil
}

// Names returns the registered policy names. Diagnostic use only.
func (r *PolicyRegistry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	return names
}
