// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/BlueshiftWorks/adgate/pkg/directory"
	"github.com/BlueshiftWorks/adgate/pkg/logger"
	"github.com/BlueshiftWorks/adgate/pkg/utils"
)

// Outcome is the terminal result of one credential validation.
type Outcome int

const (
	// OutcomeDenied means the directory rejected the credentials, or they
	// were rejected locally before any network call. Unknown-user and
	// wrong-password are indistinguishable here so the outcome cannot be
	// used for username enumeration.
	OutcomeDenied Outcome = iota

	// OutcomeAuthenticated means the directory accepted the bind.
	OutcomeAuthenticated

	// OutcomeUnavailable means the directory could not be reached within
	// the configured budget. It is a degraded-service signal, never a
	// denial.
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "denied"
	}
}

// Result is what one Validate call produces. Identity and Claims are set
// only for OutcomeAuthenticated.
type Result struct {
	Outcome  Outcome
	Identity *directory.Identity
	Claims   ClaimSet
}

// Directory is the slice of the directory client the validator needs.
type Directory interface {
	Authenticate(ctx context.Context, username, secret string) (*directory.Identity, error)
}

// ValidatorConfig tunes retry and throttling behavior.
type ValidatorConfig struct {
	// RetryLimit is how many times a connectivity failure is retried
	// before surfacing OutcomeUnavailable. Credential rejections are
	// never retried.
	RetryLimit int `mapstructure:"retry_limit"`

	// RetryBackoff is the base delay before a retry; up to 25% jitter is
	// added on top.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// LoginRPS/LoginBurst configure the per-principal rate limiter.
	// LoginRPS <= 0 disables throttling.
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
}

// DefaultValidatorConfig returns the default retry policy: one retry after
// a short jittered backoff, no login throttling.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		RetryLimit:   1,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// Validator orchestrates one credential validation: local sanity checks,
// the directory bind, the single-retry policy for connectivity failures,
// and claim resolution on success. Safe for concurrent use; each call is
// an independent unit of work.
type Validator struct {
	dir      Directory
	resolver *Resolver
	config   ValidatorConfig
	limiter  *LoginLimiter
	metrics  *Metrics
}

// NewValidator composes a validator from its collaborators. metrics may be
// nil.
func NewValidator(dir Directory, resolver *Resolver, config ValidatorConfig, metrics *Metrics) *Validator {
	if config.RetryLimit < 0 {
		config.RetryLimit = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 500 * time.Millisecond
	}

	v := &Validator{
		dir:      dir,
		resolver: resolver,
		config:   config,
		metrics:  metrics,
	}
	if config.LoginRPS > 0 {
		burst := config.LoginBurst
		if burst <= 0 {
			burst = 1
		}
		v.limiter = NewLoginLimiter(config.LoginRPS, burst)
	}
	return v
}

// Validate checks principal/secret against the directory and returns a
// terminal outcome. An empty secret is denied locally: many directories
// treat an empty-password bind as anonymous success, which must never pass
// for authenticating a named user. An empty principal is denied for the
// same reason.
func (v *Validator) Validate(ctx context.Context, principal, secret string) *Result {
	log := logger.Ctx(ctx)

	if principal == "" || secret == "" {
		v.metrics.observeAttempt(OutcomeDenied)
		return &Result{Outcome: OutcomeDenied}
	}

	if v.limiter != nil && !v.limiter.Allow(principal) {
		log.Warn().Msg("login attempt throttled")
		v.metrics.observeAttempt(OutcomeDenied)
		return &Result{Outcome: OutcomeDenied}
	}

	identity, err := v.authenticateWithRetry(ctx, principal, secret)
	switch {
	case err == nil:
		v.metrics.observeAttempt(OutcomeAuthenticated)
		return &Result{
			Outcome:  OutcomeAuthenticated,
			Identity: identity,
			Claims:   v.resolver.Resolve(identity),
		}
	case errors.Is(err, directory.ErrUnavailable):
		log.Error().Err(err).Msg("directory unavailable")
		v.metrics.observeAttempt(OutcomeUnavailable)
		return &Result{Outcome: OutcomeUnavailable}
	default:
		// Credential rejection and unknown user land here together; the
		// caller sees one undifferentiated denial.
		v.metrics.observeAttempt(OutcomeDenied)
		return &Result{Outcome: OutcomeDenied}
	}
}

// authenticateWithRetry performs the directory bind, retrying connectivity
// failures up to the configured limit. Credential rejections return
// immediately: retrying them masks lockout policies and amplifies
// brute-force attempts.
func (v *Validator) authenticateWithRetry(ctx context.Context, principal, secret string) (*directory.Identity, error) {
	identity, err := v.dir.Authenticate(ctx, principal, secret)

	for attempt := 0; attempt < v.config.RetryLimit && errors.Is(err, directory.ErrUnavailable); attempt++ {
		if !v.sleep(ctx, utils.JitterUp(v.config.RetryBackoff, 0.25)) {
			return nil, err
		}
		v.metrics.observeRetry()
		identity, err = v.dir.Authenticate(ctx, principal, secret)
	}

	return identity, err
}

// sleep waits for d unless ctx is done first.
func (v *Validator) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
