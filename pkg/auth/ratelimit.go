// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedPrincipals bounds the limiter map; beyond it, idle entries are
// pruned on the next lookup.
const maxTrackedPrincipals = 1024

// LoginLimiter throttles validation attempts per principal before any
// network round trip, blunting online brute-force against the directory.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*principalLimiter
	limit    rate.Limit
	burst    int
}

type principalLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows rps attempts per second per principal with the
// given burst.
func NewLoginLimiter(rps float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		limiters: make(map[string]*principalLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether principal may attempt a login now.
func (l *LoginLimiter) Allow(principal string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	pl, ok := l.limiters[principal]
	if !ok {
		if len(l.limiters) >= maxTrackedPrincipals {
			l.prune(now)
		}
		pl = &principalLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[principal] = pl
	}
	pl.lastSeen = now
	return pl.limiter.Allow()
}

// prune drops principals idle long enough to have fully refilled their
// burst. Caller holds the lock.
func (l *LoginLimiter) prune(now time.Time) {
	idle := time.Duration(float64(l.burst)/float64(l.limit)) * time.Second
	if idle < time.Minute {
		idle = time.Minute
	}
	for principal, pl := range l.limiters {
		if now.Sub(pl.lastSeen) > idle {
			delete(l.limiters, principal)
		}
	}
}
