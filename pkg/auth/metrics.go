// Copyright 2025 AdGate Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports validator counters. A nil *Metrics is valid and records
// nothing, so wiring metrics stays optional for library consumers.
type Metrics struct {
	attempts *prometheus.CounterVec
	retries  prometheus.Counter
}

// NewMetrics creates validator metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adgate",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Credential validation attempts by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adgate",
			Subsystem: "auth",
			Name:      "retries_total",
			Help:      "Directory retries after a connectivity failure.",
		}),
	}
	reg.MustRegister(m.attempts, m.retries)
	return m
}

func (m *Metrics) observeAttempt(outcome Outcome) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome.String()).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
