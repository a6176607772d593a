// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/admissions-portal/portal/internal/auth"
)

// AuthMetrics records authentication events as Prometheus counters.
type AuthMetrics struct {
	LoginsTotal          *prometheus.CounterVec
	AuthenticationsTotal *prometheus.CounterVec
	PrunedTotal          *prometheus.CounterVec
	ExpiredTotal         *prometheus.CounterVec
	SweptTotal           *prometheus.CounterVec
}

// NewAuthMetrics creates the counters and registers them with reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auth_logins_total",
				Help: "Login attempts by principal kind and result",
			},
			[]string{"kind", "result"},
		),
		AuthenticationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auth_authentications_total",
				Help: "Authentication attempts by principal kind and result",
			},
			[]string{"kind", "result"},
		),
		PrunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auth_sessions_pruned_total",
				Help: "Sessions removed by post-login pruning",
			},
			[]string{"kind"},
		),
		ExpiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auth_sessions_expired_total",
				Help: "Expired sessions presented for authentication",
			},
			[]string{"kind"},
		),
		SweptTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auth_sessions_swept_total",
				Help: "Expired sessions removed by the background sweeper",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.LoginsTotal,
		m.AuthenticationsTotal,
		m.PrunedTotal,
		m.ExpiredTotal,
		m.SweptTotal,
	)
	return m
}

// LoginAttempt implements auth.MetricsRecorder.
func (m *AuthMetrics) LoginAttempt(kind auth.Kind, result string) {
	m.LoginsTotal.WithLabelValues(string(kind), result).Inc()
}

// Authentication implements auth.MetricsRecorder.
func (m *AuthMetrics) Authentication(kind auth.Kind, result string) {
	m.AuthenticationsTotal.WithLabelValues(string(kind), result).Inc()
}

// SessionsPruned implements auth.MetricsRecorder.
func (m *AuthMetrics) SessionsPruned(kind auth.Kind, n int) {
	m.PrunedTotal.WithLabelValues(string(kind)).Add(float64(n))
}

// SessionExpired implements auth.MetricsRecorder.
func (m *AuthMetrics) SessionExpired(kind auth.Kind) {
	m.ExpiredTotal.WithLabelValues(string(kind)).Inc()
}

// SessionsSwept implements auth.MetricsRecorder.
func (m *AuthMetrics) SessionsSwept(kind auth.Kind, n int64) {
	m.SweptTotal.WithLabelValues(string(kind)).Add(float64(n))
}

var _ auth.MetricsRecorder = (*AuthMetrics)(nil)
