// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

// Metric result labels.
const (
	ResultSuccess = "success"
)

// MetricsRecorder receives authentication events. The observability package
// provides a Prometheus implementation.
type MetricsRecorder interface {
	// LoginAttempt records a login outcome. result is ResultSuccess or an
	// ErrorKind name.
	LoginAttempt(kind Kind, result string)
	// Authentication records an authenticate outcome.
	Authentication(kind Kind, result string)
	// SessionsPruned records sessions removed by login pruning.
	SessionsPruned(kind Kind, n int)
	// SessionExpired records an expired session detected lazily.
	SessionExpired(kind Kind)
	// SessionsSwept records sessions removed by the background sweeper.
	SessionsSwept(kind Kind, n int64)
}

type noopMetrics struct{}

func (noopMetrics) LoginAttempt(Kind, string)   {}
func (noopMetrics) Authentication(Kind, string) {}
func (noopMetrics) SessionsPruned(Kind, int)    {}
func (noopMetrics) SessionExpired(Kind)         {}
func (noopMetrics) SessionsSwept(Kind, int64)   {}

// resultLabel converts an operation error into a metric label.
func resultLabel(err error) string {
	if err == nil {
		return ResultSuccess
	}
	if kind, ok := KindOf(err); ok {
		return kind.String()
	}
	return "error"
}
