// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/admissions-portal/portal/pkg/errutil"
)

// DefaultSweepInterval is how often Sweeper.Run removes expired sessions.
const DefaultSweepInterval = 15 * time.Minute

// Sweeper periodically deletes expired sessions. Authentication does not
// depend on it; it only bounds how long expired rows linger.
type Sweeper struct {
	managers []*SessionManager
	interval time.Duration
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// NewSweeper creates a Sweeper over managers. A non-positive interval means
// DefaultSweepInterval. logger and metrics may be nil.
func NewSweeper(interval time.Duration, logger *slog.Logger, metrics MetricsRecorder, managers ...*SessionManager) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Sweeper{managers: managers, interval: interval, logger: logger, metrics: metrics}
}

// SweepOnce deletes expired sessions of every kind whose store supports bulk
// deletion. It returns per-kind counts and the joined errors of failed kinds.
func (s *Sweeper) SweepOnce(ctx context.Context) (map[Kind]int64, error) {
	counts := make(map[Kind]int64, len(s.managers))
	var errs []error
	for _, m := range s.managers {
		n, supported, err := m.DeleteExpired(ctx)
		if err != nil {
			errs = append(errs, oops.With("kind", string(m.Kind())).Wrap(err))
			continue
		}
		if !supported {
			continue
		}
		counts[m.Kind()] = n
		s.metrics.SessionsSwept(m.Kind(), n)
	}
	return counts, errors.Join(errs...)
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := s.SweepOnce(ctx)
			if err != nil && ctx.Err() == nil {
				errutil.LogErrorContext(ctx, s.logger, "expired session sweep failed", err)
			}
			for kind, n := range counts {
				if n > 0 {
					s.logger.InfoContext(ctx, "expired sessions swept", "kind", string(kind), "count", n)
				}
			}
		}
	}
}
