// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics server and expired-session sweeper",
		Long: `Connects to the configured stores, serves /metrics and health probes on
--metrics-addr and removes expired sessions every --session-sweep-interval
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, a)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		obsServer ObservabilityServer
		metrics   auth.MetricsRecorder
		b         *backend
	)

	// The server is created first so its metrics can be wired into the
	// services; it starts only after b is set.
	if a.cfg.MetricsAddr != "" {
		obsServer = a.deps.ObservabilityServerFactory(a.cfg.MetricsAddr, func(ctx context.Context) error {
			return b.ready(ctx)
		})
		metrics = obsServer.Metrics()
	}

	var err error
	b, err = a.openBackend(ctx, metrics)
	if err != nil {
		return err
	}
	defer b.Close()

	if obsServer != nil {
		errCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, errCh, a, "observability")
		a.logger.InfoContext(ctx, "observability server started", "addr", obsServer.Addr())
	}

	sweeper := b.sweeper(a, metrics)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(ctx)
	}()

	cmd.Println("Portal started")
	a.logger.InfoContext(ctx, "portal ready",
		"session_backend", a.cfg.Session.Backend,
		"sweep_interval", a.cfg.Session.SweepInterval.String(),
		"tokens", a.cfg.Token.Enabled)

	<-ctx.Done()
	a.logger.Info("shutting down")
	<-done

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogWarn(a.logger, "error stopping observability server", err)
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, a *app, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(a.logger, "server error, triggering shutdown", err, "server", serverName)
			cancel()
		}
	case <-ctx.Done():
	}
}
