package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/livinlefevreloca/biosync/internal/httpapi"
	"github.com/livinlefevreloca/biosync/internal/scheduler"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP control surface until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			logger := a.logger.Logger
			logger.Info("starting biosync")

			if err := a.buildEngine(ctx); err != nil {
				logger.Error("cannot start sync engine", "error", err)
				return err
			}

			sched, err := scheduler.New(cfg.Scheduler, a.engine, logger)
			if err != nil {
				return err
			}
			if cfg.Scheduler.Autostart {
				if err := sched.Start(cfg.Scheduler.IntervalMinutes); err != nil {
					return err
				}
			}

			g, ctx := errgroup.WithContext(ctx)

			var srv *http.Server
			if cfg.HTTP.Enabled {
				srv = newHTTPServer(cfg.HTTP.Addr(), a, sched, cfg.Metrics.Enabled, cfg.Metrics.Path)

				g.Go(func() error {
					logger.Info("http api listening", "addr", srv.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http api failed", "error", err)
						return err
					}
					return nil
				})
			}

			logger.Info("biosync is running",
				"scheduler_running", sched.State().Running,
				"interval", sched.State().IntervalMinutes)

			// Shut everything down on a signal or when the listener fails
			g.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down gracefully")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()

				if srv != nil {
					if err := srv.Shutdown(shutdownCtx); err != nil {
						logger.Warn("http api shutdown incomplete", "error", err)
					}
				}
				if err := sched.Shutdown(shutdownCtx); err != nil {
					logger.Warn("scheduled run still in progress at shutdown", "error", err)
				}
				return nil
			})

			return g.Wait()
		},
	}
}

func newHTTPServer(addr string, a *app, sched *scheduler.Scheduler, metricsEnabled bool, metricsPath string) *http.Server {
	deps := httpapi.Deps{
		Engine:   a.engine,
		Schedule: sched,
		Logs:     a.logger.Ring(),
	}
	// A nil *db.DB must not become a non-nil History
	if a.history != nil {
		deps.History = a.history
	}

	options := httpapi.Options{}
	if metricsEnabled {
		options.MetricsPath = metricsPath
	}

	return &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(deps, options, a.logger.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
